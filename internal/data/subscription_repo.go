package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type subscriptionRepo struct {
	data *Data
	log  *log.Helper
}

// NewSubscriptionRepo 创建订阅仓储
func NewSubscriptionRepo(data *Data, logger log.Logger) biz.SubscriptionRepo {
	return &subscriptionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// UpsertSubscription 按用户维度写入订阅记录
// 续费时刷新套餐、额度、周期并重新置为 active
func (r *subscriptionRepo) UpsertSubscription(ctx context.Context, sub *biz.Subscription) error {
	if sub.SubscriptionID == "" {
		sub.SubscriptionID = uuid.New().String()
	}
	m := model.Subscription{
		SubscriptionID:     sub.SubscriptionID,
		UserID:             sub.UserID,
		PlanID:             sub.PlanID,
		StarsPerMonth:      sub.StarsPerMonth,
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
	}
	return r.data.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"plan_id":              sub.PlanID,
				"stars_per_month":      sub.StarsPerMonth,
				"status":               sub.Status,
				"current_period_start": sub.CurrentPeriodStart,
				"current_period_end":   sub.CurrentPeriodEnd,
			}),
		}).
		Create(&m).Error
}

func (r *subscriptionRepo) GetSubscriptionByUserID(ctx context.Context, userID string) (*biz.Subscription, error) {
	var m model.Subscription
	if err := r.data.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toSubscriptionBiz(&m), nil
}

// ListDueSubscriptions 查询已到期但仍为 active 的订阅
func (r *subscriptionRepo) ListDueSubscriptions(ctx context.Context, now time.Time, limit int) ([]*biz.Subscription, error) {
	var models []model.Subscription
	if err := r.data.db.WithContext(ctx).
		Where("status = ? AND current_period_end < ?", constants.SubscriptionStatusActive, now).
		Order("current_period_end ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}

	subs := make([]*biz.Subscription, 0, len(models))
	for i := range models {
		subs = append(subs, toSubscriptionBiz(&models[i]))
	}
	return subs, nil
}

func (r *subscriptionRepo) MarkExpired(ctx context.Context, subscriptionID string) error {
	result := r.data.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("subscription_id = ?", subscriptionID).
		Update("status", constants.SubscriptionStatusExpired)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	return nil
}

func toSubscriptionBiz(m *model.Subscription) *biz.Subscription {
	return &biz.Subscription{
		SubscriptionID:     m.SubscriptionID,
		UserID:             m.UserID,
		PlanID:             m.PlanID,
		StarsPerMonth:      m.StarsPerMonth,
		Status:             m.Status,
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
