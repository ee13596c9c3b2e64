package data

import (
	"context"
	"errors"
	"fmt"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type purchaseOrderRepo struct {
	data *Data
	log  *log.Helper
}

// NewPurchaseOrderRepo 创建购买订单仓储
func NewPurchaseOrderRepo(data *Data, logger log.Logger) biz.PurchaseOrderRepo {
	return &purchaseOrderRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *purchaseOrderRepo) CreatePurchaseOrder(ctx context.Context, order *biz.PurchaseOrder) error {
	m := model.PurchaseOrder{
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		Kind:      order.Kind,
		Stars:     order.Stars,
		PlanID:    order.PlanID,
		PaymentID: order.PaymentID,
		Status:    order.Status,
	}
	return r.data.db.WithContext(ctx).Create(&m).Error
}

func (r *purchaseOrderRepo) GetPurchaseOrderByID(ctx context.Context, orderID string) (*biz.PurchaseOrder, error) {
	var m model.PurchaseOrder
	if err := r.data.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toOrderBiz(&m), nil
}

// ConfirmWithIdempotency 幂等确认订单
// 事务内 FOR UPDATE 锁定订单行，拦截同一订单的并发回调：
// 已是成功状态直接返回 (order, false, nil)，不重复确认
func (r *purchaseOrderRepo) ConfirmWithIdempotency(ctx context.Context, orderID, paymentID string) (*biz.PurchaseOrder, bool, error) {
	var m model.PurchaseOrder
	confirmed := false

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("order_id = ?", orderID).
			First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("order not found: %s", orderID)
			}
			return err
		}

		// 已确认过的订单直接返回，保证重复回调不重复发放
		if m.Status == constants.OrderStatusSuccess {
			return nil
		}

		if err := tx.Model(&m).Updates(map[string]interface{}{
			"status":     constants.OrderStatusSuccess,
			"payment_id": paymentID,
		}).Error; err != nil {
			return err
		}
		m.Status = constants.OrderStatusSuccess
		m.PaymentID = paymentID
		confirmed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return toOrderBiz(&m), confirmed, nil
}

func (r *purchaseOrderRepo) UpdatePurchaseOrderStatus(ctx context.Context, orderID, paymentID, status string) error {
	result := r.data.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Where("order_id = ?", orderID).
		Updates(map[string]interface{}{
			"status":     status,
			"payment_id": paymentID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}
	return nil
}

func toOrderBiz(m *model.PurchaseOrder) *biz.PurchaseOrder {
	return &biz.PurchaseOrder{
		OrderID:   m.OrderID,
		UserID:    m.UserID,
		Kind:      m.Kind,
		Stars:     m.Stars,
		PlanID:    m.PlanID,
		PaymentID: m.PaymentID,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
