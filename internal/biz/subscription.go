package biz

import (
	"context"
	"time"

	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// 订阅过期扫描的单批处理条数
const expireSweepBatchSize = 500

// Subscription 订阅记录领域对象
// 记录谁在订阅、月度额度多少、当前计费周期何时结束；
// 周期结束后由定时扫描清零其订阅星
type Subscription struct {
	SubscriptionID     string
	UserID             string
	PlanID             string
	StarsPerMonth      int64
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SubscriptionRepo 订阅数据层接口
type SubscriptionRepo interface {
	// UpsertSubscription 按用户维度写入订阅记录（续费时刷新周期与额度）
	UpsertSubscription(ctx context.Context, sub *Subscription) error
	GetSubscriptionByUserID(ctx context.Context, userID string) (*Subscription, error)
	// ListDueSubscriptions 查询已到期但仍为 active 的订阅
	ListDueSubscriptions(ctx context.Context, now time.Time, limit int) ([]*Subscription, error)
	MarkExpired(ctx context.Context, subscriptionID string) error
}

// SweepLocker 过期扫描的分布式锁接口
// 多实例部署时保证同一时刻只有一个实例执行扫描
type SweepLocker interface {
	// Lock 获取锁，成功返回解锁函数
	Lock(ctx context.Context) (func(), error)
}

// SubscriptionUseCase 订阅业务逻辑
type SubscriptionUseCase struct {
	repo      SubscriptionRepo
	allocator *AllocatorUseCase
	locker    SweepLocker
	log       *log.Helper
	metrics   *metrics.CreditMetrics
}

// NewSubscriptionUseCase 创建订阅 UseCase
func NewSubscriptionUseCase(repo SubscriptionRepo, allocator *AllocatorUseCase, locker SweepLocker, logger log.Logger) *SubscriptionUseCase {
	return &SubscriptionUseCase{
		repo:      repo,
		allocator: allocator,
		locker:    locker,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// ActivateSubscription 开通或续费订阅：写入订阅记录并发放当期订阅星
func (uc *SubscriptionUseCase) ActivateSubscription(ctx context.Context, sub *Subscription) error {
	sub.Status = constants.SubscriptionStatusActive
	if err := uc.repo.UpsertSubscription(ctx, sub); err != nil {
		uc.log.WithContext(ctx).Errorf("写入订阅记录失败: user_id=%s, err=%v", sub.UserID, err)
		return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSubscriptionUpdateFailed)
	}
	if _, err := uc.allocator.RenewSubscription(ctx, sub.UserID, sub.StarsPerMonth); err != nil {
		return err
	}
	uc.log.WithContext(ctx).Infof("订阅生效: user_id=%s, plan_id=%s, stars=%d, period_end=%s",
		sub.UserID, sub.PlanID, sub.StarsPerMonth, sub.CurrentPeriodEnd.Format(time.RFC3339))
	return nil
}

// GetSubscription 查询用户当前订阅
func (uc *SubscriptionUseCase) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	sub, err := uc.repo.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSubscriptionListFailed)
	}
	return sub, nil
}

// ExpireDueSubscriptions 扫描已到期的订阅，逐个清零订阅星并标记过期
// 由 cron 进程每日调度；持有分布式锁执行，避免多实例重复扫描。
// 单个订阅处理失败只记录，不中断整批（下次扫描会重新捞到）
func (uc *SubscriptionUseCase) ExpireDueSubscriptions(ctx context.Context) (int, int64, error) {
	startTime := time.Now()

	unlock, err := uc.locker.Lock(ctx)
	if err != nil {
		uc.metrics.ExpireSweepTotal.WithLabelValues(constants.ResultFailed).Inc()
		uc.log.WithContext(ctx).Warnf("获取过期扫描锁失败: err=%v", err)
		return 0, 0, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeExpireSweepLockFailed)
	}
	defer unlock()

	processed := 0
	var starsExpired int64
	for {
		subs, err := uc.repo.ListDueSubscriptions(ctx, time.Now(), expireSweepBatchSize)
		if err != nil {
			uc.metrics.ExpireSweepTotal.WithLabelValues(constants.ResultFailed).Inc()
			uc.log.WithContext(ctx).Errorf("查询到期订阅失败: err=%v", err)
			return processed, starsExpired, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeSubscriptionListFailed)
		}
		if len(subs) == 0 {
			break
		}

		batchProcessed := 0
		for _, sub := range subs {
			expired, _, err := uc.allocator.ResetSubscriptionStars(ctx, sub.UserID)
			if err != nil {
				uc.log.WithContext(ctx).Errorf("清零到期订阅失败: subscription_id=%s, user_id=%s, err=%v",
					sub.SubscriptionID, sub.UserID, err)
				continue
			}
			if err := uc.repo.MarkExpired(ctx, sub.SubscriptionID); err != nil {
				// 订阅星已清零但状态未更新，下次扫描会再清一次（清零幂等）
				uc.log.WithContext(ctx).Errorf("标记订阅过期失败: subscription_id=%s, err=%v", sub.SubscriptionID, err)
				continue
			}
			processed++
			batchProcessed++
			starsExpired += expired
		}

		// 整批全部失败时退出，避免反复捞到同一批失败记录空转
		if len(subs) < expireSweepBatchSize || batchProcessed == 0 {
			break
		}
	}

	uc.metrics.ExpireSweepTotal.WithLabelValues(constants.ResultSuccess).Inc()
	uc.metrics.ExpireSweepDuration.Observe(time.Since(startTime).Seconds())
	uc.log.WithContext(ctx).Infof("订阅过期扫描完成: processed=%d, stars_expired=%d, duration=%s",
		processed, starsExpired, time.Since(startTime))
	return processed, starsExpired, nil
}
