package biz

import (
	"context"
	"fmt"
	"time"

	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// DeductResult 扣减结果
type DeductResult struct {
	SubscriptionStars        int64 // 扣减后的订阅星余额
	PackageStars             int64 // 扣减后的加油包星余额
	TotalBalance             int64 // 扣减后的总余额
	DeductedFromSubscription int64 // 从订阅星池扣除的数量
	DeductedFromPackage      int64 // 从加油包星池扣除的数量
}

// DeductUseCase 积分扣减业务逻辑
// 不使用分布式锁：通过乐观并发（条件更新 + 重试）保证不超扣、不扣负
type DeductUseCase struct {
	repo      CreditRepo
	txRepo    CreditTransactionRepo
	publisher DeductEventPublisher
	log       *log.Helper
	metrics   *metrics.CreditMetrics
}

// NewDeductUseCase 创建扣减 UseCase
func NewDeductUseCase(repo CreditRepo, txRepo CreditTransactionRepo, publisher DeductEventPublisher, logger log.Logger) *DeductUseCase {
	return &DeductUseCase{
		repo:      repo,
		txRepo:    txRepo,
		publisher: publisher,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// Deduct 按优先级扣减积分：先扣订阅星（会过期），再扣加油包星
//
// 每轮流程：读取账本行 -> 规范化余额 -> 余额不足立即失败（不重试）->
// 计算两池扣减量 -> 条件更新（条件用原始存储值，新值用规范化值）。
// 条件未命中说明有并发写入，重读重试，最多 MaxDeductAttempts 轮；
// 耗尽后返回冲突错误，此时本次调用未产生任何写入。
func (uc *DeductUseCase) Deduct(ctx context.Context, userID string, amount int64, generationID string) (*DeductResult, error) {
	startTime := time.Now()

	if amount < 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidAmount)
	}

	ledger, err := uc.repo.GetCredit(ctx, userID)
	if err != nil {
		uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultError).Inc()
		uc.log.WithContext(ctx).Errorf("扣减前读取积分失败: user_id=%s, err=%v", userID, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditGetFailed)
	}
	balance := ledger.Balance()

	// 零扣减：合法的空操作，不产生任何写入
	if amount == 0 {
		return &DeductResult{
			SubscriptionStars: balance.SubscriptionStars,
			PackageStars:      balance.PackageStars,
			TotalBalance:      balance.TotalBalance,
		}, nil
	}

	for attempt := 1; attempt <= constants.MaxDeductAttempts; attempt++ {
		if attempt > 1 {
			ledger, err = uc.repo.GetCredit(ctx, userID)
			if err != nil {
				uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultError).Inc()
				uc.log.WithContext(ctx).Errorf("扣减重试读取积分失败: user_id=%s, attempt=%d, err=%v", userID, attempt, err)
				return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditGetFailed)
			}
			balance = ledger.Balance()
		}

		if balance.TotalBalance < amount {
			uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultInsufficient).Inc()
			uc.log.WithContext(ctx).Infof("积分不足: user_id=%s, balance=%d, amount=%d", userID, balance.TotalBalance, amount)
			return nil, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInsufficientCredits)
		}

		fromSub := min(balance.SubscriptionStars, amount)
		fromPkg := amount - fromSub
		newSub := balance.SubscriptionStars - fromSub
		newPkg := balance.PackageStars - fromPkg
		if newSub < 0 || newPkg < 0 {
			// 正常路径不可达：存量数据已损坏，拒绝写入
			uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultError).Inc()
			uc.log.WithContext(ctx).Errorf("扣减计算出现负值: user_id=%s, sub=%d, pkg=%d, amount=%d",
				userID, balance.SubscriptionStars, balance.PackageStars, amount)
			return nil, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvariantViolation)
		}

		// CAS 条件必须使用原始存储值：历史行规范化后两池与库内值不一致，
		// 用规范化值做条件会永远匹配不上
		var oldSub, oldPkg int64
		if ledger != nil {
			oldSub = ledger.SubscriptionStars
			oldPkg = ledger.PackageStars
		}
		ok, err := uc.repo.CompareAndSwapStars(ctx, userID, oldSub, oldPkg, newSub, newPkg)
		if err != nil {
			// 存储错误结果未知，直接上抛，绝不按冲突重试（可能造成重复扣减）
			uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultError).Inc()
			uc.log.WithContext(ctx).Errorf("扣减条件更新失败: user_id=%s, attempt=%d, err=%v", userID, attempt, err)
			return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeCreditUpdateFailed)
		}
		if ok {
			uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultSuccess).Inc()
			uc.metrics.DeductAttempts.Observe(float64(attempt))
			uc.metrics.DeductDuration.Observe(time.Since(startTime).Seconds())
			if fromSub > 0 {
				uc.metrics.DeductStarsTotal.WithLabelValues(constants.PoolSubscription).Add(float64(fromSub))
			}
			if fromPkg > 0 {
				uc.metrics.DeductStarsTotal.WithLabelValues(constants.PoolPackage).Add(float64(fromPkg))
			}

			uc.recordDeduct(ctx, userID, amount, fromSub, fromPkg, generationID)

			uc.log.WithContext(ctx).Infof("扣减成功: user_id=%s, amount=%d, from_sub=%d, from_pkg=%d, attempt=%d",
				userID, amount, fromSub, fromPkg, attempt)
			return &DeductResult{
				SubscriptionStars:        newSub,
				PackageStars:             newPkg,
				TotalBalance:             newSub + newPkg,
				DeductedFromSubscription: fromSub,
				DeductedFromPackage:      fromPkg,
			}, nil
		}

		uc.metrics.DeductCASConflict.Inc()
		uc.log.WithContext(ctx).Warnf("扣减并发冲突: user_id=%s, attempt=%d", userID, attempt)
	}

	uc.metrics.DeductTotal.WithLabelValues(constants.DeductResultContention).Inc()
	uc.log.WithContext(ctx).Errorf("扣减重试耗尽: user_id=%s, amount=%d, attempts=%d",
		userID, amount, constants.MaxDeductAttempts)
	// 返回最后一次观察到的余额，调用方提示用户时不必再查一次
	return &DeductResult{
		SubscriptionStars: balance.SubscriptionStars,
		PackageStars:      balance.PackageStars,
		TotalBalance:      balance.TotalBalance,
	}, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeDeductContention)
}

// recordDeduct 记录扣减流水
// MQ 启用时异步发送，失败或未启用时回退同步落库；
// 流水写入失败只告警，不回滚已完成的扣减
func (uc *DeductUseCase) recordDeduct(ctx context.Context, userID string, amount, fromSub, fromPkg int64, generationID string) {
	event := &DeductEvent{
		TxID:             uuid.NewString(),
		UserID:           userID,
		Amount:           amount,
		FromSubscription: fromSub,
		FromPackage:      fromPkg,
		GenerationID:     generationID,
		DeductTime:       time.Now(),
	}

	if uc.publisher != nil && uc.publisher.Enabled() {
		err := uc.publisher.PublishDeductEvent(ctx, event)
		if err == nil {
			return
		}
		uc.log.WithContext(ctx).Warnf("扣减事件发送失败，回退同步落库: user_id=%s, err=%v", userID, err)
	}

	tx := &CreditTransaction{
		TransactionID: event.TxID,
		UserID:        userID,
		Amount:        -amount,
		Type:          constants.TxTypeDeduct,
		GenerationID:  generationID,
		Description:   fmt.Sprintf("生成扣减: 订阅星 %d, 加油包星 %d", fromSub, fromPkg),
	}
	if err := uc.txRepo.CreateTransaction(ctx, tx); err != nil {
		uc.log.WithContext(ctx).Errorf("扣减流水落库失败: user_id=%s, tx_id=%s, err=%v", userID, event.TxID, err)
	}
}
