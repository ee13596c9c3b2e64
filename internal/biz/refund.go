package biz

import (
	"context"
	"fmt"

	"credit-service/internal/constants"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// RefundUseCase 积分退还业务逻辑（生成失败时把扣掉的星还给用户）
//
// 退还统一进加油包星池：无法可靠判定原扣减动用了哪个池，
// 而订阅星会在周期结束清零，还进订阅池可能让用户白白损失
type RefundUseCase struct {
	repo    CreditRepo
	txRepo  CreditTransactionRepo
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewRefundUseCase 创建退还 UseCase
func NewRefundUseCase(repo CreditRepo, txRepo CreditTransactionRepo, logger log.Logger) *RefundUseCase {
	return &RefundUseCase{
		repo:    repo,
		txRepo:  txRepo,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Refund 退还积分到加油包星池
// 退还与扣减并发竞争同一行，同样走条件更新 + 重试
func (uc *RefundUseCase) Refund(ctx context.Context, userID string, amount int64, generationID string) (CreditBalance, error) {
	if amount <= 0 {
		return CreditBalance{}, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidAmount)
	}

	// 退过积分说明该用户扣减过，行理应存在；兜底建零值行保证条件更新有目标
	if err := uc.repo.EnsureCredit(ctx, userID); err != nil {
		uc.metrics.RefundTotal.WithLabelValues(constants.ResultFailed).Inc()
		uc.log.WithContext(ctx).Errorf("退还前建行失败: user_id=%s, err=%v", userID, err)
		return CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeRefundFailed)
	}

	for attempt := 1; attempt <= constants.MaxRefundAttempts; attempt++ {
		ledger, err := uc.repo.GetCredit(ctx, userID)
		if err != nil {
			uc.metrics.RefundTotal.WithLabelValues(constants.ResultFailed).Inc()
			uc.log.WithContext(ctx).Errorf("退还读取积分失败: user_id=%s, attempt=%d, err=%v", userID, attempt, err)
			return CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeRefundFailed)
		}

		balance := ledger.Balance()
		newSub := balance.SubscriptionStars
		newPkg := balance.PackageStars + amount

		var oldSub, oldPkg int64
		if ledger != nil {
			oldSub = ledger.SubscriptionStars
			oldPkg = ledger.PackageStars
		}
		ok, err := uc.repo.CompareAndSwapStars(ctx, userID, oldSub, oldPkg, newSub, newPkg)
		if err != nil {
			uc.metrics.RefundTotal.WithLabelValues(constants.ResultFailed).Inc()
			uc.log.WithContext(ctx).Errorf("退还条件更新失败: user_id=%s, attempt=%d, err=%v", userID, attempt, err)
			return CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeRefundFailed)
		}
		if ok {
			uc.metrics.RefundTotal.WithLabelValues(constants.ResultSuccess).Inc()
			uc.recordRefund(ctx, userID, amount, generationID)
			uc.log.WithContext(ctx).Infof("退还成功: user_id=%s, amount=%d, generation_id=%s, attempt=%d",
				userID, amount, generationID, attempt)
			return CreditBalance{
				SubscriptionStars: newSub,
				PackageStars:      newPkg,
				TotalBalance:      newSub + newPkg,
			}, nil
		}

		uc.log.WithContext(ctx).Warnf("退还并发冲突: user_id=%s, attempt=%d", userID, attempt)
	}

	uc.metrics.RefundTotal.WithLabelValues(constants.ResultFailed).Inc()
	uc.log.WithContext(ctx).Errorf("退还重试耗尽: user_id=%s, amount=%d, generation_id=%s", userID, amount, generationID)
	return CreditBalance{}, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeRefundFailed)
}

func (uc *RefundUseCase) recordRefund(ctx context.Context, userID string, amount int64, generationID string) {
	tx := &CreditTransaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		Type:          constants.TxTypeRefund,
		GenerationID:  generationID,
		Description:   fmt.Sprintf("生成失败退还: +%d 加油包星", amount),
	}
	if err := uc.txRepo.CreateTransaction(ctx, tx); err != nil {
		uc.log.WithContext(ctx).Warnf("退还流水落库失败: user_id=%s, err=%v", userID, err)
	}
}
