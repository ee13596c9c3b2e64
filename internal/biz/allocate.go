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

// AllocatorUseCase 积分发放业务逻辑
//
// 发放类操作的写入者是计费回调和定时任务，同一用户不存在并发发放，
// 因此采用非条件覆盖写（最后写入者胜），不走 CAS
type AllocatorUseCase struct {
	repo    CreditRepo
	txRepo  CreditTransactionRepo
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewAllocatorUseCase 创建发放 UseCase
func NewAllocatorUseCase(repo CreditRepo, txRepo CreditTransactionRepo, logger log.Logger) *AllocatorUseCase {
	return &AllocatorUseCase{
		repo:    repo,
		txRepo:  txRepo,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// AddSubscriptionStars 增发订阅星（叠加到现有订阅星上）
func (uc *AllocatorUseCase) AddSubscriptionStars(ctx context.Context, userID string, amount int64) (CreditBalance, error) {
	if amount <= 0 {
		return CreditBalance{}, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidAmount)
	}

	balance, err := uc.grant(ctx, userID, func(b CreditBalance) (int64, int64) {
		return b.SubscriptionStars + amount, b.PackageStars
	})
	if err != nil {
		return CreditBalance{}, err
	}

	uc.recordGrant(ctx, userID, amount, constants.TxTypeSubscriptionGrant,
		fmt.Sprintf("订阅发放: +%d 订阅星", amount))
	return balance, nil
}

// AddPackageStars 增发加油包星（叠加到现有加油包星上）
func (uc *AllocatorUseCase) AddPackageStars(ctx context.Context, userID string, amount int64) (CreditBalance, error) {
	if amount <= 0 {
		return CreditBalance{}, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidAmount)
	}

	balance, err := uc.grant(ctx, userID, func(b CreditBalance) (int64, int64) {
		return b.SubscriptionStars, b.PackageStars + amount
	})
	if err != nil {
		return CreditBalance{}, err
	}

	uc.recordGrant(ctx, userID, amount, constants.TxTypePackagePurchase,
		fmt.Sprintf("加油包购买: +%d 加油包星", amount))
	return balance, nil
}

// ResetSubscriptionStars 订阅星清零（计费周期结束时调用）
// 加油包星保持不变；返回被清零的订阅星数量
func (uc *AllocatorUseCase) ResetSubscriptionStars(ctx context.Context, userID string) (int64, CreditBalance, error) {
	ledger, err := uc.repo.GetCredit(ctx, userID)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("清零前读取积分失败: user_id=%s, err=%v", userID, err)
		return 0, CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeResetFailed)
	}
	// 账本行不存在：无星可清，不建行
	if ledger == nil {
		return 0, CreditBalance{}, nil
	}

	balance := ledger.Balance()
	expired := balance.SubscriptionStars
	if err := uc.repo.UpsertStars(ctx, userID, 0, balance.PackageStars); err != nil {
		uc.log.WithContext(ctx).Errorf("订阅星清零失败: user_id=%s, err=%v", userID, err)
		return 0, CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeResetFailed)
	}

	if expired > 0 {
		uc.recordGrant(ctx, userID, -expired, constants.TxTypeSubscriptionExpired,
			fmt.Sprintf("订阅过期: -%d 订阅星", expired))
		if uc.metrics != nil {
			uc.metrics.ExpiredStarsTotal.Add(float64(expired))
		}
	}

	uc.log.WithContext(ctx).Infof("订阅星清零: user_id=%s, expired=%d", userID, expired)
	return expired, CreditBalance{PackageStars: balance.PackageStars, TotalBalance: balance.PackageStars}, nil
}

// RenewSubscription 订阅续费：订阅星整体置为新周期额度（替换而非叠加），
// 上周期未用完的订阅星随之作废；加油包星保持不变
func (uc *AllocatorUseCase) RenewSubscription(ctx context.Context, userID string, monthlyStars int64) (CreditBalance, error) {
	if monthlyStars < 0 {
		return CreditBalance{}, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidAmount)
	}

	balance, err := uc.grant(ctx, userID, func(b CreditBalance) (int64, int64) {
		return monthlyStars, b.PackageStars
	})
	if err != nil {
		return CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeRenewFailed)
	}

	uc.recordGrant(ctx, userID, monthlyStars, constants.TxTypeSubscriptionRenewed,
		fmt.Sprintf("订阅续费: 订阅星置为 %d", monthlyStars))
	return balance, nil
}

// grant 读取当前规范化余额，套用 apply 计算新的两池值后覆盖写入
func (uc *AllocatorUseCase) grant(ctx context.Context, userID string, apply func(CreditBalance) (int64, int64)) (CreditBalance, error) {
	ledger, err := uc.repo.GetCredit(ctx, userID)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("发放前读取积分失败: user_id=%s, err=%v", userID, err)
		return CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeGrantFailed)
	}

	newSub, newPkg := apply(ledger.Balance())
	if err := uc.repo.UpsertStars(ctx, userID, newSub, newPkg); err != nil {
		uc.log.WithContext(ctx).Errorf("发放写入失败: user_id=%s, sub=%d, pkg=%d, err=%v", userID, newSub, newPkg, err)
		return CreditBalance{}, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeGrantFailed)
	}

	return CreditBalance{
		SubscriptionStars: newSub,
		PackageStars:      newPkg,
		TotalBalance:      newSub + newPkg,
	}, nil
}

// recordGrant 记录发放类流水并上报指标；流水失败只告警不回滚
func (uc *AllocatorUseCase) recordGrant(ctx context.Context, userID string, amount int64, txType, description string) {
	if uc.metrics != nil {
		uc.metrics.GrantTotal.WithLabelValues(txType).Inc()
		if amount > 0 {
			uc.metrics.GrantStarsTotal.WithLabelValues(txType).Add(float64(amount))
		}
	}

	tx := &CreditTransaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		Type:          txType,
		Description:   description,
	}
	if err := uc.txRepo.CreateTransaction(ctx, tx); err != nil {
		uc.log.WithContext(ctx).Warnf("发放流水落库失败: user_id=%s, type=%s, err=%v", userID, txType, err)
	}
}
