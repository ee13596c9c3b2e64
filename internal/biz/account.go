package biz

import (
	"context"
	"time"

	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// CreditAccount 账户视图：余额 + 当月流水统计
type CreditAccount struct {
	Balance        CreditBalance
	MonthlySummary []*TypeSummary
}

// AccountUseCase 对外服务层的聚合门面
// 各子 UseCase 只做一件事，HTTP 服务统一经由这里进入
type AccountUseCase struct {
	balance   *BalanceUseCase
	deduct    *DeductUseCase
	allocator *AllocatorUseCase
	refund    *RefundUseCase
	tx        *CreditTransactionUseCase
	order     *PurchaseOrderUseCase
	sub       *SubscriptionUseCase
	log       *log.Helper
}

// NewAccountUseCase 创建账户聚合 UseCase
func NewAccountUseCase(
	balance *BalanceUseCase,
	deduct *DeductUseCase,
	allocator *AllocatorUseCase,
	refund *RefundUseCase,
	tx *CreditTransactionUseCase,
	order *PurchaseOrderUseCase,
	sub *SubscriptionUseCase,
	logger log.Logger,
) *AccountUseCase {
	return &AccountUseCase{
		balance:   balance,
		deduct:    deduct,
		allocator: allocator,
		refund:    refund,
		tx:        tx,
		order:     order,
		sub:       sub,
		log:       log.NewHelper(logger),
	}
}

// GetBalance 查询余额
func (uc *AccountUseCase) GetBalance(ctx context.Context, userID string) (CreditBalance, error) {
	return uc.balance.GetBalance(ctx, userID)
}

// HasEnoughCredits 余额是否足够（参考值）
func (uc *AccountUseCase) HasEnoughCredits(ctx context.Context, userID string, amount int64) (bool, error) {
	return uc.balance.HasEnoughCredits(ctx, userID, amount)
}

// GetAccount 查询账户视图（余额 + 当月流水统计）
func (uc *AccountUseCase) GetAccount(ctx context.Context, userID string) (*CreditAccount, error) {
	balance, err := uc.balance.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary, err := uc.tx.GetMonthlySummary(ctx, userID, time.Now().Format(constants.TimeFormatMonth))
	if err != nil {
		return nil, err
	}
	return &CreditAccount{Balance: balance, MonthlySummary: summary}, nil
}

// Deduct 扣减积分
func (uc *AccountUseCase) Deduct(ctx context.Context, userID string, amount int64, generationID string) (*DeductResult, error) {
	return uc.deduct.Deduct(ctx, userID, amount, generationID)
}

// Refund 退还积分
func (uc *AccountUseCase) Refund(ctx context.Context, userID string, amount int64, generationID string) (CreditBalance, error) {
	return uc.refund.Refund(ctx, userID, amount, generationID)
}

// AddSubscriptionStars 增发订阅星
func (uc *AccountUseCase) AddSubscriptionStars(ctx context.Context, userID string, amount int64) (CreditBalance, error) {
	return uc.allocator.AddSubscriptionStars(ctx, userID, amount)
}

// AddPackageStars 增发加油包星
func (uc *AccountUseCase) AddPackageStars(ctx context.Context, userID string, amount int64) (CreditBalance, error) {
	return uc.allocator.AddPackageStars(ctx, userID, amount)
}

// ResetSubscriptionStars 订阅星清零
func (uc *AccountUseCase) ResetSubscriptionStars(ctx context.Context, userID string) (int64, CreditBalance, error) {
	return uc.allocator.ResetSubscriptionStars(ctx, userID)
}

// RenewSubscription 订阅续费
func (uc *AccountUseCase) RenewSubscription(ctx context.Context, userID string, monthlyStars int64) (CreditBalance, error) {
	return uc.allocator.RenewSubscription(ctx, userID, monthlyStars)
}

// ListTransactions 分页查询流水
func (uc *AccountUseCase) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*CreditTransaction, int64, error) {
	return uc.tx.ListTransactions(ctx, userID, page, pageSize)
}

// CreateOrder 创建购买订单
func (uc *AccountUseCase) CreateOrder(ctx context.Context, userID, kind string, stars int64, planID string) (*PurchaseOrder, error) {
	return uc.order.CreateOrder(ctx, userID, kind, stars, planID)
}

// ConfirmOrder 确认订单并发放
func (uc *AccountUseCase) ConfirmOrder(ctx context.Context, orderID, paymentID string) (*PurchaseOrder, error) {
	return uc.order.ConfirmOrder(ctx, orderID, paymentID)
}

// FailOrder 订单置失败
func (uc *AccountUseCase) FailOrder(ctx context.Context, orderID, paymentID string) error {
	return uc.order.FailOrder(ctx, orderID, paymentID)
}

// GetOrder 查询订单
func (uc *AccountUseCase) GetOrder(ctx context.Context, orderID string) (*PurchaseOrder, error) {
	return uc.order.GetOrder(ctx, orderID)
}

// ActivateSubscription 开通或续费订阅
func (uc *AccountUseCase) ActivateSubscription(ctx context.Context, sub *Subscription) error {
	return uc.sub.ActivateSubscription(ctx, sub)
}

// GetSubscription 查询订阅
func (uc *AccountUseCase) GetSubscription(ctx context.Context, userID string) (*Subscription, error) {
	return uc.sub.GetSubscription(ctx, userID)
}
