package service

import (
	"strconv"
	"time"

	"credit-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"
)

// CreditService 积分服务 HTTP 接口
type CreditService struct {
	uc  *biz.AccountUseCase
	log *log.Helper
}

// NewCreditService 创建积分服务
func NewCreditService(uc *biz.AccountUseCase, logger log.Logger) *CreditService {
	return &CreditService{
		uc:  uc,
		log: log.NewHelper(logger),
	}
}

// BalanceReply 余额响应
type BalanceReply struct {
	UserID            string `json:"user_id"`
	SubscriptionStars int64  `json:"subscription_stars"`
	PackageStars      int64  `json:"package_stars"`
	TotalBalance      int64  `json:"total_balance"`
}

// DeductRequest 扣减请求
type DeductRequest struct {
	Amount       int64  `json:"amount"`
	GenerationID string `json:"generation_id"`
}

// DeductReply 扣减响应
type DeductReply struct {
	UserID                   string `json:"user_id"`
	SubscriptionStars        int64  `json:"subscription_stars"`
	PackageStars             int64  `json:"package_stars"`
	TotalBalance             int64  `json:"total_balance"`
	DeductedFromSubscription int64  `json:"deducted_from_subscription"`
	DeductedFromPackage      int64  `json:"deducted_from_package"`
}

// GrantRequest 发放请求
type GrantRequest struct {
	Amount int64 `json:"amount"`
}

// RenewRequest 续费请求
type RenewRequest struct {
	MonthlyStars int64 `json:"monthly_stars"`
}

// RefundRequest 退还请求
type RefundRequest struct {
	Amount       int64  `json:"amount"`
	GenerationID string `json:"generation_id"`
}

// ResetReply 订阅星清零响应
type ResetReply struct {
	UserID       string `json:"user_id"`
	ExpiredStars int64  `json:"expired_stars"`
	PackageStars int64  `json:"package_stars"`
	TotalBalance int64  `json:"total_balance"`
}

// EnoughReply 余额是否足够响应
type EnoughReply struct {
	UserID string `json:"user_id"`
	Enough bool   `json:"enough"`
}

// TransactionItem 流水条目
type TransactionItem struct {
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Type          string    `json:"type"`
	GenerationID  string    `json:"generation_id,omitempty"`
	Description   string    `json:"description"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListTransactionsReply 流水列表响应
type ListTransactionsReply struct {
	UserID       string             `json:"user_id"`
	Total        int64              `json:"total"`
	Transactions []*TransactionItem `json:"transactions"`
}

// TypeSummaryItem 按类型聚合的流水统计
type TypeSummaryItem struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
	Stars int64  `json:"stars"`
}

// AccountReply 账户视图响应
type AccountReply struct {
	UserID         string             `json:"user_id"`
	Balance        *BalanceReply      `json:"balance"`
	MonthlySummary []*TypeSummaryItem `json:"monthly_summary"`
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	Stars  int64  `json:"stars"`
	PlanID string `json:"plan_id"`
}

// OrderReply 订单响应
type OrderReply struct {
	OrderID   string `json:"order_id"`
	UserID    string `json:"user_id"`
	Kind      string `json:"kind"`
	Stars     int64  `json:"stars"`
	PlanID    string `json:"plan_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Status    string `json:"status"`
}

// OrderCallbackRequest 订单支付回调请求
type OrderCallbackRequest struct {
	PaymentID string `json:"payment_id"`
}

// ActivateSubscriptionRequest 开通订阅请求
type ActivateSubscriptionRequest struct {
	UserID             string    `json:"user_id"`
	PlanID             string    `json:"plan_id"`
	StarsPerMonth      int64     `json:"stars_per_month"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}

// SubscriptionReply 订阅响应
type SubscriptionReply struct {
	SubscriptionID     string    `json:"subscription_id"`
	UserID             string    `json:"user_id"`
	PlanID             string    `json:"plan_id"`
	StarsPerMonth      int64     `json:"stars_per_month"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"current_period_start"`
	CurrentPeriodEnd   time.Time `json:"current_period_end"`
}

// RegisterRoutes 注册 HTTP 路由
func (s *CreditService) RegisterRoutes(srv *khttp.Server) {
	r := srv.Route("/v1")

	r.GET("/credits/{user_id}/balance", s.GetBalance)
	r.GET("/credits/{user_id}/enough", s.HasEnoughCredits)
	r.GET("/credits/{user_id}/account", s.GetAccount)
	r.GET("/credits/{user_id}/transactions", s.ListTransactions)
	r.POST("/credits/{user_id}/deduct", s.Deduct)
	r.POST("/credits/{user_id}/refund", s.Refund)
	r.POST("/credits/{user_id}/grant/subscription", s.AddSubscriptionStars)
	r.POST("/credits/{user_id}/grant/package", s.AddPackageStars)
	r.POST("/credits/{user_id}/reset", s.ResetSubscriptionStars)
	r.POST("/credits/{user_id}/renew", s.RenewSubscription)

	r.POST("/orders", s.CreateOrder)
	r.GET("/orders/{order_id}", s.GetOrder)
	r.POST("/orders/{order_id}/confirm", s.ConfirmOrder)
	r.POST("/orders/{order_id}/fail", s.FailOrder)

	r.POST("/subscriptions", s.ActivateSubscription)
	r.GET("/subscriptions/{user_id}", s.GetSubscription)
}

// GetBalance 查询余额
func (s *CreditService) GetBalance(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	balance, err := s.uc.GetBalance(ctx, userID)
	if err != nil {
		return err
	}
	return ctx.Result(200, toBalanceReply(userID, balance))
}

// HasEnoughCredits 余额是否足够（参考值）
func (s *CreditService) HasEnoughCredits(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	amount, err := strconv.ParseInt(ctx.Query().Get("amount"), 10, 64)
	if err != nil {
		amount = 0
	}
	enough, err := s.uc.HasEnoughCredits(ctx, userID, amount)
	if err != nil {
		return err
	}
	return ctx.Result(200, &EnoughReply{UserID: userID, Enough: enough})
}

// GetAccount 查询账户视图（余额 + 当月流水统计）
func (s *CreditService) GetAccount(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	account, err := s.uc.GetAccount(ctx, userID)
	if err != nil {
		return err
	}
	summary := make([]*TypeSummaryItem, 0, len(account.MonthlySummary))
	for _, item := range account.MonthlySummary {
		summary = append(summary, &TypeSummaryItem{Type: item.Type, Count: item.Count, Stars: item.Stars})
	}
	return ctx.Result(200, &AccountReply{
		UserID:         userID,
		Balance:        toBalanceReply(userID, account.Balance),
		MonthlySummary: summary,
	})
}

// ListTransactions 分页查询流水
func (s *CreditService) ListTransactions(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	page, _ := strconv.Atoi(ctx.Query().Get("page"))
	pageSize, _ := strconv.Atoi(ctx.Query().Get("page_size"))

	txs, total, err := s.uc.ListTransactions(ctx, userID, page, pageSize)
	if err != nil {
		return err
	}
	items := make([]*TransactionItem, 0, len(txs))
	for _, tx := range txs {
		items = append(items, &TransactionItem{
			TransactionID: tx.TransactionID,
			Amount:        tx.Amount,
			Type:          tx.Type,
			GenerationID:  tx.GenerationID,
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt,
		})
	}
	return ctx.Result(200, &ListTransactionsReply{UserID: userID, Total: total, Transactions: items})
}

// Deduct 扣减积分
func (s *CreditService) Deduct(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	var req DeductRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	result, err := s.uc.Deduct(ctx, userID, req.Amount, req.GenerationID)
	if err != nil {
		return err
	}
	return ctx.Result(200, &DeductReply{
		UserID:                   userID,
		SubscriptionStars:        result.SubscriptionStars,
		PackageStars:             result.PackageStars,
		TotalBalance:             result.TotalBalance,
		DeductedFromSubscription: result.DeductedFromSubscription,
		DeductedFromPackage:      result.DeductedFromPackage,
	})
}

// Refund 退还积分
func (s *CreditService) Refund(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	var req RefundRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	balance, err := s.uc.Refund(ctx, userID, req.Amount, req.GenerationID)
	if err != nil {
		return err
	}
	return ctx.Result(200, toBalanceReply(userID, balance))
}

// AddSubscriptionStars 增发订阅星
func (s *CreditService) AddSubscriptionStars(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	var req GrantRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	balance, err := s.uc.AddSubscriptionStars(ctx, userID, req.Amount)
	if err != nil {
		return err
	}
	return ctx.Result(200, toBalanceReply(userID, balance))
}

// AddPackageStars 增发加油包星
func (s *CreditService) AddPackageStars(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	var req GrantRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	balance, err := s.uc.AddPackageStars(ctx, userID, req.Amount)
	if err != nil {
		return err
	}
	return ctx.Result(200, toBalanceReply(userID, balance))
}

// ResetSubscriptionStars 订阅星清零
func (s *CreditService) ResetSubscriptionStars(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	expired, balance, err := s.uc.ResetSubscriptionStars(ctx, userID)
	if err != nil {
		return err
	}
	return ctx.Result(200, &ResetReply{
		UserID:       userID,
		ExpiredStars: expired,
		PackageStars: balance.PackageStars,
		TotalBalance: balance.TotalBalance,
	})
}

// RenewSubscription 订阅续费（订阅星整体替换为新额度）
func (s *CreditService) RenewSubscription(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	var req RenewRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	balance, err := s.uc.RenewSubscription(ctx, userID, req.MonthlyStars)
	if err != nil {
		return err
	}
	return ctx.Result(200, toBalanceReply(userID, balance))
}

// CreateOrder 创建购买订单
func (s *CreditService) CreateOrder(ctx khttp.Context) error {
	var req CreateOrderRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	order, err := s.uc.CreateOrder(ctx, req.UserID, req.Kind, req.Stars, req.PlanID)
	if err != nil {
		return err
	}
	return ctx.Result(200, toOrderReply(order))
}

// GetOrder 查询订单
func (s *CreditService) GetOrder(ctx khttp.Context) error {
	orderID := ctx.Vars().Get("order_id")
	order, err := s.uc.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	return ctx.Result(200, toOrderReply(order))
}

// ConfirmOrder 支付成功回调（幂等）
func (s *CreditService) ConfirmOrder(ctx khttp.Context) error {
	orderID := ctx.Vars().Get("order_id")
	var req OrderCallbackRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	order, err := s.uc.ConfirmOrder(ctx, orderID, req.PaymentID)
	if err != nil {
		return err
	}
	return ctx.Result(200, toOrderReply(order))
}

// FailOrder 支付失败回调
func (s *CreditService) FailOrder(ctx khttp.Context) error {
	orderID := ctx.Vars().Get("order_id")
	var req OrderCallbackRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	if err := s.uc.FailOrder(ctx, orderID, req.PaymentID); err != nil {
		return err
	}
	return ctx.Result(200, map[string]string{"order_id": orderID, "status": "failed"})
}

// ActivateSubscription 开通或续费订阅
func (s *CreditService) ActivateSubscription(ctx khttp.Context) error {
	var req ActivateSubscriptionRequest
	if err := ctx.Bind(&req); err != nil {
		return err
	}
	sub := &biz.Subscription{
		UserID:             req.UserID,
		PlanID:             req.PlanID,
		StarsPerMonth:      req.StarsPerMonth,
		CurrentPeriodStart: req.CurrentPeriodStart,
		CurrentPeriodEnd:   req.CurrentPeriodEnd,
	}
	if err := s.uc.ActivateSubscription(ctx, sub); err != nil {
		return err
	}
	return ctx.Result(200, toSubscriptionReply(sub))
}

// GetSubscription 查询用户当前订阅
func (s *CreditService) GetSubscription(ctx khttp.Context) error {
	userID := ctx.Vars().Get("user_id")
	sub, err := s.uc.GetSubscription(ctx, userID)
	if err != nil {
		return err
	}
	if sub == nil {
		return ctx.Result(200, &SubscriptionReply{UserID: userID})
	}
	return ctx.Result(200, toSubscriptionReply(sub))
}

func toBalanceReply(userID string, balance biz.CreditBalance) *BalanceReply {
	return &BalanceReply{
		UserID:            userID,
		SubscriptionStars: balance.SubscriptionStars,
		PackageStars:      balance.PackageStars,
		TotalBalance:      balance.TotalBalance,
	}
}

func toOrderReply(order *biz.PurchaseOrder) *OrderReply {
	return &OrderReply{
		OrderID:   order.OrderID,
		UserID:    order.UserID,
		Kind:      order.Kind,
		Stars:     order.Stars,
		PlanID:    order.PlanID,
		PaymentID: order.PaymentID,
		Status:    order.Status,
	}
}

func toSubscriptionReply(sub *biz.Subscription) *SubscriptionReply {
	return &SubscriptionReply{
		SubscriptionID:     sub.SubscriptionID,
		UserID:             sub.UserID,
		PlanID:             sub.PlanID,
		StarsPerMonth:      sub.StarsPerMonth,
		Status:             sub.Status,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
	}
}
