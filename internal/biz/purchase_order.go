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
)

// PurchaseOrder 购买订单领域对象
// 订单只是发放的载体：支付结果由外部计费系统回调告知，
// 本服务负责把确认后的订单幂等地转化为积分发放
type PurchaseOrder struct {
	OrderID   string
	UserID    string
	Kind      string // package: 加油包；subscription: 订阅
	Stars     int64  // 加油包订单为增发数量，订阅订单为月度额度
	PlanID    string
	PaymentID string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PurchaseOrderRepo 购买订单数据层接口
type PurchaseOrderRepo interface {
	CreatePurchaseOrder(ctx context.Context, order *PurchaseOrder) error
	GetPurchaseOrderByID(ctx context.Context, orderID string) (*PurchaseOrder, error)
	// ConfirmWithIdempotency 在事务内锁定订单行并置为成功；
	// 订单已是成功状态时返回 (order, false, nil)，不重复确认
	ConfirmWithIdempotency(ctx context.Context, orderID, paymentID string) (*PurchaseOrder, bool, error)
	UpdatePurchaseOrderStatus(ctx context.Context, orderID, paymentID, status string) error
}

// PurchaseOrderUseCase 购买订单业务逻辑
type PurchaseOrderUseCase struct {
	repo      PurchaseOrderRepo
	allocator *AllocatorUseCase
	log       *log.Helper
	metrics   *metrics.CreditMetrics
}

// NewPurchaseOrderUseCase 创建订单 UseCase
func NewPurchaseOrderUseCase(repo PurchaseOrderRepo, allocator *AllocatorUseCase, logger log.Logger) *PurchaseOrderUseCase {
	return &PurchaseOrderUseCase{
		repo:      repo,
		allocator: allocator,
		log:       log.NewHelper(logger),
		metrics:   metrics.GetMetrics(),
	}
}

// CreateOrder 创建待支付订单
func (uc *PurchaseOrderUseCase) CreateOrder(ctx context.Context, userID, kind string, stars int64, planID string) (*PurchaseOrder, error) {
	if kind != constants.OrderKindPackage && kind != constants.OrderKindSubscription {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeOrderCreateFailed)
	}
	if stars <= 0 {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeInvalidAmount)
	}

	// 秒级时间戳：前缀 9 + user_id 最长 36 + 下划线 1 + 10 位时间戳 = 56，
	// 不会超出 order_id varchar(64)
	order := &PurchaseOrder{
		OrderID: fmt.Sprintf("%s%s_%d", constants.OrderIDPrefixPurchase, userID, time.Now().Unix()),
		UserID:  userID,
		Kind:    kind,
		Stars:   stars,
		PlanID:  planID,
		Status:  constants.OrderStatusPending,
	}
	if err := uc.repo.CreatePurchaseOrder(ctx, order); err != nil {
		uc.log.WithContext(ctx).Errorf("创建订单失败: user_id=%s, kind=%s, err=%v", userID, kind, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeOrderCreateFailed)
	}

	uc.metrics.OrderTotal.WithLabelValues(constants.OrderStatusPending).Inc()
	uc.log.WithContext(ctx).Infof("创建订单: order_id=%s, user_id=%s, kind=%s, stars=%d", order.OrderID, userID, kind, stars)
	return order, nil
}

// ConfirmOrder 支付成功回调：幂等确认订单并发放积分
// 加油包订单增发加油包星；订阅订单按月度额度执行续费（订阅星整体替换）。
// 重复回调只确认一次，不重复发放；
// 发放失败时把订单退回待支付状态，支付方重试回调会重新走完整的确认加发放
func (uc *PurchaseOrderUseCase) ConfirmOrder(ctx context.Context, orderID, paymentID string) (*PurchaseOrder, error) {
	order, confirmed, err := uc.repo.ConfirmWithIdempotency(ctx, orderID, paymentID)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("确认订单失败: order_id=%s, err=%v", orderID, err)
		return nil, err
	}
	if !confirmed {
		uc.log.WithContext(ctx).Infof("订单已确认，跳过重复发放: order_id=%s", orderID)
		return order, nil
	}

	switch order.Kind {
	case constants.OrderKindSubscription:
		_, err = uc.allocator.RenewSubscription(ctx, order.UserID, order.Stars)
	default:
		_, err = uc.allocator.AddPackageStars(ctx, order.UserID, order.Stars)
	}
	if err != nil {
		uc.log.WithContext(ctx).Errorf("订单发放失败，退回待支付等待重试: order_id=%s, user_id=%s, kind=%s, err=%v",
			order.OrderID, order.UserID, order.Kind, err)
		// 退回 pending 后重复回调不会命中成功状态短路，发放会被重新执行；
		// 退回本身失败才需要人工补发
		if revertErr := uc.repo.UpdatePurchaseOrderStatus(ctx, orderID, paymentID, constants.OrderStatusPending); revertErr != nil {
			uc.log.WithContext(ctx).Errorf("订单状态退回失败，需人工补发: order_id=%s, err=%v", orderID, revertErr)
		}
		return nil, err
	}

	uc.metrics.OrderTotal.WithLabelValues(constants.OrderStatusSuccess).Inc()
	uc.metrics.OrderConfirmedTotal.WithLabelValues(order.Kind).Inc()
	uc.log.WithContext(ctx).Infof("订单确认并发放完成: order_id=%s, user_id=%s, kind=%s, stars=%d",
		order.OrderID, order.UserID, order.Kind, order.Stars)
	return order, nil
}

// FailOrder 支付失败回调：订单置为失败，不发放
func (uc *PurchaseOrderUseCase) FailOrder(ctx context.Context, orderID, paymentID string) error {
	if err := uc.repo.UpdatePurchaseOrderStatus(ctx, orderID, paymentID, constants.OrderStatusFailed); err != nil {
		uc.log.WithContext(ctx).Errorf("订单置失败状态出错: order_id=%s, err=%v", orderID, err)
		return pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeOrderUpdateFailed)
	}
	uc.metrics.OrderTotal.WithLabelValues(constants.OrderStatusFailed).Inc()
	return nil
}

// GetOrder 查询订单
func (uc *PurchaseOrderUseCase) GetOrder(ctx context.Context, orderID string) (*PurchaseOrder, error) {
	order, err := uc.repo.GetPurchaseOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeOrderGetFailed)
	}
	if order == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, creditErrors.ErrCodeOrderNotFound)
	}
	return order, nil
}
