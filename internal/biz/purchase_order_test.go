package biz

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*PurchaseOrder
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string]*PurchaseOrder)}
}

func (f *fakeOrderRepo) CreatePurchaseOrder(ctx context.Context, order *PurchaseOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[order.OrderID] = order
	return nil
}

func (f *fakeOrderRepo) GetPurchaseOrderByID(ctx context.Context, orderID string) (*PurchaseOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[orderID], nil
}

func (f *fakeOrderRepo) ConfirmWithIdempotency(ctx context.Context, orderID, paymentID string) (*PurchaseOrder, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return nil, false, errors.New("order not found")
	}
	if order.Status == constants.OrderStatusSuccess {
		return order, false, nil
	}
	order.Status = constants.OrderStatusSuccess
	order.PaymentID = paymentID
	return order, true, nil
}

func (f *fakeOrderRepo) UpdatePurchaseOrderStatus(ctx context.Context, orderID, paymentID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderID]
	if !ok {
		return errors.New("order not found")
	}
	order.Status = status
	order.PaymentID = paymentID
	return nil
}

func newOrderUseCaseForTest(orderRepo *fakeOrderRepo, creditRepo *fakeCreditRepo) *PurchaseOrderUseCase {
	allocator := NewAllocatorUseCase(creditRepo, newFakeTransactionRepo(), log.DefaultLogger)
	return NewPurchaseOrderUseCase(orderRepo, allocator, log.DefaultLogger)
}

func TestConfirmPackageOrderGrantsPackageStars(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	creditRepo := newFakeCreditRepo()
	creditRepo.seed("user-1", 10, 20, 30)
	uc := newOrderUseCaseForTest(orderRepo, creditRepo)

	order, err := uc.CreateOrder(context.Background(), "user-1", constants.OrderKindPackage, 100, "pack-100")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusPending, order.Status)

	confirmed, err := uc.ConfirmOrder(context.Background(), order.OrderID, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusSuccess, confirmed.Status)

	row := creditRepo.row("user-1")
	assert.Equal(t, int64(10), row.sub)
	assert.Equal(t, int64(120), row.pkg)
}

// 订阅订单确认后执行续费：订阅星替换为月度额度
func TestConfirmSubscriptionOrderRenews(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	creditRepo := newFakeCreditRepo()
	creditRepo.seed("user-1", 40, 100, 140)
	uc := newOrderUseCaseForTest(orderRepo, creditRepo)

	order, err := uc.CreateOrder(context.Background(), "user-1", constants.OrderKindSubscription, 500, "plan-pro")
	require.NoError(t, err)

	_, err = uc.ConfirmOrder(context.Background(), order.OrderID, "pay-1")
	require.NoError(t, err)

	row := creditRepo.row("user-1")
	assert.Equal(t, int64(500), row.sub)
	assert.Equal(t, int64(100), row.pkg)
}

// 重复回调不重复发放
func TestConfirmOrderIdempotent(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	creditRepo := newFakeCreditRepo()
	uc := newOrderUseCaseForTest(orderRepo, creditRepo)

	order, err := uc.CreateOrder(context.Background(), "user-1", constants.OrderKindPackage, 100, "")
	require.NoError(t, err)

	_, err = uc.ConfirmOrder(context.Background(), order.OrderID, "pay-1")
	require.NoError(t, err)
	_, err = uc.ConfirmOrder(context.Background(), order.OrderID, "pay-1")
	require.NoError(t, err)
	_, err = uc.ConfirmOrder(context.Background(), order.OrderID, "pay-2")
	require.NoError(t, err)

	row := creditRepo.row("user-1")
	assert.Equal(t, int64(100), row.pkg)
}

// 最长的 user_id（varchar(36)）生成的订单号也不能超出 order_id varchar(64)
func TestCreateOrderIDFitsColumn(t *testing.T) {
	uc := newOrderUseCaseForTest(newFakeOrderRepo(), newFakeCreditRepo())
	userID := strings.Repeat("a", 36)

	order, err := uc.CreateOrder(context.Background(), userID, constants.OrderKindPackage, 100, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(order.OrderID, constants.OrderIDPrefixPurchase+userID+"_"))
	assert.LessOrEqual(t, len(order.OrderID), 64)
}

// 发放失败时订单退回待支付，支付方重试回调会重新发放而不是被成功状态短路
func TestConfirmOrderGrantFailureRevertsToPending(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	creditRepo := newFakeCreditRepo()
	creditRepo.seed("user-1", 0, 20, 20)
	uc := newOrderUseCaseForTest(orderRepo, creditRepo)

	order, err := uc.CreateOrder(context.Background(), "user-1", constants.OrderKindPackage, 100, "")
	require.NoError(t, err)

	creditRepo.upsertErr = errors.New("connection reset")
	_, err = uc.ConfirmOrder(context.Background(), order.OrderID, "pay-1")
	require.Error(t, err)
	assert.Equal(t, constants.OrderStatusPending, orderRepo.orders[order.OrderID].Status)
	assert.Equal(t, int64(20), creditRepo.row("user-1").pkg)

	// 存储恢复后重试回调：完整走一遍确认加发放，且只发放一次
	creditRepo.upsertErr = nil
	confirmed, err := uc.ConfirmOrder(context.Background(), order.OrderID, "pay-1")
	require.NoError(t, err)
	assert.Equal(t, constants.OrderStatusSuccess, confirmed.Status)
	assert.Equal(t, int64(120), creditRepo.row("user-1").pkg)
}

func TestCreateOrderValidation(t *testing.T) {
	uc := newOrderUseCaseForTest(newFakeOrderRepo(), newFakeCreditRepo())

	_, err := uc.CreateOrder(context.Background(), "user-1", "bogus", 100, "")
	require.Error(t, err)
	_, err = uc.CreateOrder(context.Background(), "user-1", constants.OrderKindPackage, 0, "")
	require.Error(t, err)
}

func TestFailOrderDoesNotGrant(t *testing.T) {
	orderRepo := newFakeOrderRepo()
	creditRepo := newFakeCreditRepo()
	uc := newOrderUseCaseForTest(orderRepo, creditRepo)

	order, err := uc.CreateOrder(context.Background(), "user-1", constants.OrderKindPackage, 100, "")
	require.NoError(t, err)

	require.NoError(t, uc.FailOrder(context.Background(), order.OrderID, "pay-1"))
	assert.Equal(t, constants.OrderStatusFailed, orderRepo.orders[order.OrderID].Status)
	assert.Nil(t, creditRepo.row("user-1"))
}
