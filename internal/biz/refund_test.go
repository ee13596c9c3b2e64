package biz

import (
	"context"
	"testing"

	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRefundUseCaseForTest(repo *fakeCreditRepo, txRepo *fakeTransactionRepo) *RefundUseCase {
	return NewRefundUseCase(repo, txRepo, log.DefaultLogger)
}

// 退还统一进加油包星池
func TestRefundGoesToPackagePool(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 5, 10, 15)
	txRepo := newFakeTransactionRepo()
	uc := newRefundUseCaseForTest(repo, txRepo)

	balance, err := uc.Refund(context.Background(), "user-1", 7, "gen-failed-1")
	require.NoError(t, err)

	assert.Equal(t, int64(5), balance.SubscriptionStars)
	assert.Equal(t, int64(17), balance.PackageStars)

	row := repo.row("user-1")
	assert.Equal(t, row.sub+row.pkg, row.amount)
	assert.Equal(t, 1, txRepo.typeCount(constants.TxTypeRefund))
}

// 行不存在时先建零值行再退还
func TestRefundCreatesRowWhenAbsent(t *testing.T) {
	repo := newFakeCreditRepo()
	uc := newRefundUseCaseForTest(repo, newFakeTransactionRepo())

	balance, err := uc.Refund(context.Background(), "user-new", 3, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance.PackageStars)

	row := repo.row("user-new")
	require.NotNil(t, row)
	assert.Equal(t, int64(3), row.pkg)
}

// 历史合并余额行退还后完成列迁移
func TestRefundMigratesLegacyRow(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-legacy", 0, 0, 75)
	uc := newRefundUseCaseForTest(repo, newFakeTransactionRepo())

	balance, err := uc.Refund(context.Background(), "user-legacy", 5, "gen-1")
	require.NoError(t, err)
	assert.Equal(t, int64(80), balance.PackageStars)

	row := repo.row("user-legacy")
	assert.Equal(t, int64(80), row.pkg)
	assert.Equal(t, int64(80), row.amount)
}

func TestRefundRejectsNonPositiveAmount(t *testing.T) {
	repo := newFakeCreditRepo()
	uc := newRefundUseCaseForTest(repo, newFakeTransactionRepo())

	_, err := uc.Refund(context.Background(), "user-1", 0, "")
	require.Error(t, err)
	assert.Equal(t, 0, repo.casCalls)
}

// 持续冲突时重试耗尽返回错误
func TestRefundContentionExhausted(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 0, 10, 10)
	repo.alwaysConflict = true
	uc := newRefundUseCaseForTest(repo, newFakeTransactionRepo())

	_, err := uc.Refund(context.Background(), "user-1", 5, "gen-1")
	require.Error(t, err)
	assert.Equal(t, constants.MaxRefundAttempts, repo.casCalls)
}
