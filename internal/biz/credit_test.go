package biz

import (
	"context"
	"testing"

	"credit-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBalanceUseCaseForTest(repo *fakeCreditRepo) *BalanceUseCase {
	return NewBalanceUseCase(repo, &CreditConfig{LowBalanceThreshold: 10}, log.DefaultLogger)
}

func TestLedgerBalanceNormalization(t *testing.T) {
	// 正常拆分行
	l := &CreditLedger{SubscriptionStars: 5, PackageStars: 10, LegacyAmount: 15}
	b := l.Balance()
	assert.Equal(t, int64(5), b.SubscriptionStars)
	assert.Equal(t, int64(10), b.PackageStars)
	assert.Equal(t, int64(15), b.TotalBalance)

	// 历史合并余额行：整体视为加油包星
	l = &CreditLedger{SubscriptionStars: 0, PackageStars: 0, LegacyAmount: 75}
	b = l.Balance()
	assert.Equal(t, int64(0), b.SubscriptionStars)
	assert.Equal(t, int64(75), b.PackageStars)
	assert.Equal(t, int64(75), b.TotalBalance)

	// 任一拆分列非零则合并列不参与计算
	l = &CreditLedger{SubscriptionStars: 0, PackageStars: 3, LegacyAmount: 75}
	b = l.Balance()
	assert.Equal(t, int64(3), b.TotalBalance)

	// nil 行按零余额处理
	var nilLedger *CreditLedger
	assert.Equal(t, CreditBalance{}, nilLedger.Balance())
}

func TestGetBalanceMissingRowIsZero(t *testing.T) {
	repo := newFakeCreditRepo()
	uc := newBalanceUseCaseForTest(repo)

	balance, err := uc.GetBalance(context.Background(), "user-ghost")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.TotalBalance)
	// 读取不建行
	assert.Nil(t, repo.row("user-ghost"))
}

func TestGetBalanceLegacyFallback(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-legacy", 0, 0, 75)
	uc := newBalanceUseCaseForTest(repo)

	balance, err := uc.GetBalance(context.Background(), "user-legacy")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.SubscriptionStars)
	assert.Equal(t, int64(75), balance.PackageStars)
	assert.Equal(t, int64(75), balance.TotalBalance)

	// 读取是纯只读路径，不迁移存量行
	row := repo.row("user-legacy")
	assert.Equal(t, int64(0), row.pkg)
	assert.Equal(t, int64(75), row.amount)
}

// 低余额按查询结果累加计数，不随最近一次查询的用户来回翻转
func TestGetBalanceLowBalanceCounted(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-poor", 0, 3, 3)
	repo.seed("user-rich", 100, 100, 200)
	uc := newBalanceUseCaseForTest(repo)

	before := testutil.ToFloat64(metrics.GetMetrics().BalanceLowTotal)

	_, err := uc.GetBalance(context.Background(), "user-poor")
	require.NoError(t, err)
	_, err = uc.GetBalance(context.Background(), "user-rich")
	require.NoError(t, err)
	_, err = uc.GetBalance(context.Background(), "user-poor")
	require.NoError(t, err)

	after := testutil.ToFloat64(metrics.GetMetrics().BalanceLowTotal)
	assert.Equal(t, float64(2), after-before)
}

func TestHasEnoughCreditsBoundary(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 2, 1, 3)
	uc := newBalanceUseCaseForTest(repo)

	enough, err := uc.HasEnoughCredits(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.True(t, enough)

	enough, err = uc.HasEnoughCredits(context.Background(), "user-1", 4)
	require.NoError(t, err)
	assert.False(t, enough)
}
