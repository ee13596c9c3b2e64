package biz

import (
	"context"
	"errors"
	"sync"
	"testing"

	"credit-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeductUseCaseForTest(repo *fakeCreditRepo, txRepo *fakeTransactionRepo, pub *fakePublisher) *DeductUseCase {
	return NewDeductUseCase(repo, txRepo, pub, log.DefaultLogger)
}

// 扣减优先消耗订阅星，订阅星不够的部分再扣加油包星
func TestDeductPrefersSubscriptionPool(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 5, 10, 15)
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	result, err := uc.Deduct(context.Background(), "user-1", 7, "gen-1")
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.DeductedFromSubscription)
	assert.Equal(t, int64(2), result.DeductedFromPackage)
	assert.Equal(t, int64(0), result.SubscriptionStars)
	assert.Equal(t, int64(8), result.PackageStars)
	assert.Equal(t, int64(8), result.TotalBalance)

	row := repo.row("user-1")
	assert.Equal(t, int64(0), row.sub)
	assert.Equal(t, int64(8), row.pkg)
	// 合并列镜像与两池之和一致
	assert.Equal(t, row.sub+row.pkg, row.amount)
	// 成功扣减恰好一次写入
	assert.Equal(t, 1, repo.casCalls)
}

// 订阅星足够时完全不动加油包星
func TestDeductSubscriptionOnly(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 100, 40, 140)
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	result, err := uc.Deduct(context.Background(), "user-1", 30, "gen-1")
	require.NoError(t, err)

	assert.Equal(t, int64(30), result.DeductedFromSubscription)
	assert.Equal(t, int64(0), result.DeductedFromPackage)
	assert.Equal(t, int64(70), result.SubscriptionStars)
	assert.Equal(t, int64(40), result.PackageStars)
}

// 零扣减是合法空操作，不产生任何写入
func TestDeductZeroAmountIsNoop(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 5, 10, 15)
	txRepo := newFakeTransactionRepo()
	uc := newDeductUseCaseForTest(repo, txRepo, &fakePublisher{})

	result, err := uc.Deduct(context.Background(), "user-1", 0, "")
	require.NoError(t, err)

	assert.Equal(t, int64(15), result.TotalBalance)
	assert.Equal(t, int64(0), result.DeductedFromSubscription)
	assert.Equal(t, int64(0), result.DeductedFromPackage)
	assert.Equal(t, 0, repo.casCalls)
	assert.Equal(t, 0, repo.upsertCalls)
	assert.Empty(t, txRepo.txs)
}

// 负数扣减直接拒绝
func TestDeductNegativeAmountRejected(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 5, 10, 15)
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	_, err := uc.Deduct(context.Background(), "user-1", -1, "")
	require.Error(t, err)
	assert.Equal(t, 0, repo.casCalls)
}

// 总余额恰好差一星也要拒绝，且不做任何写入、不重试
func TestDeductInsufficientIsExactAndFinal(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 3, 2, 5)
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	_, err := uc.Deduct(context.Background(), "user-1", 6, "gen-1")
	require.Error(t, err)

	// 余额不足不算冲突：没有条件更新，也没有重试
	assert.Equal(t, 0, repo.casCalls)
	row := repo.row("user-1")
	assert.Equal(t, int64(3), row.sub)
	assert.Equal(t, int64(2), row.pkg)

	// 恰好等于余额则允许
	result, err := uc.Deduct(context.Background(), "user-1", 5, "gen-2")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalBalance)
}

// 账本行不存在时按零余额处理
func TestDeductMissingRowInsufficient(t *testing.T) {
	repo := newFakeCreditRepo()
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	_, err := uc.Deduct(context.Background(), "user-unknown", 5, "")
	require.Error(t, err)
	assert.Equal(t, 0, repo.casCalls)
	assert.Nil(t, repo.row("user-unknown"))
}

// 历史合并余额行：首次扣减按加油包星处理并完成列迁移
func TestDeductLegacyRowMigratesOnFirstWrite(t *testing.T) {
	repo := newFakeCreditRepo()
	// 只有合并列有值的老行
	repo.seed("user-legacy", 0, 0, 75)
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	result, err := uc.Deduct(context.Background(), "user-legacy", 30, "gen-1")
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.DeductedFromSubscription)
	assert.Equal(t, int64(30), result.DeductedFromPackage)
	assert.Equal(t, int64(45), result.PackageStars)

	row := repo.row("user-legacy")
	assert.Equal(t, int64(0), row.sub)
	assert.Equal(t, int64(45), row.pkg)
	assert.Equal(t, int64(45), row.amount)
}

// N 个并发的单星扣减恰好把 N 星扣到 0，不多不少
func TestDeductConcurrentExactlyDrains(t *testing.T) {
	// 每次条件更新失败都意味着另一个写入者成功了一次，
	// n 小于重试上限时每个写入者都必然在限内成功
	const n = 8
	repo := newFakeCreditRepo()
	repo.seed("user-1", 0, n, n)
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.Deduct(context.Background(), "user-1", 1, "gen")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, n, succeeded)

	row := repo.row("user-1")
	assert.Equal(t, int64(0), row.sub)
	assert.Equal(t, int64(0), row.pkg)
	assert.Equal(t, int64(0), row.amount)
}

// 持续冲突时重试 10 次后放弃，且不产生写入
func TestDeductContentionExhausted(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 0, 100, 100)
	repo.alwaysConflict = true
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	_, err := uc.Deduct(context.Background(), "user-1", 1, "")
	require.Error(t, err)

	assert.Equal(t, constants.MaxDeductAttempts, repo.casCalls)
	row := repo.row("user-1")
	assert.Equal(t, int64(100), row.pkg)
}

// 并发写入者抢先一步时重读重试后成功
func TestDeductRetriesAfterConflict(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 10, 0, 10)

	// 第一次条件更新前模拟别人先扣了 3 星
	fired := false
	repo.beforeCAS = func() {
		if !fired {
			fired = true
			repo.seed("user-1", 7, 0, 7)
		}
	}
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	result, err := uc.Deduct(context.Background(), "user-1", 2, "")
	require.NoError(t, err)

	assert.Equal(t, int64(5), result.SubscriptionStars)
	assert.Equal(t, 2, repo.casCalls)
}

// 条件更新报错按存储错误上抛，不当作冲突重试
func TestDeductStoreErrorNotRetried(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 0, 10, 10)
	repo.casErr = errors.New("connection reset")
	uc := newDeductUseCaseForTest(repo, newFakeTransactionRepo(), &fakePublisher{})

	_, err := uc.Deduct(context.Background(), "user-1", 1, "")
	require.Error(t, err)
	assert.Equal(t, 1, repo.casCalls)
}

// MQ 关闭时扣减流水同步落库
func TestDeductRecordsTransactionSynchronously(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 5, 5, 10)
	txRepo := newFakeTransactionRepo()
	uc := newDeductUseCaseForTest(repo, txRepo, &fakePublisher{})

	_, err := uc.Deduct(context.Background(), "user-1", 6, "gen-9")
	require.NoError(t, err)

	require.Len(t, txRepo.txs, 1)
	tx := txRepo.txs[0]
	assert.Equal(t, int64(-6), tx.Amount)
	assert.Equal(t, constants.TxTypeDeduct, tx.Type)
	assert.Equal(t, "gen-9", tx.GenerationID)
}

// MQ 启用时流水走事件发布，不直接写库
func TestDeductPublishesEventWhenEnabled(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 5, 5, 10)
	txRepo := newFakeTransactionRepo()
	pub := &fakePublisher{enabled: true}
	uc := newDeductUseCaseForTest(repo, txRepo, pub)

	_, err := uc.Deduct(context.Background(), "user-1", 4, "gen-7")
	require.NoError(t, err)

	require.Len(t, pub.published, 1)
	event := pub.published[0]
	assert.Equal(t, int64(4), event.Amount)
	assert.Equal(t, int64(4), event.FromSubscription)
	assert.Equal(t, "gen-7", event.GenerationID)
	assert.Empty(t, txRepo.txs)
}

// MQ 发送失败时回退同步落库
func TestDeductFallsBackWhenPublishFails(t *testing.T) {
	repo := newFakeCreditRepo()
	repo.seed("user-1", 5, 5, 10)
	txRepo := newFakeTransactionRepo()
	pub := &fakePublisher{enabled: true, err: errors.New("broker unavailable")}
	uc := newDeductUseCaseForTest(repo, txRepo, pub)

	_, err := uc.Deduct(context.Background(), "user-1", 4, "gen-8")
	require.NoError(t, err)
	require.Len(t, txRepo.txs, 1)
	assert.Equal(t, int64(-4), txRepo.txs[0].Amount)
}
