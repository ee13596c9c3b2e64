package biz

import (
	"context"
	"sync"
	"time"
)

// fakeLedgerRow 内存账本行（存原始值，和数据库语义一致）
type fakeLedgerRow struct {
	sub    int64
	pkg    int64
	amount int64
}

// fakeCreditRepo 内存版 CreditRepo，按数据层的条件更新语义实现
type fakeCreditRepo struct {
	mu   sync.Mutex
	rows map[string]*fakeLedgerRow

	casCalls    int
	upsertCalls int

	getErr    error
	casErr    error
	upsertErr error
	// alwaysConflict 为 true 时条件更新永远不命中（模拟持续并发冲突）
	alwaysConflict bool
	// beforeCAS 在每次条件更新前执行（模拟并发写入者抢先修改）
	beforeCAS func()
}

func newFakeCreditRepo() *fakeCreditRepo {
	return &fakeCreditRepo{rows: make(map[string]*fakeLedgerRow)}
}

func (f *fakeCreditRepo) seed(userID string, sub, pkg, amount int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[userID] = &fakeLedgerRow{sub: sub, pkg: pkg, amount: amount}
}

func (f *fakeCreditRepo) row(userID string) *fakeLedgerRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.rows[userID]; ok {
		copied := *r
		return &copied
	}
	return nil
}

func (f *fakeCreditRepo) GetCredit(ctx context.Context, userID string) (*CreditLedger, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	return &CreditLedger{
		UserID:            userID,
		SubscriptionStars: r.sub,
		PackageStars:      r.pkg,
		LegacyAmount:      r.amount,
		UpdatedAt:         time.Now(),
	}, nil
}

func (f *fakeCreditRepo) GetCreditCached(ctx context.Context, userID string) (*CreditLedger, error) {
	return f.GetCredit(ctx, userID)
}

func (f *fakeCreditRepo) EnsureCredit(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[userID]; !ok {
		f.rows[userID] = &fakeLedgerRow{}
	}
	return nil
}

func (f *fakeCreditRepo) CompareAndSwapStars(ctx context.Context, userID string, oldSub, oldPkg, newSub, newPkg int64) (bool, error) {
	if f.beforeCAS != nil {
		f.beforeCAS()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casCalls++
	if f.casErr != nil {
		return false, f.casErr
	}
	if f.alwaysConflict {
		return false, nil
	}
	r, ok := f.rows[userID]
	if !ok || r.sub != oldSub || r.pkg != oldPkg {
		return false, nil
	}
	r.sub = newSub
	r.pkg = newPkg
	r.amount = newSub + newPkg
	return true, nil
}

func (f *fakeCreditRepo) UpsertStars(ctx context.Context, userID string, sub, pkg int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.rows[userID] = &fakeLedgerRow{sub: sub, pkg: pkg, amount: sub + pkg}
	return nil
}

// fakeTransactionRepo 内存版流水仓储
type fakeTransactionRepo struct {
	mu  sync.Mutex
	txs []*CreditTransaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{}
}

func (f *fakeTransactionRepo) CreateTransaction(ctx context.Context, tx *CreditTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, tx)
	return nil
}

func (f *fakeTransactionRepo) BatchCreateTransactions(ctx context.Context, txs []*CreditTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs = append(f.txs, txs...)
	return nil
}

func (f *fakeTransactionRepo) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*CreditTransaction, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []*CreditTransaction
	for _, tx := range f.txs {
		if tx.UserID == userID {
			result = append(result, tx)
		}
	}
	return result, int64(len(result)), nil
}

func (f *fakeTransactionRepo) GetMonthlySummary(ctx context.Context, userID string, month string) ([]*TypeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	byType := make(map[string]*TypeSummary)
	var order []string
	for _, tx := range f.txs {
		if tx.UserID != userID {
			continue
		}
		s, ok := byType[tx.Type]
		if !ok {
			s = &TypeSummary{Type: tx.Type}
			byType[tx.Type] = s
			order = append(order, tx.Type)
		}
		s.Count++
		s.Stars += tx.Amount
	}
	result := make([]*TypeSummary, 0, len(order))
	for _, t := range order {
		result = append(result, byType[t])
	}
	return result, nil
}

func (f *fakeTransactionRepo) typeCount(txType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, tx := range f.txs {
		if tx.Type == txType {
			count++
		}
	}
	return count
}

// fakePublisher 默认关闭的扣减事件发布器
type fakePublisher struct {
	enabled   bool
	published []*DeductEvent
	err       error
	mu        sync.Mutex
}

func (f *fakePublisher) Enabled() bool { return f.enabled }

func (f *fakePublisher) PublishDeductEvent(ctx context.Context, event *DeductEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
	return nil
}
