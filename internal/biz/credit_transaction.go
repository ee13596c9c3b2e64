package biz

import (
	"context"
	"time"

	creditErrors "credit-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// CreditTransaction 积分流水领域对象
// Amount 为有符号数：发放为正，扣减/清零为负
type CreditTransaction struct {
	TransactionID string
	UserID        string
	Amount        int64
	Type          string
	GenerationID  string // 关联的生成任务ID（扣减/退还时填写）
	Description   string
	CreatedAt     time.Time
}

// TypeSummary 按流水类型聚合的统计结果
type TypeSummary struct {
	Type  string
	Count int64
	Stars int64
}

// CreditTransactionRepo 积分流水数据层接口
type CreditTransactionRepo interface {
	CreateTransaction(ctx context.Context, tx *CreditTransaction) error
	// BatchCreateTransactions 批量落库（MQ 消费端使用）
	BatchCreateTransactions(ctx context.Context, txs []*CreditTransaction) error
	// ListTransactions 按创建时间倒序分页查询
	ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*CreditTransaction, int64, error)
	// GetMonthlySummary 查询某月按类型聚合的流水统计，month 格式 YYYY-MM
	GetMonthlySummary(ctx context.Context, userID string, month string) ([]*TypeSummary, error)
}

// CreditTransactionUseCase 积分流水业务逻辑
type CreditTransactionUseCase struct {
	repo CreditTransactionRepo
	log  *log.Helper
}

// NewCreditTransactionUseCase 创建流水 UseCase
func NewCreditTransactionUseCase(repo CreditTransactionRepo, logger log.Logger) *CreditTransactionUseCase {
	return &CreditTransactionUseCase{
		repo: repo,
		log:  log.NewHelper(logger),
	}
}

// ListTransactions 分页查询用户流水
func (uc *CreditTransactionUseCase) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*CreditTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	txs, total, err := uc.repo.ListTransactions(ctx, userID, page, pageSize)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("查询积分流水失败: user_id=%s, err=%v", userID, err)
		return nil, 0, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeTransactionListFailed)
	}
	return txs, total, nil
}

// GetMonthlySummary 查询用户某月的流水统计
func (uc *CreditTransactionUseCase) GetMonthlySummary(ctx context.Context, userID string, month string) ([]*TypeSummary, error) {
	summaries, err := uc.repo.GetMonthlySummary(ctx, userID, month)
	if err != nil {
		uc.log.WithContext(ctx).Errorf("查询流水统计失败: user_id=%s, month=%s, err=%v", userID, month, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, creditErrors.ErrCodeTransactionListFailed)
	}
	return summaries, nil
}
