package data

import (
	"context"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/data/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

type creditTransactionRepo struct {
	data *Data
	log  *log.Helper
}

// NewCreditTransactionRepo 创建积分流水仓储
func NewCreditTransactionRepo(data *Data, logger log.Logger) biz.CreditTransactionRepo {
	return &creditTransactionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func (r *creditTransactionRepo) CreateTransaction(ctx context.Context, tx *biz.CreditTransaction) error {
	m := toTransactionModel(tx)
	return r.data.db.WithContext(ctx).Create(m).Error
}

// BatchCreateTransactions 批量落库（MQ 消费端使用）
func (r *creditTransactionRepo) BatchCreateTransactions(ctx context.Context, txs []*biz.CreditTransaction) error {
	if len(txs) == 0 {
		return nil
	}
	ms := make([]*model.CreditTransaction, 0, len(txs))
	for _, tx := range txs {
		ms = append(ms, toTransactionModel(tx))
	}
	return r.data.db.WithContext(ctx).CreateInBatches(ms, 100).Error
}

func (r *creditTransactionRepo) ListTransactions(ctx context.Context, userID string, page, pageSize int) ([]*biz.CreditTransaction, int64, error) {
	var models []model.CreditTransaction
	var total int64

	offset := (page - 1) * pageSize
	db := r.data.db.WithContext(ctx).Model(&model.CreditTransaction{}).Where("user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, 0, err
	}

	var txs []*biz.CreditTransaction
	for _, m := range models {
		txs = append(txs, &biz.CreditTransaction{
			TransactionID: m.TransactionID,
			UserID:        m.UserID,
			Amount:        m.Amount,
			Type:          m.Type,
			GenerationID:  m.GenerationID,
			Description:   m.Description,
			CreatedAt:     m.CreatedAt,
		})
	}
	return txs, total, nil
}

// GetMonthlySummary 按流水类型聚合某月的笔数与星数，month 格式 YYYY-MM
func (r *creditTransactionRepo) GetMonthlySummary(ctx context.Context, userID string, month string) ([]*biz.TypeSummary, error) {
	monthStart, err := time.ParseInLocation(constants.TimeFormatMonth, month, time.Local)
	if err != nil {
		return nil, err
	}
	nextMonthStart := monthStart.AddDate(0, 1, 0)

	var rows []struct {
		Type  string
		Count int64
		Stars int64
	}
	if err := r.data.db.WithContext(ctx).Model(&model.CreditTransaction{}).
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, monthStart, nextMonthStart).
		Select(
			"type",
			"COUNT(*) as count",
			"SUM(amount) as stars",
		).
		Group("type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]*biz.TypeSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, &biz.TypeSummary{
			Type:  row.Type,
			Count: row.Count,
			Stars: row.Stars,
		})
	}
	return summaries, nil
}

func toTransactionModel(tx *biz.CreditTransaction) *model.CreditTransaction {
	transactionID := tx.TransactionID
	if transactionID == "" {
		transactionID = uuid.New().String()
	}
	return &model.CreditTransaction{
		TransactionID: transactionID,
		UserID:        tx.UserID,
		Amount:        tx.Amount,
		Type:          tx.Type,
		GenerationID:  tx.GenerationID,
		Description:   tx.Description,
	}
}
