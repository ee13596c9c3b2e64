package model

import (
	"time"
)

// CreditTransaction 积分流水表（amount 有符号：发放为正，扣减为负）
type CreditTransaction struct {
	TransactionID string    `gorm:"primaryKey;type:varchar(36)"`
	UserID        string    `gorm:"index;type:varchar(36);not null"`
	Amount        int64     `gorm:"not null"`
	Type          string    `gorm:"type:varchar(32);not null;index"`
	GenerationID  string    `gorm:"type:varchar(64);index"`
	Description   string    `gorm:"type:varchar(255)"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index"`
}

// TableName 指定表名
func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
