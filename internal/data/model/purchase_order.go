package model

import (
	"time"
)

// PurchaseOrder 购买订单表
type PurchaseOrder struct {
	OrderID   string    `gorm:"primaryKey;type:varchar(64)"`
	UserID    string    `gorm:"index;type:varchar(36);not null"`
	Kind      string    `gorm:"type:varchar(16);not null"` // package / subscription
	Stars     int64     `gorm:"not null"`
	PlanID    string    `gorm:"type:varchar(64)"`
	PaymentID string    `gorm:"type:varchar(64);index"`
	Status    string    `gorm:"type:varchar(16);not null;default:pending"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}
