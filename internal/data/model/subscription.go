package model

import (
	"time"
)

// Subscription 订阅表（一个用户同一时刻至多一条生效订阅）
type Subscription struct {
	SubscriptionID     string    `gorm:"primaryKey;type:varchar(36)"`
	UserID             string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	PlanID             string    `gorm:"type:varchar(64);not null"`
	StarsPerMonth      int64     `gorm:"not null"`
	Status             string    `gorm:"type:varchar(16);not null;default:active;index:idx_status_period_end"`
	CurrentPeriodStart time.Time `gorm:"not null"`
	CurrentPeriodEnd   time.Time `gorm:"not null;index:idx_status_period_end"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Subscription) TableName() string {
	return "subscriptions"
}
