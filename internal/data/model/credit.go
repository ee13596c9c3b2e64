package model

import (
	"time"
)

// Credit 积分账本表
// subscription_stars / package_stars 为两池真值；
// amount 为历史合并余额列，老客户端仍在读，每次写入保持等于两池之和
type Credit struct {
	CreditID          string    `gorm:"primaryKey;type:varchar(36)"`
	UserID            string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	SubscriptionStars int64     `gorm:"not null;default:0"`
	PackageStars      int64     `gorm:"not null;default:0"`
	Amount            int64     `gorm:"not null;default:0"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Credit) TableName() string {
	return "credits"
}
