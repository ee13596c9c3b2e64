package biz

import (
	"context"
	"time"
)

// DeductEvent 扣减成功事件（通过 MQ 异步落流水）
type DeductEvent struct {
	TxID             string    `json:"tx_id"`
	UserID           string    `json:"user_id"`
	Amount           int64     `json:"amount"`
	FromSubscription int64     `json:"from_subscription"`
	FromPackage      int64     `json:"from_package"`
	GenerationID     string    `json:"generation_id"`
	DeductTime       time.Time `json:"deduct_time"`
}

// DeductEventPublisher 扣减事件发布接口
// MQ 未启用时 Enabled 返回 false，调用方回退为同步落库
type DeductEventPublisher interface {
	Enabled() bool
	PublishDeductEvent(ctx context.Context, event *DeductEvent) error
}
