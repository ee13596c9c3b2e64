package data

import (
	"context"
	"encoding/json"
	"fmt"

	"credit-service/internal/biz"
	"credit-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

type deductEventPublisher struct {
	data  *Data
	topic string
	log   *log.Helper
}

// NewDeductEventPublisher 创建扣减事件发布器
func NewDeductEventPublisher(data *Data, c *conf.Bootstrap, logger log.Logger) biz.DeductEventPublisher {
	topic := ""
	if c.Data != nil && c.Data.Rocketmq != nil {
		topic = c.Data.Rocketmq.Topic
	}
	return &deductEventPublisher{
		data:  data,
		topic: topic,
		log:   log.NewHelper(logger),
	}
}

// Enabled 生产者已创建且 topic 配置有效时才认为可用
func (p *deductEventPublisher) Enabled() bool {
	return p.data.mq != nil && p.topic != ""
}

// PublishDeductEvent 同步发送扣减事件
// 发送失败上抛，由调用方回退同步落库
func (p *deductEventPublisher) PublishDeductEvent(ctx context.Context, event *biz.DeductEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal deduct event failed: %w", err)
	}

	msg := primitive.NewMessage(p.topic, msgBytes)
	msg.WithKeys([]string{event.TxID})

	if _, err := p.data.mq.SendSync(ctx, msg); err != nil {
		p.log.Errorf("Send RocketMQ failed: tx_id=%s, err=%v", event.TxID, err)
		return err
	}
	return nil
}
