package server

import (
	"context"
	"encoding/json"

	"credit-service/internal/biz"
	"credit-service/internal/conf"
	"credit-service/internal/constants"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 消费扣减事件，批量写入积分流水表
type MQConsumerServer struct {
	c       rocketmq.PushConsumer
	txRepo  biz.CreditTransactionRepo
	conf    *conf.Data
	log     *log.Helper
	enabled bool
}

// NewMQConsumerServer 创建扣减事件消费者
func NewMQConsumerServer(c *conf.Bootstrap, txRepo biz.CreditTransactionRepo, logger log.Logger) *MQConsumerServer {
	logHelper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{enabled: false, log: logHelper}
	}

	retryTimes := c.Data.Rocketmq.RetryTimes
	if retryTimes <= 0 {
		retryTimes = 2
	}
	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Data.Rocketmq.GroupName),
		consumer.WithRetry(retryTimes),
		consumer.WithConsumeMessageBatchMaxSize(100),
	)
	if err != nil {
		logHelper.Errorf("init consumer error: %v", err)
		return &MQConsumerServer{enabled: false, log: logHelper}
	}

	return &MQConsumerServer{
		c:       r,
		txRepo:  txRepo,
		conf:    c.Data,
		log:     logHelper,
		enabled: true,
	}
}

// Start 启动消费者
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", s.conf.Rocketmq.Topic)

	err := s.c.Subscribe(s.conf.Rocketmq.Topic, consumer.MessageSelector{}, s.handler)
	if err != nil {
		// 不返回错误，避免 MQ 不可用时拖垮整个应用启动
		s.log.Errorf("Failed to subscribe to topic %s: %v", s.conf.Rocketmq.Topic, err)
		return nil
	}

	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}

	return nil
}

// Stop 停止消费者
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	if len(msgs) == 0 {
		return consumer.ConsumeSuccess, nil
	}

	var txs []*biz.CreditTransaction
	for _, msg := range msgs {
		var event biz.DeductEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			// 坏消息跳过，重试也救不回来
			s.log.Errorf("Unmarshal message failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		txs = append(txs, &biz.CreditTransaction{
			TransactionID: event.TxID,
			UserID:        event.UserID,
			Amount:        -event.Amount,
			Type:          constants.TxTypeDeduct,
			GenerationID:  event.GenerationID,
			Description:   deductDescription(&event),
		})
	}

	if len(txs) > 0 {
		if err := s.txRepo.BatchCreateTransactions(ctx, txs); err != nil {
			s.log.Errorf("BatchCreateTransactions failed: %v", err)
			return consumer.ConsumeRetryLater, nil
		}
	}
	return consumer.ConsumeSuccess, nil
}

func deductDescription(event *biz.DeductEvent) string {
	data, _ := json.Marshal(map[string]int64{
		"from_subscription": event.FromSubscription,
		"from_package":      event.FromPackage,
	})
	return "生成扣减: " + string(data)
}
