package data

import (
	"fmt"
	"time"

	"credit-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	redsyncgoredis "github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/google/wire"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewDB,
	NewRedis,
	NewRedsync,
	NewRocketMQProducer,
	NewData,
	NewCreditRepo,
	NewCreditTransactionRepo,
	NewPurchaseOrderRepo,
	NewSubscriptionRepo,
	NewDeductEventPublisher,
	NewSweepLocker,
)

// Data 数据层结构体
type Data struct {
	db  *gorm.DB
	rdb *redis.Client
	mq  rocketmq.Producer // MQ 未启用时为 nil
}

// NewDB 创建数据库连接
func NewDB(c *conf.Bootstrap) (*gorm.DB, error) {
	if c.Data == nil || c.Data.Database == nil {
		return nil, fmt.Errorf("database config is nil")
	}
	db, err := gorm.Open(mysql.Open(c.Data.Database.Source), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewRedis 创建 Redis 连接
func NewRedis(c *conf.Bootstrap) (*redis.Client, error) {
	if c.Data == nil || c.Data.Redis == nil {
		return nil, fmt.Errorf("redis config is nil")
	}

	var readTimeout, writeTimeout time.Duration
	if c.Data.Redis.ReadTimeout != "" {
		readTimeout, _ = time.ParseDuration(c.Data.Redis.ReadTimeout)
	}
	if c.Data.Redis.WriteTimeout != "" {
		writeTimeout, _ = time.ParseDuration(c.Data.Redis.WriteTimeout)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Data.Redis.Addr,
		Password:     c.Data.Redis.Password,
		DB:           c.Data.Redis.Db,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// 测试连接
	if err := rdb.Ping(rdb.Context()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// NewRedsync 创建分布式锁客户端（订阅过期扫描单实例执行用）
func NewRedsync(rdb *redis.Client) *redsync.Redsync {
	pool := redsyncgoredis.NewPool(rdb)
	return redsync.New(pool)
}

// NewRocketMQProducer 创建 RocketMQ 生产者（扣减流水异步落库用）
// 未启用时返回 nil，扣减侧回退同步落库
func NewRocketMQProducer(c *conf.Bootstrap, logger log.Logger) (rocketmq.Producer, error) {
	logHelper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		logHelper.Info("rocketmq is disabled, deduct events will be written synchronously")
		return nil, nil
	}

	retryTimes := c.Data.Rocketmq.RetryTimes
	if retryTimes <= 0 {
		retryTimes = 2
	}
	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		producer.WithGroupName(c.Data.Rocketmq.GroupName),
		producer.WithRetry(retryTimes),
	)
	if err != nil {
		return nil, fmt.Errorf("create rocketmq producer failed: %w", err)
	}
	if err := p.Start(); err != nil {
		return nil, fmt.Errorf("start rocketmq producer failed: %w", err)
	}

	logHelper.Infof("rocketmq producer started: name_servers=%v, topic=%s",
		c.Data.Rocketmq.NameServers, c.Data.Rocketmq.Topic)
	return p, nil
}

// NewData 创建数据层实例
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, rdb *redis.Client, mq rocketmq.Producer) (*Data, func(), error) {
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
		if err := rdb.Close(); err != nil {
			log.NewHelper(logger).Errorf("failed to close redis: %v", err)
		}
		if mq != nil {
			if err := mq.Shutdown(); err != nil {
				log.NewHelper(logger).Errorf("failed to shutdown rocketmq producer: %v", err)
			}
		}
	}

	return &Data{
		db:  db,
		rdb: rdb,
		mq:  mq,
	}, cleanup, nil
}
