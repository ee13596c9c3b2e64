package data

import (
	"context"
	"time"

	"credit-service/internal/biz"
	"credit-service/internal/constants"
	"credit-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// 过期扫描锁的持有时长（扫描批量处理，给足余量）
const sweepLockExpiry = 10 * time.Minute

type sweepLocker struct {
	sync    *redsync.Redsync
	log     *log.Helper
	metrics *metrics.CreditMetrics
}

// NewSweepLocker 创建订阅过期扫描的分布式锁
func NewSweepLocker(sync *redsync.Redsync, logger log.Logger) biz.SweepLocker {
	return &sweepLocker{
		sync:    sync,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// Lock 获取扫描锁；多实例同时调度时只有一个实例拿到锁
func (l *sweepLocker) Lock(ctx context.Context) (func(), error) {
	startTime := time.Now()
	mutex := l.sync.NewMutex(constants.RedisKeyExpireSweepLock, redsync.WithExpiry(sweepLockExpiry))

	if err := mutex.LockContext(ctx); err != nil {
		if l.metrics != nil {
			l.metrics.LockAcquireTotal.WithLabelValues(constants.ResultFailed).Inc()
			l.metrics.LockAcquireDuration.Observe(time.Since(startTime).Seconds())
		}
		return nil, err
	}

	if l.metrics != nil {
		l.metrics.LockAcquireTotal.WithLabelValues(constants.ResultSuccess).Inc()
		l.metrics.LockAcquireDuration.Observe(time.Since(startTime).Seconds())
	}

	unlock := func() {
		if _, err := mutex.Unlock(); err != nil {
			l.log.Warnf("释放过期扫描锁失败: err=%v", err)
		}
	}
	return unlock, nil
}
