package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CreditMetrics 积分服务指标
type CreditMetrics struct {
	// 扣减相关指标
	DeductTotal       *prometheus.CounterVec   // 扣减总数（按结果）
	DeductDuration    prometheus.Histogram     // 扣减耗时
	DeductStarsTotal  *prometheus.CounterVec   // 扣减星数（按积分池）
	DeductCASConflict prometheus.Counter       // CAS 冲突次数（单次重试记一次）
	DeductAttempts    prometheus.Histogram     // 单次扣减的 CAS 尝试次数

	// 余额相关指标
	BalanceQueryTotal prometheus.Counter // 余额查询总数
	BalanceLowTotal   prometheus.Counter // 查询结果低于阈值的次数

	// 发放相关指标
	GrantTotal      *prometheus.CounterVec // 发放总数（按流水类型）
	GrantStarsTotal *prometheus.CounterVec // 发放星数（按流水类型）
	RefundTotal     *prometheus.CounterVec // 退还总数（按结果）

	// 订阅过期扫描指标
	ExpireSweepTotal    *prometheus.CounterVec // 扫描执行总数（按结果）
	ExpireSweepDuration prometheus.Histogram   // 扫描耗时
	ExpiredStarsTotal   prometheus.Counter     // 过期清零的订阅星总数

	// 订单相关指标
	OrderTotal          *prometheus.CounterVec // 订单总数（按状态）
	OrderConfirmedTotal *prometheus.CounterVec // 订单确认总数（按类型）

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewCreditMetrics 创建积分服务指标
func NewCreditMetrics() *CreditMetrics {
	return &CreditMetrics{
		// 扣减指标
		DeductTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_deduct_total",
				Help: "Total number of credit deductions",
			},
			[]string{"result"}, // result: success/insufficient/contention/error
		),
		DeductDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_deduct_duration_seconds",
				Help:    "Duration of credit deduction operations",
				Buckets: prometheus.DefBuckets,
			},
		),
		DeductStarsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_deduct_stars_total",
				Help: "Total stars deducted",
			},
			[]string{"pool"}, // pool: subscription/package
		),
		DeductCASConflict: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_deduct_cas_conflict_total",
				Help: "Total number of compare-and-swap conflicts during deduction",
			},
		),
		DeductAttempts: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_deduct_attempts",
				Help:    "Number of CAS attempts per deduction",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			},
		),

		// 余额指标
		BalanceQueryTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_balance_query_total",
				Help: "Total number of balance queries",
			},
		),
		BalanceLowTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_balance_low_total",
				Help: "Total number of balance queries below the low-balance threshold",
			},
		),

		// 发放指标
		GrantTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_grant_total",
				Help: "Total number of credit grants",
			},
			[]string{"type"}, // type: subscription_grant/package_purchase/subscription_renewed
		),
		GrantStarsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_grant_stars_total",
				Help: "Total stars granted",
			},
			[]string{"type"},
		),
		RefundTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_refund_total",
				Help: "Total number of credit refunds",
			},
			[]string{"result"}, // result: success/failed
		),

		// 订阅过期扫描指标
		ExpireSweepTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_expire_sweep_total",
				Help: "Total number of subscription expiry sweeps",
			},
			[]string{"result"}, // result: success/failed
		),
		ExpireSweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_expire_sweep_duration_seconds",
				Help:    "Duration of subscription expiry sweeps",
				Buckets: prometheus.DefBuckets,
			},
		),
		ExpiredStarsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "credit_expired_stars_total",
				Help: "Total subscription stars expired by sweeps",
			},
		),

		// 订单指标
		OrderTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_order_total",
				Help: "Total number of purchase orders",
			},
			[]string{"status"}, // status: pending/success/failed
		),
		OrderConfirmedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_order_confirmed_total",
				Help: "Total number of confirmed purchase orders",
			},
			[]string{"kind"}, // kind: package/subscription
		),

		// 分布式锁指标
		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_lock_acquire_total",
				Help: "Total number of lock acquisition attempts",
			},
			[]string{"result"}, // result: success/failed
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "credit_lock_acquire_duration_seconds",
				Help:    "Duration of lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// 全局指标实例
var defaultMetrics *CreditMetrics

// InitMetrics 初始化全局指标
func InitMetrics() {
	defaultMetrics = NewCreditMetrics()
}

// GetMetrics 获取全局指标实例
func GetMetrics() *CreditMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}
