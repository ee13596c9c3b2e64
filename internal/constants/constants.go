package constants

// 时间格式常量
const (
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
)

// Redis Key 前缀常量
const (
	// RedisKeyBalance 余额缓存 key 前缀
	RedisKeyBalance = "credit:balance:"
	// RedisKeyExpireSweepLock 订阅过期扫描锁 key
	RedisKeyExpireSweepLock = "credit:expire:sweep:lock"
)

// 扣减相关常量
const (
	// MaxDeductAttempts 扣减 CAS 重试上限
	MaxDeductAttempts = 10
	// MaxRefundAttempts 退还 CAS 重试上限
	MaxRefundAttempts = 10
)

// 积分池常量（用于指标与流水）
const (
	// PoolSubscription 订阅星（按月发放，周期结束过期）
	PoolSubscription = "subscription"
	// PoolPackage 加油包星（一次性购买，永不过期）
	PoolPackage = "package"
)

// 流水类型常量
const (
	// TxTypeDeduct 生成扣减
	TxTypeDeduct = "deduct"
	// TxTypeRefund 生成失败退还
	TxTypeRefund = "refund"
	// TxTypeSubscriptionGrant 订阅发放
	TxTypeSubscriptionGrant = "subscription_grant"
	// TxTypePackagePurchase 加油包购买
	TxTypePackagePurchase = "package_purchase"
	// TxTypeSubscriptionRenewed 订阅续费（重置并发放）
	TxTypeSubscriptionRenewed = "subscription_renewed"
	// TxTypeSubscriptionExpired 订阅过期（订阅星清零）
	TxTypeSubscriptionExpired = "subscription_expired"
)

// 订单状态常量
const (
	// OrderStatusPending 待支付
	OrderStatusPending = "pending"
	// OrderStatusSuccess 成功
	OrderStatusSuccess = "success"
	// OrderStatusFailed 失败
	OrderStatusFailed = "failed"
)

// 订单类型常量
const (
	// OrderKindPackage 加油包订单：确认后增发 package_stars
	OrderKindPackage = "package"
	// OrderKindSubscription 订阅订单：确认后执行续费（重置+发放）
	OrderKindSubscription = "subscription"
)

// 订阅状态常量
const (
	// SubscriptionStatusActive 生效中
	SubscriptionStatusActive = "active"
	// SubscriptionStatusExpired 已过期
	SubscriptionStatusExpired = "expired"
)

// 扣减结果常量（用于指标）
const (
	// DeductResultSuccess 扣减成功
	DeductResultSuccess = "success"
	// DeductResultInsufficient 余额不足
	DeductResultInsufficient = "insufficient"
	// DeductResultContention 并发冲突重试耗尽
	DeductResultContention = "contention"
	// DeductResultError 存储错误
	DeductResultError = "error"
)

// 通用结果常量
const (
	// ResultSuccess 成功
	ResultSuccess = "success"
	// ResultFailed 失败
	ResultFailed = "failed"
)

// 订单ID前缀常量
const (
	// OrderIDPrefixPurchase 购买订单ID前缀
	OrderIDPrefixPurchase = "purchase_"
)
