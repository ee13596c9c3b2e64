package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// Credit Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Credit 固定为 21
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   00: 通用模块（复用 go-pkg 通用错误码）
//   01: 余额模块
//   02: 扣减模块
//   03: 发放模块
//   04: 订单模块
//   05: 流水模块
//   06: 订阅模块
//   07-99: 预留扩展

// 余额模块错误码 (210100-210199)
const (
	// ErrCodeCreditGetFailed 获取积分余额失败
	ErrCodeCreditGetFailed = 210101
	// ErrCodeCreditCreateFailed 创建积分记录失败
	ErrCodeCreditCreateFailed = 210102
	// ErrCodeCreditUpdateFailed 更新积分余额失败
	ErrCodeCreditUpdateFailed = 210103
)

// 扣减模块错误码 (210200-210299)
const (
	// ErrCodeInsufficientCredits 积分不足
	ErrCodeInsufficientCredits = 210201
	// ErrCodeDeductContention 扣减并发冲突，重试次数耗尽
	ErrCodeDeductContention = 210202
	// ErrCodeInvariantViolation 积分池出现负值（数据异常，拒绝写入）
	ErrCodeInvariantViolation = 210203
	// ErrCodeInvalidAmount 无效的积分数量
	ErrCodeInvalidAmount = 210204
)

// 发放模块错误码 (210300-210399)
const (
	// ErrCodeGrantFailed 积分发放失败
	ErrCodeGrantFailed = 210301
	// ErrCodeResetFailed 订阅星清零失败
	ErrCodeResetFailed = 210302
	// ErrCodeRenewFailed 订阅续费失败
	ErrCodeRenewFailed = 210303
	// ErrCodeRefundFailed 积分退还失败
	ErrCodeRefundFailed = 210304
)

// 订单模块错误码 (210400-210499)
const (
	// ErrCodeOrderNotFound 订单不存在
	ErrCodeOrderNotFound = 210401
	// ErrCodeOrderCreateFailed 订单创建失败
	ErrCodeOrderCreateFailed = 210402
	// ErrCodeOrderUpdateFailed 订单更新失败
	ErrCodeOrderUpdateFailed = 210403
	// ErrCodeOrderGetFailed 获取订单失败
	ErrCodeOrderGetFailed = 210404
)

// 流水模块错误码 (210500-210599)
const (
	// ErrCodeTransactionCreateFailed 流水创建失败
	ErrCodeTransactionCreateFailed = 210501
	// ErrCodeTransactionListFailed 获取流水列表失败
	ErrCodeTransactionListFailed = 210502
)

// 订阅模块错误码 (210600-210699)
const (
	// ErrCodeSubscriptionListFailed 获取订阅列表失败
	ErrCodeSubscriptionListFailed = 210601
	// ErrCodeSubscriptionUpdateFailed 更新订阅状态失败
	ErrCodeSubscriptionUpdateFailed = 210602
	// ErrCodeExpireSweepLockFailed 获取过期扫描锁失败
	ErrCodeExpireSweepLockFailed = 210603
)
