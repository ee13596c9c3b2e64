package biz

import (
	"time"

	"credit-service/internal/conf"
)

// 积分业务配置默认值
const (
	defaultLowBalanceThreshold = 10
	defaultExpireSweepSpec     = "0 5 0 * * *" // 每天 00:05:00
	defaultBalanceCacheTTL     = 5 * time.Minute
)

// CreditConfig 积分业务配置（解析后的运行时形态）
type CreditConfig struct {
	LowBalanceThreshold int64
	ExpireSweepSpec     string
	BalanceCacheTTL     time.Duration
}

// NewCreditConfig 从启动配置构建积分业务配置，缺省项使用默认值
func NewCreditConfig(c *conf.Bootstrap) *CreditConfig {
	cfg := &CreditConfig{
		LowBalanceThreshold: defaultLowBalanceThreshold,
		ExpireSweepSpec:     defaultExpireSweepSpec,
		BalanceCacheTTL:     defaultBalanceCacheTTL,
	}
	if c == nil || c.Credit == nil {
		return cfg
	}
	if c.Credit.LowBalanceThreshold > 0 {
		cfg.LowBalanceThreshold = c.Credit.LowBalanceThreshold
	}
	if c.Credit.ExpireSweepSpec != "" {
		cfg.ExpireSweepSpec = c.Credit.ExpireSweepSpec
	}
	if c.Credit.BalanceCacheTTL != "" {
		if ttl, err := time.ParseDuration(c.Credit.BalanceCacheTTL); err == nil && ttl > 0 {
			cfg.BalanceCacheTTL = ttl
		}
	}
	return cfg
}
