package conf

// Bootstrap 服务启动配置
// 通过 kratos config 从 configs/config.yaml 加载
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Credit *Credit `json:"credit"`
}

// Server 服务端配置
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP HTTP 服务配置
type HTTP struct {
	Network string `json:"network"`
	Addr    string `json:"addr"`
	Timeout string `json:"timeout"` // 例如 "1s"
}

// Data 数据层配置
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
	Rocketmq *Rocketmq `json:"rocketmq"`
}

// Database 数据库配置
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"` // MySQL DSN
}

// Redis Redis 配置
type Redis struct {
	Addr         string `json:"addr"`
	Password     string `json:"password"`
	Db           int    `json:"db"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

// Rocketmq RocketMQ 配置（用于扣减流水异步落库）
type Rocketmq struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	Topic       string   `json:"topic"`
	GroupName   string   `json:"group_name"`
	RetryTimes  int      `json:"retry_times"`
}

// Credit 积分业务配置
type Credit struct {
	// LowBalanceThreshold 余额不足告警阈值（单位：星）
	LowBalanceThreshold int64 `json:"low_balance_threshold"`
	// ExpireSweepSpec 订阅过期扫描的 cron 表达式（6 位，支持秒级）
	ExpireSweepSpec string `json:"expire_sweep_spec"`
	// BalanceCacheTTL 余额缓存有效期，例如 "5m"
	BalanceCacheTTL string `json:"balance_cache_ttl"`
}
