package config

import "time"

// RedisConfig 会话存储与身份变更频道使用的 Redis 连接配置
type RedisConfig struct {
	Address        string        `mapstructure:"address" yaml:"address"`                 // 主机名或 IP
	Port           int           `mapstructure:"port" yaml:"port"`                       // 端口
	Password       string        `mapstructure:"password" yaml:"password"`               // 访问密码
	DB             int           `mapstructure:"db" yaml:"db"`                           // 数据库编号
	DialTimeout    time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`       // 建立连接超时
	ReadTimeout    time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`       // 读超时
	WriteTimeout   time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`     // 写超时
	PoolSize       int           `mapstructure:"pool_size" yaml:"pool_size"`             // 连接池大小，非正数时取 10
	MinIdleConns   int           `mapstructure:"min_idle_conns" yaml:"min_idle_conns"`   // 最小空闲连接数
	ConnectRetries int           `mapstructure:"connect_retries" yaml:"connect_retries"` // 启动时 PING 失败的重试次数
	RetryInterval  time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`   // 两次 PING 之间的等待
}
