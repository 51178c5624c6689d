package config

import "time"

// MySQLConfig 资料库连接配置，零值字段在 dependencies.InitMySQL 中补默认值
type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn" yaml:"dsn"`                             // 例如 "kath:password@tcp(host:port)/kath_hub?charset=utf8mb4&parseTime=True&loc=Local"
	MaxOpenConn     int           `mapstructure:"max_open_conn" yaml:"max_open_conn"`         // 最大打开连接数
	MaxIdleConn     int           `mapstructure:"max_idle_conn" yaml:"max_idle_conn"`         // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"` // 单个连接最长存活时间
	ConnectRetries  int           `mapstructure:"connect_retries" yaml:"connect_retries"`     // 启动时连接失败的重试次数
	RetryInterval   time.Duration `mapstructure:"retry_interval" yaml:"retry_interval"`       // 两次连接尝试之间的等待
}
