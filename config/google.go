package config

// GoogleConfig 定义 Google 登录（ID Token 校验）所需的配置
type GoogleConfig struct {
	// OAuth 客户端 ID，校验 ID Token 的 aud 声明
	ClientID string `mapstructure:"client_id" json:"client_id" yaml:"client_id"`
}
