package enums

// IdentityType 身份类型枚举
type IdentityType uint

const (
	Google IdentityType = 1 // Google 账号（ID Token 登录）
	// 可扩展其他类型，如 AppleID 等
)
