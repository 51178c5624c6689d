package constants

import (
	"time"
)

const (
	// 认证令牌和刷新令牌的过期时间

	AccessTokenTTL = 15 * time.Minute // 认证令牌（Access Token）的有效期

	RefreshTokenTTL = 10 * 24 * time.Hour // 刷新令牌（Refresh Token）的有效期，同时也是会话在 Redis 中的存活时间
)

const (
	// SessionKeyPrefix 会话记录的 Redis 键前缀，完整键为 kath:session:<sid>
	SessionKeyPrefix = "kath:session:"

	// IdentityChannel 会话身份变更（登录/退出）的广播频道
	IdentityChannel = "kath:identity:changes"

	// SessionIDKey gin 上下文中保存会话 ID 的键
	SessionIDKey = "SessionID"

	// IdentityKey gin 上下文中保存会话身份快照的键
	IdentityKey = "SessionIdentity"
)
