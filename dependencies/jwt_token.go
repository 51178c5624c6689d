package dependencies

import (
	"errors"
	"fmt"
	"github.com/Xushengqwer/go-common/models/enums"
	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/constants"
	"github.com/google/uuid"
	"time"

	"github.com/golang-jwt/jwt/v5" // 引入 v5 版本的 JWT 包
)

// JWTTokenInterface 定义 JWT 工具的接口
// - 令牌同时携带用户 ID 与会话 ID，会话被删除后令牌随之失效（由认证中间件检查）
type JWTTokenInterface interface {
	// GenerateAccessToken 生成访问令牌
	GenerateAccessToken(userID, sessionID string, role enums.UserRole, status enums.UserStatus, platform enums.Platform) (string, error)

	// GenerateRefreshToken 生成刷新令牌
	GenerateRefreshToken(userID, sessionID string, platform enums.Platform) (string, error)

	// ParseAccessToken 解析并验证访问令牌
	ParseAccessToken(tokenString string) (*CustomClaims, error)

	// ParseRefreshToken 解析并验证刷新令牌
	ParseRefreshToken(tokenString string) (*CustomClaims, error)
}

// CustomClaims 定义 JWT 的声明结构体，包含标准字段和自定义字段
type CustomClaims struct {
	UserID               string           `json:"user_id"`    // 用户ID，唯一标识用户
	SessionID            string           `json:"session_id"` // 会话ID，对应 Redis 中的会话记录
	Role                 enums.UserRole   `json:"role"`       // 用户角色
	Status               enums.UserStatus `json:"status"`     // 用户状态
	Platform             enums.Platform   `json:"platform"`   // 客户端平台
	jwt.RegisteredClaims                  // 嵌入 JWT v5 的标准声明字段
}

// JWTUtility 实现 JWTTokenInterface 接口的结构体
type JWTUtility struct {
	cfg *config.JWTConfig // JWT 配置，包含密钥、发行者等信息
	now func() time.Time
}

// NewJWTUtility 创建 JWTUtility 实例，通过依赖注入初始化
func NewJWTUtility(cfg *config.JWTConfig) JWTTokenInterface {
	return &JWTUtility{cfg: cfg, now: time.Now}
}

// GenerateAccessToken 生成访问令牌
func (ju *JWTUtility) GenerateAccessToken(userID, sessionID string, role enums.UserRole, status enums.UserStatus, platform enums.Platform) (string, error) {
	now := ju.now()

	claims := &CustomClaims{
		UserID:    userID,
		SessionID: sessionID,
		Role:      role,
		Status:    status,
		Platform:  platform,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ju.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(constants.AccessTokenTTL)),
			ID:        uuid.New().String(),
		},
	}
	return ju.sign(claims, ju.cfg.SecretKey)
}

// GenerateRefreshToken 生成刷新令牌
func (ju *JWTUtility) GenerateRefreshToken(userID, sessionID string, platform enums.Platform) (string, error) {
	now := ju.now()

	claims := &CustomClaims{
		UserID:    userID,
		SessionID: sessionID,
		Platform:  platform,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ju.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(constants.RefreshTokenTTL)),
			ID:        uuid.New().String(),
		},
	}
	return ju.sign(claims, ju.cfg.RefreshSecret)
}

// sign 使用 HS256 签名
func (ju *JWTUtility) sign(claims *CustomClaims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("签名令牌失败: %w", err)
	}
	return signedToken, nil
}

// ParseAccessToken 解析并验证访问令牌
func (ju *JWTUtility) ParseAccessToken(tokenString string) (*CustomClaims, error) {
	return ju.parseToken(tokenString, []byte(ju.cfg.SecretKey))
}

// ParseRefreshToken 解析并验证刷新令牌
func (ju *JWTUtility) ParseRefreshToken(tokenString string) (*CustomClaims, error) {
	return ju.parseToken(tokenString, []byte(ju.cfg.RefreshSecret))
}

// parseToken 辅助函数，用于解析和验证 JWT 令牌
func (ju *JWTUtility) parseToken(tokenString string, secret []byte) (*CustomClaims, error) {
	// 创建解析器，启用 v5 的严格验证选项
	parser := jwt.NewParser(
		jwt.WithExpirationRequired(),  // 强制要求令牌包含过期时间
		jwt.WithIssuer(ju.cfg.Issuer), // 验证发行者是否匹配配置中的值
		jwt.WithTimeFunc(ju.now),
	)

	token, err := parser.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法是否为 HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("签名算法不匹配: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("无效的JWT声明")
	}
	if claims.SessionID == "" {
		return nil, errors.New("令牌缺少会话ID")
	}

	return claims, nil
}
