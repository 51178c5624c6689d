package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	commonconstants "github.com/Xushengqwer/go-common/constants"
	"github.com/Xushengqwer/go-common/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Xushengqwer/kath_hub/constants"
	"github.com/Xushengqwer/kath_hub/dependencies"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
	"github.com/Xushengqwer/kath_hub/service/session"
)

// IdentityLookup 按会话 ID 读取身份快照，会话已退出时返回 session.ErrSessionRevoked。
type IdentityLookup interface {
	CurrentIdentity(ctx context.Context, sessionID string) (profilesync.Identity, error)
}

// AuthMiddleware 校验 Authorization 头中的访问令牌，并要求其会话仍然存在。
// 通过后在上下文中写入用户 ID、会话 ID 与身份快照。
func AuthMiddleware(jwtUtil dependencies.JWTTokenInterface, sessions IdentityLookup, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const operation = "AuthMiddleware"

		authHeader := c.GetHeader("Authorization")
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(authHeader, bearerPrefix) || strings.TrimPrefix(authHeader, bearerPrefix) == "" {
			response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "缺少访问令牌")
			c.Abort()
			return
		}

		claims, err := jwtUtil.ParseAccessToken(strings.TrimPrefix(authHeader, bearerPrefix))
		if err != nil {
			logger.Warn("访问令牌无效", zap.String("operation", operation), zap.Error(err))
			response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "访问令牌无效或已过期")
			c.Abort()
			return
		}

		identity, err := sessions.CurrentIdentity(c.Request.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, session.ErrSessionRevoked) {
				response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, session.ErrSessionRevoked.Error())
			} else {
				logger.Error("校验会话失败", zap.String("operation", operation), zap.String("sessionID", claims.SessionID), zap.Error(err))
				response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, "校验会话失败")
			}
			c.Abort()
			return
		}
		if identity.UserID != claims.UserID {
			logger.Warn("访问令牌与会话用户不一致",
				zap.String("operation", operation),
				zap.String("sessionID", claims.SessionID),
				zap.String("tokenUserID", claims.UserID),
			)
			response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "访问令牌无效或已过期")
			c.Abort()
			return
		}

		c.Set(string(commonconstants.UserIDKey), claims.UserID)
		c.Set(constants.SessionIDKey, claims.SessionID)
		c.Set(constants.IdentityKey, identity)
		c.Next()
	}
}

// SessionFromContext 取出 AuthMiddleware 写入的会话 ID 与身份快照。
func SessionFromContext(c *gin.Context) (string, profilesync.Identity, bool) {
	sessionID := c.GetString(constants.SessionIDKey)
	raw, exists := c.Get(constants.IdentityKey)
	if !exists || sessionID == "" {
		return "", profilesync.Identity{}, false
	}
	identity, ok := raw.(profilesync.Identity)
	return sessionID, identity, ok
}
