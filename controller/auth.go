package controller

import (
	"errors"
	"net/http"

	"github.com/Xushengqwer/go-common/commonerrors" // 引入公共错误包
	"github.com/Xushengqwer/go-common/core"         // 引入日志包
	"github.com/Xushengqwer/go-common/models/enums"
	"github.com/Xushengqwer/go-common/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap" // 引入 zap 用于日志字段

	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/constants"
	"github.com/Xushengqwer/kath_hub/middleware"
	"github.com/Xushengqwer/kath_hub/models/dto"
	"github.com/Xushengqwer/kath_hub/models/vo"
	"github.com/Xushengqwer/kath_hub/service/session"
	"github.com/Xushengqwer/kath_hub/utils"
)

// AuthController 处理 Google 登录、令牌刷新与退出登录相关的 HTTP 请求。
// Web 平台的刷新令牌放在 HttpOnly Cookie 中，其他平台放在响应体中。
type AuthController struct {
	sessionService session.SessionService // sessionService: 会话服务的实例。
	logger         *core.ZapLogger        // logger: 日志记录器。
	cookieConfig   config.CookieConfig    // cookieConfig: 刷新令牌 Cookie 的配置
}

// NewAuthController 创建一个新的 AuthController 实例。
func NewAuthController(
	sessionService session.SessionService,
	logger *core.ZapLogger,
	cookieCfg config.CookieConfig,
) *AuthController {
	return &AuthController{
		sessionService: sessionService,
		logger:         logger,
		cookieConfig:   cookieCfg,
	}
}

// GoogleSignInHandler 处理 Google 登录请求，首次登录自动注册。
// @Summary Google 登录
// @Description 客户端完成 Google Sign-In 后提交 ID Token。后端校验签名与 aud，首次登录自动创建用户，然后创建会话并签发令牌。Web 平台的刷新令牌写入 Cookie。
// @Tags 认证管理 (Auth Management)
// @Accept json
// @Produce json
// @Param X-Platform header string true "客户端平台 (web, app ...)" example("app")
// @Param body body dto.GoogleLoginData true "Google ID Token"
// @Success 200 {object} docs.SwaggerAPILoginResponse "登录成功，返回用户信息和令牌对"
// @Failure 400 {object} docs.SwaggerAPIErrorResponseString "请求参数无效或平台类型无效"
// @Failure 401 {object} docs.SwaggerAPIErrorResponseString "ID Token 无效或用户状态异常"
// @Failure 500 {object} docs.SwaggerAPIErrorResponseString "系统内部错误"
// @Router /api/v1/kath-hub/auth/google [post]
func (ctrl *AuthController) GoogleSignInHandler(c *gin.Context) {
	const operation = "AuthController.GoogleSignInHandler"

	// 1. 绑定并校验请求体数据。
	var loginData dto.GoogleLoginData
	if err := c.ShouldBindJSON(&loginData); err != nil {
		ctrl.logger.Warn("Google 登录请求参数绑定失败", zap.String("operation", operation), zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "输入参数无效")
		return
	}

	// 2. 获取并验证请求头中的 X-Platform 参数。
	platformStr := c.GetHeader("X-Platform")
	platform, err := enums.PlatformFromString(platformStr)
	if err != nil {
		ctrl.logger.Warn("无效的平台类型",
			zap.String("operation", operation),
			zap.String("platformHeader", platformStr),
			zap.Error(err),
		)
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "无效的平台类型")
		return
	}

	// 3. 调用服务层执行登录逻辑。
	userInfo, tokenPair, err := ctrl.sessionService.SignInWithGoogle(c.Request.Context(), loginData, platform)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrGoogleLoginFailed), errors.Is(err, session.ErrUserInactive):
			ctrl.logger.Warn("Google 登录被拒绝", zap.String("operation", operation), zap.Any("platform", platform), zap.Error(err))
			response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, err.Error())
		default:
			ctrl.logger.Error("Google 登录服务返回系统错误", zap.String("operation", operation), zap.Any("platform", platform), zap.Error(err))
			response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, commonerrors.ErrSystemError.Error())
		}
		return
	}

	// 4. 根据平台返回令牌。
	if platform == enums.PlatformWeb {
		ctrl.setRefreshCookie(c, tokenPair.RefreshToken, int(constants.RefreshTokenTTL.Seconds()))
		tokenPair.RefreshToken = ""
	}

	ctrl.logger.Info("Google 登录成功",
		zap.String("operation", operation),
		zap.String("userID", userInfo.UserID),
		zap.Any("platform", platform),
	)
	response.RespondSuccess(c, vo.LoginResponse{User: userInfo, Token: tokenPair}, "登录成功")
}

// RefreshTokenHandler 处理使用 Refresh Token 刷新认证令牌的请求。
// @Summary 刷新令牌
// @Description 使用有效的 Refresh Token 获取一对新的令牌。Web 平台从 Cookie 读取，其他平台从请求体读取。会话已退出时刷新失败。
// @Tags 认证管理 (Auth Management)
// @Accept json
// @Produce json
// @Param X-Platform header string false "客户端平台" example("app")
// @Param request body dto.RefreshTokenDTO false "请求体 (非 Web 平台)，包含 refresh_token 字段"
// @Success 200 {object} docs.SwaggerAPITokenPairResponse "刷新成功，返回新的令牌对"
// @Failure 400 {object} docs.SwaggerAPIErrorResponseString "未提供有效的 Refresh Token"
// @Failure 401 {object} docs.SwaggerAPIErrorResponseString "Refresh Token 无效、会话已退出或用户状态异常"
// @Failure 500 {object} docs.SwaggerAPIErrorResponseString "系统内部错误"
// @Router /api/v1/kath-hub/auth/refresh [post]
func (ctrl *AuthController) RefreshTokenHandler(c *gin.Context) {
	const operation = "AuthController.RefreshTokenHandler"

	// 1. 获取平台信息，缺失时按非 Web 平台处理
	platform, err := enums.PlatformFromString(c.GetHeader("X-Platform"))
	if err != nil {
		platform = enums.PlatformApp
	}

	// 2. 根据平台获取 Refresh Token
	var refreshToken string
	if platform == enums.PlatformWeb {
		refreshToken, err = c.Cookie(ctrl.cookieConfig.RefreshTokenName)
		if err != nil || refreshToken == "" {
			ctrl.logger.Warn("Web平台刷新令牌请求：Cookie中未找到RT", zap.String("operation", operation), zap.Error(err))
			response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "未提供有效的刷新令牌")
			return
		}
	} else {
		var req dto.RefreshTokenDTO
		if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
			ctrl.logger.Warn("非Web平台刷新令牌请求：请求体中未提供有效RT", zap.String("operation", operation), zap.Error(err))
			response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "未提供有效的刷新令牌")
			return
		}
		refreshToken = req.RefreshToken
	}

	// 3. 调用服务层执行令牌刷新逻辑。
	pair, err := ctrl.sessionService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, commonerrors.ErrSystemError) {
			ctrl.logger.Error("刷新令牌服务返回系统错误", zap.String("operation", operation), zap.Error(err))
			response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, commonerrors.ErrSystemError.Error())
		} else {
			ctrl.logger.Warn("刷新令牌服务返回认证错误", zap.String("operation", operation), zap.Error(err))
			response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, err.Error())
		}
		return
	}

	// 4. 根据平台处理新令牌的响应
	if platform == enums.PlatformWeb {
		ctrl.setRefreshCookie(c, pair.RefreshToken, int(constants.RefreshTokenTTL.Seconds()))
		pair.RefreshToken = ""
	}
	ctrl.logger.Info("成功刷新令牌", zap.String("operation", operation), zap.Any("platform", platform))
	response.RespondSuccess(c, pair, "刷新成功")
}

// LogoutHandler 结束当前会话。该会话打开的所有编辑页面随之关闭。
// @Summary 退出登录
// @Description 删除当前会话，其令牌全部失效。Web 平台同时清除刷新令牌 Cookie。
// @Tags 认证管理 (Auth Management)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Success 200 {object} docs.SwaggerAPIEmptyResponse "退出登录成功"
// @Failure 401 {object} docs.SwaggerAPIErrorResponseString "未认证"
// @Failure 500 {object} docs.SwaggerAPIErrorResponseString "系统内部错误 (如 Redis 操作失败)"
// @Router /api/v1/kath-hub/auth/logout [post]
func (ctrl *AuthController) LogoutHandler(c *gin.Context) {
	const operation = "AuthController.LogoutHandler"

	sessionID, identity, ok := middleware.SessionFromContext(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "用户未认证")
		return
	}

	if err := ctrl.sessionService.SignOut(c.Request.Context(), sessionID); err != nil {
		ctrl.logger.Error("退出登录失败", zap.String("operation", operation), zap.String("sessionID", sessionID), zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, commonerrors.ErrSystemError.Error())
		return
	}

	platform, _ := enums.PlatformFromString(c.GetHeader("X-Platform"))
	if platform == enums.PlatformWeb {
		ctrl.setRefreshCookie(c, "", -1)
	}

	ctrl.logger.Info("用户退出登录", zap.String("operation", operation), zap.String("userID", identity.UserID), zap.String("sessionID", sessionID))
	response.RespondSuccess[vo.Empty](c, vo.Empty{}, "退出成功")
}

func (ctrl *AuthController) setRefreshCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     ctrl.cookieConfig.RefreshTokenName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     ctrl.cookieConfig.Path,
		Domain:   ctrl.cookieConfig.Domain,
		Secure:   ctrl.cookieConfig.Secure,
		HttpOnly: ctrl.cookieConfig.HttpOnly,
		SameSite: utils.ParseSameSiteString(ctrl.cookieConfig.SameSite),
	})
}

// RegisterRoutes 注册认证相关路由。
//   - public: 无需认证的路由组（登录、刷新）。
//   - protected: 已挂载认证中间件的路由组（退出登录）。
func (ctrl *AuthController) RegisterRoutes(public, protected *gin.RouterGroup) {
	public.POST("/auth/google", ctrl.GoogleSignInHandler)
	public.POST("/auth/refresh", ctrl.RefreshTokenHandler)
	protected.POST("/auth/logout", ctrl.LogoutHandler)
}
