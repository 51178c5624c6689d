package controller

import (
	"errors"
	"net/http"

	"github.com/Xushengqwer/go-common/commonerrors" // 引入公共错误包
	"github.com/Xushengqwer/go-common/core"         // 引入日志包
	"github.com/Xushengqwer/go-common/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap" // 引入 zap 用于日志字段

	"github.com/Xushengqwer/kath_hub/middleware"
	service "github.com/Xushengqwer/kath_hub/service/profile"
)

// UserProfileController 处理资料只读查询的 HTTP 请求。编辑走 ScreenController。
type UserProfileController struct {
	profileService service.UserProfileService // profileService: 用户资料服务的实例。
	logger         *core.ZapLogger            // logger: 日志记录器。
}

func NewUserProfileController(profileService service.UserProfileService, logger *core.ZapLogger) *UserProfileController {
	return &UserProfileController{profileService: profileService, logger: logger}
}

// GetMyProfileHandler 获取当前用户的资料文档。
// @Summary 获取我的资料
// @Description 读取当前会话用户已保存的资料，缺失字段按默认值补齐（name 取显示名，bio 取占位文案，age 为 0）。资料尚未创建时返回 404，打开一次编辑页面即会创建。
// @Tags 资料管理 (Profile Management)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Success 200 {object} docs.SwaggerAPIProfileVOResponse "获取成功"
// @Failure 401 {object} docs.SwaggerAPIErrorResponseString "未认证"
// @Failure 404 {object} docs.SwaggerAPIErrorResponseString "资料尚未创建"
// @Failure 500 {object} docs.SwaggerAPIErrorResponseString "系统内部错误"
// @Router /api/v1/kath-hub/profile [get]
func (ctrl *UserProfileController) GetMyProfileHandler(c *gin.Context) {
	const operation = "UserProfileController.GetMyProfileHandler"

	_, identity, ok := middleware.SessionFromContext(c)
	if !ok {
		ctrl.logger.Error("无法从上下文中获取会话身份", zap.String("operation", operation))
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "用户未认证")
		return
	}

	profileVO, err := ctrl.profileService.GetMyProfile(c.Request.Context(), identity)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			response.RespondError(c, http.StatusNotFound, response.ErrCodeClientResourceNotFound, "资料尚未创建")
			return
		}
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, commonerrors.ErrSystemError.Error())
		return
	}
	response.RespondSuccess(c, profileVO, "获取资料成功")
}

// RegisterRoutes 注册资料查询路由，group 需已挂载认证中间件。
func (ctrl *UserProfileController) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/profile", ctrl.GetMyProfileHandler)
}
