package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/Xushengqwer/go-common/commonerrors" // 引入公共错误包
	"github.com/Xushengqwer/go-common/core"         // 引入日志包
	"github.com/Xushengqwer/go-common/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap" // 引入 zap 用于日志字段

	"github.com/Xushengqwer/kath_hub/middleware"
	"github.com/Xushengqwer/kath_hub/models/dto"
	"github.com/Xushengqwer/kath_hub/models/vo"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
	"github.com/Xushengqwer/kath_hub/service/screen"
	"github.com/Xushengqwer/kath_hub/service/session"
)

// ScreenController 驱动资料编辑页面。
// 每个操作只等待组件执行完本地步骤；远程读写在后台完成，客户端轮询状态接口，
// 或带上 wait=true 让服务端等到页面空闲后再返回。
type ScreenController struct {
	registry       *screen.Registry
	sessionService session.SessionService
	logger         *core.ZapLogger
	maxPhotoBytes  int64
}

func NewScreenController(
	registry *screen.Registry,
	sessionService session.SessionService,
	logger *core.ZapLogger,
	maxPhotoBytes int64,
) *ScreenController {
	return &ScreenController{
		registry:       registry,
		sessionService: sessionService,
		logger:         logger,
		maxPhotoBytes:  maxPhotoBytes,
	}
}

// OpenScreenHandler 打开一个编辑页面并开始加载资料。
// @Summary 打开资料编辑页面
// @Description 为当前会话创建编辑页面并触发首次加载，资料不存在时以 Google 账号信息创建初始资料。
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param wait query bool false "为 true 时等待首次加载完成后再返回"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "页面已打开，返回当前状态"
// @Failure 401 {object} docs.SwaggerAPIErrorResponseString "未认证"
// @Failure 429 {object} docs.SwaggerAPIErrorResponseString "打开的编辑页面过多"
// @Failure 500 {object} docs.SwaggerAPIErrorResponseString "系统内部错误"
// @Router /api/v1/kath-hub/profile/screens [post]
func (ctrl *ScreenController) OpenScreenHandler(c *gin.Context) {
	const operation = "ScreenController.OpenScreenHandler"

	sessionID, identity, ok := middleware.SessionFromContext(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "用户未认证")
		return
	}

	screenID, err := ctrl.registry.Open(ctrl.sessionService.Bind(identity, sessionID))
	screen.ObserveOperation("open", err)
	if err != nil {
		ctrl.respondScreenError(c, operation, screenID, err)
		return
	}
	comp, err := ctrl.registry.Get(sessionID, screenID)
	if err != nil {
		ctrl.respondScreenError(c, operation, screenID, err)
		return
	}
	ctrl.respondState(c, operation, screenID, comp)
}

// GetScreenHandler 返回页面当前状态。
// @Summary 获取编辑页面状态
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Param wait query bool false "为 true 时等待进行中的远程操作完成"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Failure 404 {object} docs.SwaggerAPIErrorResponseString "页面不存在或已关闭"
// @Router /api/v1/kath-hub/profile/screens/{id} [get]
func (ctrl *ScreenController) GetScreenHandler(c *gin.Context) {
	ctrl.dispatch(c, "ScreenController.GetScreenHandler", "state", nil)
}

// CloseScreenHandler 关闭页面，未保存的修改被丢弃。
// @Summary 关闭编辑页面
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Success 200 {object} docs.SwaggerAPIEmptyResponse "已关闭"
// @Failure 404 {object} docs.SwaggerAPIErrorResponseString "页面不存在或已关闭"
// @Router /api/v1/kath-hub/profile/screens/{id} [delete]
func (ctrl *ScreenController) CloseScreenHandler(c *gin.Context) {
	const operation = "ScreenController.CloseScreenHandler"

	sessionID, _, ok := middleware.SessionFromContext(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "用户未认证")
		return
	}
	screenID := c.Param("id")
	err := ctrl.registry.Close(sessionID, screenID)
	screen.ObserveOperation("close", err)
	if err != nil {
		ctrl.respondScreenError(c, operation, screenID, err)
		return
	}
	response.RespondSuccess[vo.Empty](c, vo.Empty{}, "页面已关闭")
}

// BeginEditHandler 进入编辑状态。
// @Summary 开始编辑
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Failure 404 {object} docs.SwaggerAPIErrorResponseString "页面不存在或已关闭"
// @Failure 409 {object} docs.SwaggerAPIErrorResponseString "已处于编辑状态"
// @Router /api/v1/kath-hub/profile/screens/{id}/edit [post]
func (ctrl *ScreenController) BeginEditHandler(c *gin.Context) {
	ctrl.dispatch(c, "ScreenController.BeginEditHandler", "begin_edit", (*profilesync.Component).BeginEdit)
}

// UpdateFieldsHandler 修改编辑中的表单字段，只有请求中提供的字段会被修改。
// @Summary 修改表单字段
// @Tags 资料编辑 (Profile Screens)
// @Accept json
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Param body body dto.UpdateFieldsDTO true "待修改的字段"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Failure 400 {object} docs.SwaggerAPIErrorResponseString "请求参数无效"
// @Failure 409 {object} docs.SwaggerAPIErrorResponseString "未处于编辑状态"
// @Router /api/v1/kath-hub/profile/screens/{id}/fields [patch]
func (ctrl *ScreenController) UpdateFieldsHandler(c *gin.Context) {
	const operation = "ScreenController.UpdateFieldsHandler"

	var req dto.UpdateFieldsDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.logger.Warn("修改表单字段请求参数绑定失败", zap.String("operation", operation), zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "输入参数无效: "+err.Error())
		return
	}
	patch := profilesync.FieldsPatch{
		Name:       req.Name,
		Age:        req.Age,
		Phone:      req.Phone,
		Location:   req.Location,
		Occupation: req.Occupation,
		Bio:        req.Bio,
	}
	ctrl.dispatch(c, operation, "update_fields", func(comp *profilesync.Component) error {
		return comp.UpdateFields(patch)
	})
}

// CancelEditHandler 放弃修改并重新加载。
// @Summary 取消编辑
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Param wait query bool false "为 true 时等待重新加载完成"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Router /api/v1/kath-hub/profile/screens/{id}/cancel [post]
func (ctrl *ScreenController) CancelEditHandler(c *gin.Context) {
	ctrl.dispatch(c, "ScreenController.CancelEditHandler", "cancel_edit", (*profilesync.Component).CancelEdit)
}

// SaveHandler 保存工作副本。
// @Summary 保存资料
// @Description 以合并写的方式保存全部表单字段与当前头像 URL，结果通过页面提示反馈。
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Param wait query bool false "为 true 时等待保存完成"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Router /api/v1/kath-hub/profile/screens/{id}/save [post]
func (ctrl *ScreenController) SaveHandler(c *gin.Context) {
	ctrl.dispatch(c, "ScreenController.SaveHandler", "save", (*profilesync.Component).Save)
}

// SelectPhotoHandler 选择新头像，立即预览并开始上传。
// @Summary 选择头像
// @Description 上传的图片被重新编码为 JPEG 后写入对象存储，成功后自动保存头像 URL。
// @Tags 资料编辑 (Profile Screens)
// @Accept multipart/form-data
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Param photo formData file true "头像图片"
// @Param wait query bool false "为 true 时等待上传与保存完成"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Failure 400 {object} docs.SwaggerAPIErrorResponseString "未提供文件或文件过大"
// @Router /api/v1/kath-hub/profile/screens/{id}/photo [post]
func (ctrl *ScreenController) SelectPhotoHandler(c *gin.Context) {
	const operation = "ScreenController.SelectPhotoHandler"

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxPhotoBytes+1<<20)
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		ctrl.logger.Warn("读取头像文件失败", zap.String("operation", operation), zap.Error(err))
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "请通过 'photo' 字段上传图片")
		return
	}
	if fileHeader.Size > ctrl.maxPhotoBytes {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput,
			fmt.Sprintf("图片不能超过 %d MB", ctrl.maxPhotoBytes>>20))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		ctrl.logger.Error("打开上传的头像文件失败", zap.String("operation", operation), zap.Error(err))
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, commonerrors.ErrSystemError.Error())
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, ctrl.maxPhotoBytes))
	if err != nil || len(data) == 0 {
		response.RespondError(c, http.StatusBadRequest, response.ErrCodeClientInvalidInput, "图片内容为空或读取失败")
		return
	}

	ctrl.dispatch(c, operation, "select_photo", func(comp *profilesync.Component) error {
		return comp.SelectPhoto(data)
	})
}

// RefreshHandler 重新拉取资料。
// @Summary 刷新资料
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Param wait query bool false "为 true 时等待拉取完成"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Router /api/v1/kath-hub/profile/screens/{id}/refresh [post]
func (ctrl *ScreenController) RefreshHandler(c *gin.Context) {
	ctrl.dispatch(c, "ScreenController.RefreshHandler", "refresh", (*profilesync.Component).Refresh)
}

// DismissFeedbackHandler 手动关闭页面提示。
// @Summary 关闭页面提示
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态"
// @Router /api/v1/kath-hub/profile/screens/{id}/feedback/dismiss [post]
func (ctrl *ScreenController) DismissFeedbackHandler(c *gin.Context) {
	ctrl.dispatch(c, "ScreenController.DismissFeedbackHandler", "dismiss_feedback", (*profilesync.Component).DismissFeedback)
}

// LogoutHandler 从编辑页面退出登录。成功后该会话的所有页面都会被关闭。
// @Summary 从编辑页面退出登录
// @Tags 资料编辑 (Profile Screens)
// @Produce json
// @Param Authorization header string true "Bearer <访问令牌>"
// @Param id path string true "页面 ID"
// @Param wait query bool false "为 true 时等待退出完成"
// @Success 200 {object} docs.SwaggerAPIScreenStateResponse "当前状态；页面已随会话关闭时返回空状态"
// @Router /api/v1/kath-hub/profile/screens/{id}/logout [post]
func (ctrl *ScreenController) LogoutHandler(c *gin.Context) {
	ctrl.dispatch(c, "ScreenController.LogoutHandler", "logout", (*profilesync.Component).Logout)
}

// dispatch 取出会话自己的页面，执行 op（为 nil 时只读状态），然后返回页面状态。
func (ctrl *ScreenController) dispatch(c *gin.Context, operation, name string, op func(*profilesync.Component) error) {
	sessionID, _, ok := middleware.SessionFromContext(c)
	if !ok {
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, "用户未认证")
		return
	}
	screenID := c.Param("id")
	comp, err := ctrl.registry.Get(sessionID, screenID)
	if err != nil {
		screen.ObserveOperation(name, err)
		ctrl.respondScreenError(c, operation, screenID, err)
		return
	}
	if op != nil {
		err = op(comp)
		screen.ObserveOperation(name, err)
		if err != nil {
			ctrl.respondScreenError(c, operation, screenID, err)
			return
		}
	}
	ctrl.respondState(c, operation, screenID, comp)
}

func (ctrl *ScreenController) respondState(c *gin.Context, operation, screenID string, comp *profilesync.Component) {
	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		if err := comp.WaitIdle(c.Request.Context()); err != nil {
			if errors.Is(err, profilesync.ErrClosed) {
				response.RespondSuccess(c, vo.ScreenStateVO{ScreenID: screenID}, "页面已关闭")
				return
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				ctrl.logger.Warn("等待页面空闲超时", zap.String("operation", operation), zap.String("screenID", screenID))
			}
		}
	}
	st, err := comp.State()
	if err != nil {
		if errors.Is(err, profilesync.ErrClosed) {
			response.RespondSuccess(c, vo.ScreenStateVO{ScreenID: screenID}, "页面已关闭")
			return
		}
		ctrl.respondScreenError(c, operation, screenID, err)
		return
	}
	response.RespondSuccess(c, toScreenStateVO(screenID, st), "操作成功")
}

func (ctrl *ScreenController) respondScreenError(c *gin.Context, operation, screenID string, err error) {
	switch {
	case errors.Is(err, screen.ErrScreenNotFound), errors.Is(err, profilesync.ErrClosed):
		response.RespondError(c, http.StatusNotFound, response.ErrCodeClientResourceNotFound, screen.ErrScreenNotFound.Error())
	case errors.Is(err, profilesync.ErrAlreadyEditing):
		response.RespondError(c, http.StatusConflict, response.ErrCodeClientInvalidInput, "已处于编辑状态")
	case errors.Is(err, profilesync.ErrNotEditing):
		response.RespondError(c, http.StatusConflict, response.ErrCodeClientInvalidInput, "未处于编辑状态")
	case errors.Is(err, screen.ErrTooManyScreens):
		response.RespondError(c, http.StatusTooManyRequests, response.ErrCodeClientInvalidInput, err.Error())
	case errors.Is(err, screen.ErrNotSignedIn):
		response.RespondError(c, http.StatusUnauthorized, response.ErrCodeClientUnauthorized, err.Error())
	default:
		ctrl.logger.Error("编辑页面操作失败",
			zap.String("operation", operation),
			zap.String("screenID", screenID),
			zap.Error(err),
		)
		response.RespondError(c, http.StatusInternalServerError, response.ErrCodeServerInternal, commonerrors.ErrSystemError.Error())
	}
}

func toScreenStateVO(screenID string, st profilesync.State) vo.ScreenStateVO {
	return vo.ScreenStateVO{
		ScreenID: screenID,
		Fields: vo.FieldsVO{
			Name:       st.Fields.Name,
			Age:        st.Fields.Age,
			Phone:      st.Fields.Phone,
			Location:   st.Fields.Location,
			Occupation: st.Fields.Occupation,
			Bio:        st.Fields.Bio,
		},
		ProfileImageURL: st.ProfileImageURL,
		Loaded:          st.Loaded,
		IsEditing:       st.IsEditing,
		IsLoading:       st.IsLoading,
		IsUploading:     st.IsUploading,
		IsRefreshing:    st.IsRefreshing,
		HasPreview:      st.HasPreview,
		Feedback: vo.FeedbackVO{
			Message: st.Feedback.Message,
			Visible: st.Feedback.Visible,
			Seq:     st.Feedback.Seq,
		},
	}
}

// RegisterRoutes 注册编辑页面路由，group 需已挂载认证中间件。
func (ctrl *ScreenController) RegisterRoutes(group *gin.RouterGroup) {
	screens := group.Group("/profile/screens")
	{
		screens.POST("", ctrl.OpenScreenHandler)
		screens.GET("/:id", ctrl.GetScreenHandler)
		screens.DELETE("/:id", ctrl.CloseScreenHandler)
		screens.POST("/:id/edit", ctrl.BeginEditHandler)
		screens.PATCH("/:id/fields", ctrl.UpdateFieldsHandler)
		screens.POST("/:id/cancel", ctrl.CancelEditHandler)
		screens.POST("/:id/save", ctrl.SaveHandler)
		screens.POST("/:id/photo", ctrl.SelectPhotoHandler)
		screens.POST("/:id/refresh", ctrl.RefreshHandler)
		screens.POST("/:id/feedback/dismiss", ctrl.DismissFeedbackHandler)
		screens.POST("/:id/logout", ctrl.LogoutHandler)
	}
}
