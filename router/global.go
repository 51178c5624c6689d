package router

import (
	"time"

	// 引入公共模块和项目包
	"github.com/Xushengqwer/go-common/core" // 引入日志包
	commonMiddleware "github.com/Xushengqwer/go-common/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"     // swagger-files 包
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger 包
	otelgin "go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/constants"
	"github.com/Xushengqwer/kath_hub/controller"
	_ "github.com/Xushengqwer/kath_hub/docs" // 引入 docs 包以注册 Swagger 信息
	"github.com/Xushengqwer/kath_hub/initialization"
	"github.com/Xushengqwer/kath_hub/middleware"
)

// SetupRouter 初始化并配置 Gin 引擎，注册所有中间件和路由。
// 设计目的:
//   - 作为应用路由配置的统一入口点。
//   - 应用全局中间件，处理通用逻辑如日志、错误恢复、超时等。
//   - 登录与刷新令牌为公开路由，其余路由要求访问令牌有效且会话仍然存在。
func SetupRouter(
	logger *core.ZapLogger,
	cfg *config.KathHubConfig,
	appServices *initialization.AppServices,
	appDeps *initialization.AppDependencies,
) *gin.Engine {
	logger.Info("开始设置 Gin 路由...")

	router := gin.Default()

	// 1. OTel Middleware (最先，处理追踪上下文和 Span)
	router.Use(otelgin.Middleware(constants.ServiceName))

	// 2. Panic Recovery (捕获后续中间件和 handler 的 panic)
	router.Use(commonMiddleware.ErrorHandlingMiddleware(logger))

	// 3. Request Logger (记录访问日志，需要 TraceID)
	baseLogger := logger.Logger()
	router.Use(commonMiddleware.RequestLoggerMiddleware(baseLogger))

	// 4. Request Timeout (超时控制)，同时约束 wait=true 的等待时间
	requestTimeout := time.Duration(cfg.ServerConfig.RequestTimeout) * time.Second
	router.Use(commonMiddleware.RequestTimeoutMiddleware(logger, requestTimeout))

	// 5. API 分组
	v1 := router.Group("api/v1/kath-hub")
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(appDeps.JwtToken, appServices.SessionService, baseLogger))
	logger.Info("API 路由将注册到 api/v1/kath-hub 分组下")

	// 6. 初始化控制器并注册路由
	maxPhotoBytes := cfg.ProfileConfig.MaxPhotoBytes
	if maxPhotoBytes <= 0 {
		maxPhotoBytes = constants.MaxPhotoBytes
	}
	authCtrl := controller.NewAuthController(appServices.SessionService, logger, cfg.CookieConfig)
	profileCtrl := controller.NewUserProfileController(appServices.ProfileService, logger)
	screenCtrl := controller.NewScreenController(appServices.Screens, appServices.SessionService, logger, maxPhotoBytes)

	authCtrl.RegisterRoutes(v1, protected)
	profileCtrl.RegisterRoutes(protected)
	screenCtrl.RegisterRoutes(protected)
	logger.Info("所有业务路由已成功注册")

	// 7. Prometheus 指标
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8. 配置 Swagger UI 路由，访问路径 /swagger/index.html
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logger.Info("Swagger UI 路由已注册，访问路径: /swagger/index.html")

	return router
}
