package initialization

import (
	"fmt"

	"github.com/Xushengqwer/go-common/core"
	"github.com/redis/go-redis/v9" // 使用 v9 版本
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/dependencies"
	"github.com/Xushengqwer/kath_hub/utils"
)

// AppDependencies 封装了应用运行所需的所有基础依赖项。
// 设计目的:
//   - 将各个独立的依赖（数据库连接、Redis客户端、配置、日志等）聚合到一个结构体中。
//   - 方便在应用的不同层（如服务层、控制器层）之间传递这些共享的依赖。
type AppDependencies struct {
	Config         *config.KathHubConfig           // Config: 应用的全局配置。
	Logger         *core.ZapLogger                 // Logger: Zap 日志记录器实例。
	DB             *gorm.DB                        // DB: GORM 数据库连接实例 (通常是原始连接，非事务性)。
	RedisClient    *redis.Client                   // RedisClient: Redis v9 客户端实例。
	JwtToken       dependencies.JWTTokenInterface  // JWTUtil: JWT 工具实例。
	GoogleVerifier dependencies.GoogleVerifier     // GoogleVerifier: Google ID Token 校验器。
	COSClient      dependencies.COSClientInterface // COSClient: 头像对象存储客户端。
}

// SetupDependencies 初始化应用所需的所有基础依赖项。
// 设计目的:
//   - 按正确的顺序创建和配置各个依赖组件（日志、数据库、Redis、外部客户端等）。
//   - 处理初始化过程中可能出现的错误。
//   - 返回一个包含所有已初始化依赖的 AppDependencies 结构体。
func SetupDependencies(cfg *config.KathHubConfig, logger *core.ZapLogger) (*AppDependencies, error) {
	var deps AppDependencies
	deps.Config = cfg
	deps.Logger = logger

	// 1. 注册自定义验证器
	if err := utils.RegisterCustomValidators(); err != nil {
		return nil, fmt.Errorf("注册自定义验证器失败: %w", err)
	}
	logger.Info("自定义验证器注册成功")

	// 2. 初始化数据库连接 (MySQL)，并迁移用户、身份与资料表
	db, err := dependencies.InitMySQL(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化数据库失败: %w", err)
	}
	deps.DB = db
	logger.Info("数据库连接初始化成功")

	// 3. 初始化 Redis 连接，用于会话记录与身份变更广播
	redisClient, err := dependencies.InitRedis(&cfg.RedisConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("初始化 Redis 失败: %w", err)
	}
	deps.RedisClient = redisClient
	logger.Info("Redis 连接初始化成功")

	// 4. 初始化 JWT 工具
	deps.JwtToken = dependencies.NewJWTUtility(&cfg.JWTConfig)
	logger.Info("JWT 工具初始化成功")

	// 5. 初始化 Google ID Token 校验器
	if cfg.GoogleConfig.ClientID == "" {
		logger.Warn("未配置 Google ClientID，所有 Google 登录都将被拒绝")
	}
	deps.GoogleVerifier = dependencies.NewGoogleVerifier(&cfg.GoogleConfig)
	logger.Info("Google 登录校验器初始化成功", zap.String("clientID", cfg.GoogleConfig.ClientID))

	// 6. 初始化 COS 客户端
	cosClient, err := dependencies.InitCOS(&cfg.COSConfig, logger)
	if err != nil {
		logger.Error("初始化 COS 客户端失败", zap.Error(err))
		return nil, fmt.Errorf("初始化 COS 客户端失败: %w", err)
	}
	deps.COSClient = cosClient
	logger.Info("COS 客户端初始化成功")

	logger.Info("所有基础依赖项初始化完成")
	return &deps, nil
}
