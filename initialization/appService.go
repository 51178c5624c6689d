package initialization

import (
	"github.com/Xushengqwer/kath_hub/repository/mysql"
	"github.com/Xushengqwer/kath_hub/repository/redis"
	"github.com/Xushengqwer/kath_hub/service/profile"
	"github.com/Xushengqwer/kath_hub/service/screen"
	"github.com/Xushengqwer/kath_hub/service/session"
)

// AppServices 封装了应用所需的所有服务层实例。
type AppServices struct {
	SessionService session.SessionService
	ProfileService profile.UserProfileService
	Screens        *screen.Registry

	// StopIdentityRelay 取消编辑页面注册表对身份变更的订阅
	StopIdentityRelay func()
}

// SetupServices 初始化所有仓库层和服务层实例。
func SetupServices(deps *AppDependencies) *AppServices {
	baseLogger := deps.Logger.Logger()

	// 1. 初始化 MySQL 仓库实例
	identityRepo := mysql.NewIdentityRepository(deps.DB)
	userRepo := mysql.NewUserRepository(deps.DB)
	profileRepo := mysql.NewProfileRepository(deps.DB)

	// 2. 初始化 Redis 仓库实例
	sessionRepo := redis.NewSessionRepo(deps.RedisClient)

	// 3. 初始化服务层实例
	sessionService := session.NewSessionService(
		identityRepo,
		userRepo,
		sessionRepo,
		deps.JwtToken,
		deps.GoogleVerifier,
		session.GormTx(deps.DB),
		baseLogger,
	)

	profileService := profile.NewUserProfileService(profileRepo, baseLogger)

	factory := screen.NewComponentFactory(
		profile.NewStore(profileRepo),
		profile.NewAvatarStore(deps.COSClient),
		deps.Config.ProfileConfig,
		baseLogger,
	)
	registry := screen.NewRegistry(factory, deps.Config.ProfileConfig, baseLogger)

	// 4. 会话退出时关闭其编辑页面（本实例发起的与其他实例广播来的都会经过这里）
	stop := sessionService.OnIdentityChange(registry.HandleIdentityChange)

	return &AppServices{
		SessionService:    sessionService,
		ProfileService:    profileService,
		Screens:           registry,
		StopIdentityRelay: stop,
	}
}
