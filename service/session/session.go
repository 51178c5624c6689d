package session

import (
	"context"
	"errors"
	"fmt" // 引入 fmt 包用于错误包装
	"time"

	// 引入公共模块
	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/Xushengqwer/go-common/models/enums"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap" // 引入 zap 用于日志字段
	"gorm.io/gorm"

	"github.com/Xushengqwer/kath_hub/constants"
	"github.com/Xushengqwer/kath_hub/dependencies"
	"github.com/Xushengqwer/kath_hub/models/dto"
	"github.com/Xushengqwer/kath_hub/models/entities"
	myenums "github.com/Xushengqwer/kath_hub/models/enums"
	"github.com/Xushengqwer/kath_hub/models/vo"
	"github.com/Xushengqwer/kath_hub/repository/mysql"
	"github.com/Xushengqwer/kath_hub/repository/redis"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
)

var (
	ErrGoogleLoginFailed   = errors.New("Google 登录凭证校验失败")
	ErrInvalidRefreshToken = errors.New("无效的刷新令牌")
	ErrSessionRevoked      = errors.New("会话已失效，请重新登录")
	ErrUserInactive        = errors.New("用户状态异常")
)

// SessionService 定义了登录会话的服务接口。
// 设计目的:
// - 会话（Session）是一次 Google 登录的结果，保存在 Redis 中，令牌只是会话的凭据。
// - 退出登录删除会话并广播身份变更，所有实例上该会话打开的编辑页面随之关闭。
type SessionService interface {
	// SignInWithGoogle 校验 Google ID Token，首次登录时自动注册，然后创建会话并签发令牌。
	SignInWithGoogle(ctx context.Context, data dto.GoogleLoginData, platform enums.Platform) (vo.Userinfo, vo.TokenPair, error)

	// Refresh 使用刷新令牌续期会话并签发新的令牌对，会话已退出时返回 ErrSessionRevoked。
	Refresh(ctx context.Context, refreshToken string) (vo.TokenPair, error)

	// SignOut 结束会话。会话不存在也视为成功。
	SignOut(ctx context.Context, sessionID string) error

	// CurrentIdentity 返回会话登录时的身份快照，会话不存在时返回 ErrSessionRevoked。
	CurrentIdentity(ctx context.Context, sessionID string) (profilesync.Identity, error)

	// Bind 创建一个绑定到会话的身份提供者，供编辑页面组件使用。
	Bind(identity profilesync.Identity, sessionID string) *Binding

	// OnIdentityChange 注册本地身份变更回调，返回取消函数。
	OnIdentityChange(fn func(redis.IdentityChange)) (cancel func())

	// ListenRemote 订阅其他实例广播的身份变更并分发给本地回调，阻塞直到 ctx 结束。
	ListenRemote(ctx context.Context) error
}

// TxRunner 在事务中执行 fn。
type TxRunner func(ctx context.Context, fn func(tx *gorm.DB) error) error

// GormTx 返回基于 gorm 的 TxRunner。
func GormTx(db *gorm.DB) TxRunner {
	return func(ctx context.Context, fn func(tx *gorm.DB) error) error {
		return db.WithContext(ctx).Transaction(fn)
	}
}

// sessionService 是 SessionService 接口的实现。
type sessionService struct {
	identityRepo mysql.IdentityRepository       // 身份仓库
	userRepo     mysql.UserRepository           // 用户仓库
	sessionRepo  redis.SessionRepo              // 会话仓库
	jwtUtil      dependencies.JWTTokenInterface // JWT 工具
	google       dependencies.GoogleVerifier    // Google ID Token 校验
	tx           TxRunner
	logger       *zap.Logger
	now          func() time.Time
	newSessionID func() string

	listeners listenerSet
}

func NewSessionService(
	identityRepo mysql.IdentityRepository,
	userRepo mysql.UserRepository,
	sessionRepo redis.SessionRepo,
	jwtUtil dependencies.JWTTokenInterface,
	google dependencies.GoogleVerifier,
	tx TxRunner,
	logger *zap.Logger,
) SessionService {
	return &sessionService{
		identityRepo: identityRepo,
		userRepo:     userRepo,
		sessionRepo:  sessionRepo,
		jwtUtil:      jwtUtil,
		google:       google,
		tx:           tx,
		logger:       logger,
		now:          time.Now,
		newSessionID: newULID,
	}
}

func newULID() string {
	return ulid.Make().String()
}

// SignInWithGoogle 实现接口方法。
func (s *sessionService) SignInWithGoogle(ctx context.Context, data dto.GoogleLoginData, platform enums.Platform) (vo.Userinfo, vo.TokenPair, error) {
	const operation = "SessionService.SignInWithGoogle"
	emptyUserInfo := vo.Userinfo{}
	emptyTokenPair := vo.TokenPair{}

	// 1. 校验 ID Token
	account, err := s.google.Verify(ctx, data.IDToken)
	if err != nil {
		s.logger.Warn("Google ID Token 校验失败", zap.String("operation", operation), zap.Error(err))
		return emptyUserInfo, emptyTokenPair, ErrGoogleLoginFailed
	}

	// 2. 查找或注册用户，并同步最新的账号信息
	var userID string
	txErr := s.tx(ctx, func(tx *gorm.DB) error {
		identity, err := s.identityRepo.GetIdentityByTypeAndIdentifier(ctx, tx, myenums.Google, account.Subject)
		if err == nil {
			userID = identity.UserID
			return s.userRepo.SyncGoogleProfile(ctx, tx, userID, account.DisplayName, account.Email, account.PhotoURL)
		}
		if !errors.Is(err, commonerrors.ErrRepoNotFound) {
			return err
		}

		newUserID := uuid.New().String()
		s.logger.Info("Google 用户首次登录，开始自动注册",
			zap.String("operation", operation),
			zap.String("newUserID", newUserID),
		)
		if err := s.userRepo.CreateUser(ctx, tx, &entities.User{
			UserID:      newUserID,
			DisplayName: account.DisplayName,
			Email:       account.Email,
			PhotoURL:    account.PhotoURL,
			UserRole:    enums.RoleUser,
			Status:      enums.StatusActive,
		}); err != nil {
			return fmt.Errorf("事务中创建用户失败: %w", err)
		}
		if err := s.identityRepo.CreateIdentity(ctx, tx, &entities.UserIdentity{
			UserID:       newUserID,
			IdentityType: myenums.Google,
			Identifier:   account.Subject,
		}); err != nil {
			return fmt.Errorf("事务中创建身份失败: %w", err)
		}
		userID = newUserID
		return nil
	})
	if txErr != nil {
		s.logger.Error("Google 登录事务失败", zap.String("operation", operation), zap.Error(txErr))
		return emptyUserInfo, emptyTokenPair, commonerrors.ErrServiceBusy
	}

	// 3. 检查用户状态
	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error("获取用户信息失败", zap.String("operation", operation), zap.String("userID", userID), zap.Error(err))
		return emptyUserInfo, emptyTokenPair, commonerrors.ErrSystemError
	}
	if user.Status != enums.StatusActive {
		s.logger.Warn("用户尝试登录但状态异常",
			zap.String("operation", operation),
			zap.String("userID", userID),
			zap.Any("status", user.Status),
		)
		return emptyUserInfo, emptyTokenPair, ErrUserInactive
	}

	// 4. 创建会话
	record := &redis.SessionRecord{
		SessionID:   s.newSessionID(),
		UserID:      user.UserID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		PhotoURL:    account.PhotoURL,
		Platform:    platform,
		CreatedAt:   s.now(),
	}
	if err := s.sessionRepo.SaveSession(ctx, record, constants.RefreshTokenTTL); err != nil {
		s.logger.Error("写入会话失败", zap.String("operation", operation), zap.String("userID", userID), zap.Error(err))
		return emptyUserInfo, emptyTokenPair, commonerrors.ErrServiceBusy
	}

	// 5. 生成令牌
	pair, err := s.issueTokens(user, record.SessionID, platform)
	if err != nil {
		s.logger.Error("生成令牌失败", zap.String("operation", operation), zap.String("userID", userID), zap.Error(err))
		return emptyUserInfo, emptyTokenPair, commonerrors.ErrServiceBusy
	}

	s.publish(ctx, redis.IdentityChange{Event: redis.EventSignedIn, SessionID: record.SessionID, UserID: user.UserID, At: s.now()})
	s.logger.Info("Google 登录成功",
		zap.String("operation", operation),
		zap.String("userID", userID),
		zap.String("sessionID", record.SessionID),
	)
	return vo.Userinfo{
		UserID:      user.UserID,
		DisplayName: account.DisplayName,
		Email:       account.Email,
		PhotoURL:    account.PhotoURL,
	}, pair, nil
}

func (s *sessionService) issueTokens(user *entities.User, sessionID string, platform enums.Platform) (vo.TokenPair, error) {
	accessToken, err := s.jwtUtil.GenerateAccessToken(user.UserID, sessionID, user.UserRole, user.Status, platform)
	if err != nil {
		return vo.TokenPair{}, err
	}
	refreshToken, err := s.jwtUtil.GenerateRefreshToken(user.UserID, sessionID, platform)
	if err != nil {
		return vo.TokenPair{}, err
	}
	return vo.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh 实现接口方法。
func (s *sessionService) Refresh(ctx context.Context, refreshToken string) (vo.TokenPair, error) {
	const operation = "SessionService.Refresh"
	emptyTokenPair := vo.TokenPair{}

	// 1. 解析 Refresh Token 获取声明 (Claims)
	claims, err := s.jwtUtil.ParseRefreshToken(refreshToken)
	if err != nil {
		s.logger.Warn("解析 Refresh Token 失败或令牌无效", zap.String("operation", operation), zap.Error(err))
		return emptyTokenPair, ErrInvalidRefreshToken
	}

	// 2. 会话必须仍然存在且属于同一用户
	record, err := s.sessionRepo.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			s.logger.Warn("尝试使用已退出会话的 Refresh Token",
				zap.String("operation", operation),
				zap.String("sessionID", claims.SessionID),
				zap.String("userID", claims.UserID),
			)
			return emptyTokenPair, ErrSessionRevoked
		}
		s.logger.Error("读取会话失败", zap.String("operation", operation), zap.String("sessionID", claims.SessionID), zap.Error(err))
		return emptyTokenPair, commonerrors.ErrSystemError
	}
	if record.UserID != claims.UserID {
		s.logger.Warn("Refresh Token 与会话用户不一致",
			zap.String("operation", operation),
			zap.String("sessionID", claims.SessionID),
			zap.String("tokenUserID", claims.UserID),
			zap.String("sessionUserID", record.UserID),
		)
		return emptyTokenPair, ErrInvalidRefreshToken
	}

	// 3. 获取最新的用户信息并检查状态
	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("刷新令牌时获取用户信息失败", zap.String("operation", operation), zap.String("userID", claims.UserID), zap.Error(err))
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			return emptyTokenPair, ErrInvalidRefreshToken
		}
		return emptyTokenPair, commonerrors.ErrSystemError
	}
	if user.Status != enums.StatusActive {
		s.logger.Warn("尝试刷新令牌但用户状态异常",
			zap.String("operation", operation),
			zap.String("userID", claims.UserID),
			zap.Any("status", user.Status),
		)
		return emptyTokenPair, ErrUserInactive
	}

	// 4. 续期会话并签发新令牌，平台信息沿用旧令牌
	if err := s.sessionRepo.TouchSession(ctx, claims.SessionID, constants.RefreshTokenTTL); err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			return emptyTokenPair, ErrSessionRevoked
		}
		s.logger.Error("续期会话失败", zap.String("operation", operation), zap.String("sessionID", claims.SessionID), zap.Error(err))
		return emptyTokenPair, commonerrors.ErrSystemError
	}
	pair, err := s.issueTokens(user, claims.SessionID, claims.Platform)
	if err != nil {
		s.logger.Error("生成新令牌失败", zap.String("operation", operation), zap.String("userID", claims.UserID), zap.Error(err))
		return emptyTokenPair, commonerrors.ErrSystemError
	}

	s.logger.Info("成功刷新令牌",
		zap.String("operation", operation),
		zap.String("userID", claims.UserID),
		zap.String("sessionID", claims.SessionID),
	)
	return pair, nil
}

// SignOut 实现接口方法。
func (s *sessionService) SignOut(ctx context.Context, sessionID string) error {
	const operation = "SessionService.SignOut"

	record, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, commonerrors.ErrRepoNotFound) {
		s.logger.Error("退出登录时读取会话失败", zap.String("operation", operation), zap.String("sessionID", sessionID), zap.Error(err))
		return commonerrors.ErrServiceBusy
	}
	existed, err := s.sessionRepo.DeleteSession(ctx, sessionID)
	if err != nil {
		s.logger.Error("删除会话失败", zap.String("operation", operation), zap.String("sessionID", sessionID), zap.Error(err))
		return commonerrors.ErrServiceBusy
	}
	if !existed {
		s.logger.Info("会话不存在或已过期，视为已退出", zap.String("operation", operation), zap.String("sessionID", sessionID))
	}

	change := redis.IdentityChange{Event: redis.EventSignedOut, SessionID: sessionID, At: s.now()}
	if record != nil {
		change.UserID = record.UserID
	}
	s.publish(ctx, change)
	s.logger.Info("会话已退出", zap.String("operation", operation), zap.String("sessionID", sessionID))
	return nil
}

// CurrentIdentity 实现接口方法。
func (s *sessionService) CurrentIdentity(ctx context.Context, sessionID string) (profilesync.Identity, error) {
	record, err := s.sessionRepo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			return profilesync.Identity{}, ErrSessionRevoked
		}
		return profilesync.Identity{}, fmt.Errorf("SessionService.CurrentIdentity: %w", err)
	}
	return profilesync.Identity{
		UserID:      record.UserID,
		DisplayName: record.DisplayName,
		Email:       record.Email,
		PhotoURL:    record.PhotoURL,
	}, nil
}

// Bind 实现接口方法。
func (s *sessionService) Bind(identity profilesync.Identity, sessionID string) *Binding {
	return NewBinding(identity, sessionID, s.SignOut)
}

// publish 先广播给其他实例，再通知本地回调。本地回调可能关闭发起退出的页面并取消其 ctx，
// 因此广播必须在前。广播失败只记录日志。
func (s *sessionService) publish(ctx context.Context, change redis.IdentityChange) {
	if err := s.sessionRepo.PublishIdentityChange(ctx, change); err != nil {
		s.logger.Warn("广播身份变更失败",
			zap.String("event", change.Event),
			zap.String("sessionID", change.SessionID),
			zap.Error(err),
		)
	}
	s.listeners.dispatch(change)
}
