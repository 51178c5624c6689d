package profile

import (
	"context"
	"errors"
	"fmt"

	// 引入公共模块
	"github.com/Xushengqwer/go-common/commonerrors"
	"go.uber.org/zap" // 引入 zap 用于日志字段

	"github.com/Xushengqwer/kath_hub/models/entities"
	"github.com/Xushengqwer/kath_hub/models/vo"
	"github.com/Xushengqwer/kath_hub/repository/mysql"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
)

// UserProfileService 定义了读取用户资料文档的服务接口。
// 设计目的:
// - 资料的编辑统一走编辑页面（screen），这里只提供补齐默认值后的只读视图。
// 使用场景:
// - 客户端在未打开编辑页面时展示自己的资料卡片。
type UserProfileService interface {
	// GetMyProfile 获取当前会话用户的资料文档。
	// 参数:
	//  - identity: 会话身份快照，用于补齐缺失的 name/email。
	// 返回:
	//  - *vo.ProfileVO: 补齐默认值后的资料视图。
	//  - error: 文档不存在时返回 commonerrors.ErrRepoNotFound。
	GetMyProfile(ctx context.Context, identity profilesync.Identity) (*vo.ProfileVO, error)
}

// userProfileService 是 UserProfileService 接口的实现。
type userProfileService struct {
	repo   mysql.ProfileRepository // repo: 用户资料数据仓库。
	logger *zap.Logger             // logger: 日志记录器。
}

func NewUserProfileService(repo mysql.ProfileRepository, logger *zap.Logger) UserProfileService {
	return &userProfileService{repo: repo, logger: logger}
}

// GetMyProfile 实现接口方法
func (s *userProfileService) GetMyProfile(ctx context.Context, identity profilesync.Identity) (*vo.ProfileVO, error) {
	const operation = "UserProfileService.GetMyProfile"

	profileEntity, err := s.repo.GetProfileByUserID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			s.logger.Info("用户资料尚未创建",
				zap.String("operation", operation),
				zap.String("userID", identity.UserID),
			)
			return nil, commonerrors.ErrRepoNotFound
		}
		s.logger.Error("获取用户资料失败",
			zap.String("operation", operation),
			zap.String("userID", identity.UserID),
			zap.Error(err),
		)
		return nil, commonerrors.ErrSystemError
	}

	doc := entityToDocument(profileEntity)
	fields, imageURL := profilesync.Resolve(&doc, identity)
	email := identity.Email
	if doc.Email != nil {
		email = *doc.Email
	}
	age := 0
	if doc.Age != nil {
		age = *doc.Age
	}
	return &vo.ProfileVO{
		UserID:          identity.UserID,
		Name:            fields.Name,
		Email:           email,
		Age:             age,
		Phone:           fields.Phone,
		Location:        fields.Location,
		Occupation:      fields.Occupation,
		Bio:             fields.Bio,
		ProfileImageURL: imageURL,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}, nil
}

// Store 把资料仓库适配为编辑页面组件使用的文档存储。
type Store struct {
	repo mysql.ProfileRepository
}

var _ profilesync.ProfileStore = (*Store)(nil)

func NewStore(repo mysql.ProfileRepository) *Store {
	return &Store{repo: repo}
}

func (s *Store) Get(ctx context.Context, userID string) (*profilesync.Document, error) {
	profileEntity, err := s.repo.GetProfileByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, commonerrors.ErrRepoNotFound) {
			return nil, profilesync.ErrNotFound
		}
		return nil, err
	}
	doc := entityToDocument(profileEntity)
	return &doc, nil
}

func (s *Store) Set(ctx context.Context, userID string, doc profilesync.Document, merge bool) error {
	profileEntity := documentToEntity(userID, doc)
	if merge {
		return s.repo.MergeProfile(ctx, profileEntity)
	}
	return s.repo.ReplaceProfile(ctx, profileEntity)
}

func (s *Store) Create(ctx context.Context, userID string, doc profilesync.Document) error {
	err := s.repo.CreateProfileIfAbsent(ctx, documentToEntity(userID, doc))
	if errors.Is(err, mysql.ErrProfileExists) {
		return fmt.Errorf("%w: %s", profilesync.ErrAlreadyExists, userID)
	}
	return err
}

func entityToDocument(p *entities.UserProfile) profilesync.Document {
	return profilesync.Document{
		Name:            p.Name,
		Email:           p.Email,
		Age:             p.Age,
		Phone:           p.Phone,
		Location:        p.Location,
		Occupation:      p.Occupation,
		Bio:             p.Bio,
		ProfileImageURL: p.ProfileImageURL,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func documentToEntity(userID string, doc profilesync.Document) *entities.UserProfile {
	return &entities.UserProfile{
		UserID:          userID,
		Name:            doc.Name,
		Email:           doc.Email,
		Age:             doc.Age,
		Phone:           doc.Phone,
		Location:        doc.Location,
		Occupation:      doc.Occupation,
		Bio:             doc.Bio,
		ProfileImageURL: doc.ProfileImageURL,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}
