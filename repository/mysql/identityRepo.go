package mysql

import (
	"context"
	"errors"
	"fmt" // 引入 fmt 包用于错误包装
	"github.com/Xushengqwer/go-common/commonerrors"

	"github.com/Xushengqwer/kath_hub/models/entities"
	"github.com/Xushengqwer/kath_hub/models/enums"

	"gorm.io/gorm"
)

// IdentityRepository 定义了与用户身份（UserIdentity）数据存储相关的操作接口。
// - 一个第三方账号（类型 + 标识符）唯一对应一个用户。
type IdentityRepository interface {
	// CreateIdentity 持久化一个新的用户身份记录。
	// - 使用传入的 db 对象执行操作，使其能够参与外部事务。
	CreateIdentity(ctx context.Context, db *gorm.DB, identity *entities.UserIdentity) error

	// GetIdentityByTypeAndIdentifier 根据身份类型和唯一标识符检索身份记录，登录时据此找到已有用户。
	// - 如果未找到匹配的身份，将返回 commonerrors.ErrRepoNotFound。
	GetIdentityByTypeAndIdentifier(ctx context.Context, db *gorm.DB, identityType enums.IdentityType, identifier string) (*entities.UserIdentity, error)
}

// identityRepository 是 IdentityRepository 接口基于 GORM 的实现。
type identityRepository struct {
	db *gorm.DB // db 是 GORM 数据库连接实例
}

// NewIdentityRepository 创建一个新的 identityRepository 实例。
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

// CreateIdentity 实现接口方法，持久化用户身份记录。
func (r *identityRepository) CreateIdentity(ctx context.Context, db *gorm.DB, identity *entities.UserIdentity) error {
	if err := db.WithContext(ctx).Create(identity).Error; err != nil {
		return fmt.Errorf("identityRepo.CreateIdentity: 创建身份失败: %w", err)
	}
	return nil
}

// GetIdentityByTypeAndIdentifier 实现接口方法。db 为 nil 时使用仓库自带的连接。
func (r *identityRepository) GetIdentityByTypeAndIdentifier(ctx context.Context, db *gorm.DB, identityType enums.IdentityType, identifier string) (*entities.UserIdentity, error) {
	if db == nil {
		db = r.db
	}
	var identity entities.UserIdentity
	err := db.WithContext(ctx).
		Where("identity_type = ? AND identifier = ?", identityType, identifier).
		First(&identity).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, commonerrors.ErrRepoNotFound
		}
		return nil, fmt.Errorf("identityRepo.GetIdentityByTypeAndIdentifier: 查询身份失败 (类型: %d, 标识符: %s): %w", identityType, identifier, err)
	}
	return &identity, nil
}
