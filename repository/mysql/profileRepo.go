package mysql

import (
	"context"
	"errors"
	"fmt" // 引入 fmt 包用于错误包装
	"github.com/Xushengqwer/go-common/commonerrors"

	"github.com/Xushengqwer/kath_hub/models/entities"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrProfileExists 非破坏性创建时资料已存在。
var ErrProfileExists = errors.New("用户资料已存在")

// ProfileRepository 定义了与用户资料文档（UserProfile）数据存储相关的操作接口。
// - 每个用户一行，主键即用户 ID；为空的列表示文档中不存在该字段。
type ProfileRepository interface {
	// GetProfileByUserID 根据用户 ID 读取资料文档。
	// - 如果未找到，将返回 commonerrors.ErrRepoNotFound。
	// - 其他数据库错误将被包装后返回。
	GetProfileByUserID(ctx context.Context, userID string) (*entities.UserProfile, error)

	// MergeProfile 合并写：文档不存在时插入，存在时只覆盖实体中非 nil 的字段。
	MergeProfile(ctx context.Context, profile *entities.UserProfile) error

	// ReplaceProfile 整体覆盖写：实体中为 nil 的字段在数据库中被置为 NULL。
	ReplaceProfile(ctx context.Context, profile *entities.UserProfile) error

	// CreateProfileIfAbsent 非破坏性创建，文档已存在时返回 ErrProfileExists 且不修改任何字段。
	CreateProfileIfAbsent(ctx context.Context, profile *entities.UserProfile) error
}

// profileRepository 是 ProfileRepository 接口基于 GORM 的实现。
type profileRepository struct {
	db *gorm.DB // db 是 GORM 数据库连接实例
}

// NewProfileRepository 创建一个新的 profileRepository 实例。
// - 依赖注入 GORM 数据库连接。
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// GetProfileByUserID 实现接口方法，根据用户 ID 获取用户资料。
func (r *profileRepository) GetProfileByUserID(ctx context.Context, userID string) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error

	if err != nil {
		// 检查是否是 GORM 的“记录未找到”错误
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, commonerrors.ErrRepoNotFound
		}
		return nil, fmt.Errorf("profileRepo.GetProfileByUserID: 查询用户资料失败 (UserID: %s): %w", userID, err)
	}
	return &profile, nil
}

// MergeProfile 实现接口方法，使用 INSERT ... ON DUPLICATE KEY UPDATE 只更新提供了的列。
func (r *profileRepository) MergeProfile(ctx context.Context, profile *entities.UserProfile) error {
	conflict := clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}}
	if cols := presentColumns(profile); len(cols) > 0 {
		conflict.DoUpdates = clause.AssignmentColumns(cols)
	} else {
		conflict.DoNothing = true
	}
	if err := r.db.WithContext(ctx).Clauses(conflict).Create(profile).Error; err != nil {
		return fmt.Errorf("profileRepo.MergeProfile: 合并写用户资料失败 (UserID: %s): %w", profile.UserID, err)
	}
	return nil
}

// ReplaceProfile 实现接口方法，覆盖全部列。
func (r *profileRepository) ReplaceProfile(ctx context.Context, profile *entities.UserProfile) error {
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(profileColumns),
	}
	if err := r.db.WithContext(ctx).Clauses(conflict).Create(profile).Error; err != nil {
		return fmt.Errorf("profileRepo.ReplaceProfile: 覆盖写用户资料失败 (UserID: %s): %w", profile.UserID, err)
	}
	return nil
}

// CreateProfileIfAbsent 实现接口方法，冲突时不做任何修改，通过影响行数判断是否已存在。
func (r *profileRepository) CreateProfileIfAbsent(ctx context.Context, profile *entities.UserProfile) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(profile)
	if result.Error != nil {
		return fmt.Errorf("profileRepo.CreateProfileIfAbsent: 创建用户资料失败 (UserID: %s): %w", profile.UserID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProfileExists
	}
	return nil
}

// profileColumns 除主键外的全部列
var profileColumns = []string{
	"name", "email", "age", "phone", "location", "occupation", "bio",
	"profile_image_url", "created_at", "updated_at",
}

// presentColumns 返回实体中非 nil 字段对应的列名，顺序与 profileColumns 一致。
func presentColumns(p *entities.UserProfile) []string {
	present := []bool{
		p.Name != nil, p.Email != nil, p.Age != nil, p.Phone != nil, p.Location != nil,
		p.Occupation != nil, p.Bio != nil, p.ProfileImageURL != nil, p.CreatedAt != nil, p.UpdatedAt != nil,
	}
	cols := make([]string, 0, len(profileColumns))
	for i, ok := range present {
		if ok {
			cols = append(cols, profileColumns[i])
		}
	}
	return cols
}
