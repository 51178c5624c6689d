package entities

import (
	"time"
)

// UserProfile 用户资料文档，每个用户一行。
// 除 UserID 外的列都可为空：NULL 表示文档中不存在该字段，读取时由上层补默认值。
type UserProfile struct {
	// 用户 ID 即文档 ID
	UserID string `gorm:"type:char(36);primary_key"`

	Name       *string `gorm:"type:varchar(255)"`
	Email      *string `gorm:"type:varchar(255)"`
	Age        *int    `gorm:"type:int"`
	Phone      *string `gorm:"type:varchar(64)"`
	Location   *string `gorm:"type:varchar(255)"`
	Occupation *string `gorm:"type:varchar(255)"`
	Bio        *string `gorm:"type:text"`

	// 头像 URL
	ProfileImageURL *string `gorm:"type:varchar(1024);column:profile_image_url"`

	// 首次创建时间，由创建资料时写入
	CreatedAt *time.Time `gorm:"type:timestamp NULL;autoCreateTime:false"`

	// 最近一次保存时间，由保存时写入
	UpdatedAt *time.Time `gorm:"type:timestamp NULL;autoUpdateTime:false"`
}
