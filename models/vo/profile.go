package vo

import (
	"time"
)

// ProfileVO 定义资料文档的只读视图，缺失字段已按默认值补齐
type ProfileVO struct {
	UserID          string     `json:"user_id" example:"123e4567-e89b-12d3-a456-426614174000"`
	Name            string     `json:"name" example:"Alice"`
	Email           string     `json:"email" example:"alice@example.com"`
	Age             int        `json:"age" example:"30"`
	Phone           string     `json:"phone" example:"+1 555 0100"`
	Location        string     `json:"location" example:"Berlin"`
	Occupation      string     `json:"occupation" example:"Engineer"`
	Bio             string     `json:"bio" example:"Share something about yourself..."`
	ProfileImageURL string     `json:"profile_image_url" example:"https://cdn.example.com/profile_images/u1_1714564800000.jpg"`
	CreatedAt       *time.Time `json:"created_at,omitempty" example:"2024-05-01T12:00:00Z"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty" example:"2024-05-01T12:00:00Z"`
}

// FieldsVO 编辑表单的工作副本，Age 为用户输入的原始文本
type FieldsVO struct {
	Name       string `json:"name" example:"Alice"`
	Age        string `json:"age" example:"30"`
	Phone      string `json:"phone" example:""`
	Location   string `json:"location" example:""`
	Occupation string `json:"occupation" example:"Engineer"`
	Bio        string `json:"bio" example:"Share something about yourself..."`
}

// FeedbackVO 页面提示槽
type FeedbackVO struct {
	Message string `json:"message" example:"Profile updated successfully! 🎉"`
	Visible bool   `json:"visible" example:"true"`
	Seq     uint64 `json:"seq" example:"3"`
}

// ScreenStateVO 一个资料编辑页面的完整可观察状态
type ScreenStateVO struct {
	ScreenID        string     `json:"screen_id" example:"01HXK3Z7Q8V9B2M4N6P8R0T2W4"`
	Fields          FieldsVO   `json:"fields"`
	ProfileImageURL string     `json:"profile_image_url" example:"https://cdn.example.com/profile_images/u1_1714564800000.jpg"`
	Loaded          bool       `json:"loaded" example:"true"`
	IsEditing       bool       `json:"is_editing" example:"false"`
	IsLoading       bool       `json:"is_loading" example:"false"`
	IsUploading     bool       `json:"is_uploading" example:"false"`
	IsRefreshing    bool       `json:"is_refreshing" example:"false"`
	HasPreview      bool       `json:"has_preview" example:"false"`
	Feedback        FeedbackVO `json:"feedback"`
}
