package constants

import "time"

const (
	// DefaultBio 资料中没有 bio 字段时展示的占位文案
	DefaultBio = "Share something about yourself..."

	// ToastDuration 页面提示自动消失前的停留时间
	ToastDuration = 4 * time.Second

	// AvatarPathPrefix 头像在对象存储中的目录，完整路径为 profile_images/<uid>_<毫秒时间戳>.jpg
	AvatarPathPrefix = "profile_images"

	// ScreenIdleTTL 编辑页面无任何请求多久后被回收
	ScreenIdleTTL = 30 * time.Minute

	// MaxPhotoBytes 单张头像原图的最大字节数
	MaxPhotoBytes = 5 << 20

	// MaxOpenScreens 单个会话同时打开的编辑页面上限
	MaxOpenScreens = 8
)
