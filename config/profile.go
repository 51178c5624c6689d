package config

import "time"

// ProfileConfig 资料编辑页面的可调参数，零值字段使用 constants 中的默认值
type ProfileConfig struct {
	ToastDuration  time.Duration `mapstructure:"toast_duration" json:"toast_duration" yaml:"toast_duration"`       // 页面提示停留时间
	ScreenIdleTTL  time.Duration `mapstructure:"screen_idle_ttl" json:"screen_idle_ttl" yaml:"screen_idle_ttl"`    // 编辑页面闲置回收时间
	MaxPhotoBytes  int64         `mapstructure:"max_photo_bytes" json:"max_photo_bytes" yaml:"max_photo_bytes"`    // 头像原图大小上限
	MaxImageSide   int           `mapstructure:"max_image_side" json:"max_image_side" yaml:"max_image_side"`       // 头像最长边像素，超过时等比缩小
	MaxImagePixels int64         `mapstructure:"max_image_pixels" json:"max_image_pixels" yaml:"max_image_pixels"` // 头像宽乘高上限，超过时不解码
	JPEGQuality    int           `mapstructure:"jpeg_quality" json:"jpeg_quality" yaml:"jpeg_quality"`             // 头像重新编码的 JPEG 质量
	MaxOpenScreens int           `mapstructure:"max_open_screens" json:"max_open_screens" yaml:"max_open_screens"` // 单个会话同时打开的页面上限
}
