package utils

import (
	"fmt"
	"github.com/gin-gonic/gin/binding"       // Gin 框架的数据绑定包
	"github.com/go-playground/validator/v10" // 强大的数据校验库

	"reflect"
	"unicode" // Unicode字符处理包
)

// ValidateProfileText 校验资料文本字段：允许任意可打印字符、换行与制表符，拒绝其余控制字符。
// 同时适用于 string 与 *string 字段，nil 指针视为未提供，校验通过。
func ValidateProfileText(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}
		field = field.Elem()
	}
	if field.Kind() != reflect.String {
		return false
	}
	return IsProfileText(field.String())
}

// IsProfileText 是 ValidateProfileText 的纯字符串版本。
func IsProfileText(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return false
		}
	}
	return true
}

// RegisterCustomValidators 将所有自定义的校验函数注册到 Gin 的 validator 引擎中。
// 这样就可以在 DTO 的 struct tag 中使用这些自定义的校验标签了。
// 例如: `binding:"omitempty,ProfileText"`
func RegisterCustomValidators() error {
	// 获取 Gin 使用的 validator 实例
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		validations := map[string]validator.Func{
			"ProfileText": ValidateProfileText, // 资料文本字段校验
		}

		for tag, validation := range validations {
			if err := v.RegisterValidation(tag, validation); err != nil {
				// 如果注册失败，返回错误信息，这通常会导致应用启动失败
				return fmt.Errorf("注册验证器 '%s' 失败: %w", tag, err)
			}
		}
	}
	return nil // 所有校验器注册成功
}
