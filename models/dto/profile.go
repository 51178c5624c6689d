package dto

// UpdateFieldsDTO 定义编辑中修改表单字段的请求结构体。
// - 使用指针类型字段，只有请求中明确提供的字段才会修改工作副本。
// - Age 保持原始文本，保存时才解析，无法解析按 0 处理。
type UpdateFieldsDTO struct {
	Name       *string `json:"name,omitempty" binding:"omitempty,max=255,ProfileText" example:"Alice"`
	Age        *string `json:"age,omitempty" binding:"omitempty,max=16,ProfileText" example:"30"`
	Phone      *string `json:"phone,omitempty" binding:"omitempty,max=64,ProfileText" example:"+1 555 0100"`
	Location   *string `json:"location,omitempty" binding:"omitempty,max=255,ProfileText" example:"Berlin"`
	Occupation *string `json:"occupation,omitempty" binding:"omitempty,max=255,ProfileText" example:"Engineer"`
	Bio        *string `json:"bio,omitempty" binding:"omitempty,max=2000,ProfileText" example:"Hello there"`
}
