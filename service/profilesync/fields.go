package profilesync

import (
	"strconv"
	"time"

	"github.com/Xushengqwer/kath_hub/constants"
)

// Fields 是编辑表单中的工作副本。Age 保持用户输入的原始文本，保存时才解析。
type Fields struct {
	Name       string
	Age        string
	Phone      string
	Location   string
	Occupation string
	Bio        string
}

// FieldsPatch 描述对工作副本的部分修改，nil 字段保持不变。
type FieldsPatch struct {
	Name       *string
	Age        *string
	Phone      *string
	Location   *string
	Occupation *string
	Bio        *string
}

func (p FieldsPatch) applyTo(f *Fields) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Age != nil {
		f.Age = *p.Age
	}
	if p.Phone != nil {
		f.Phone = *p.Phone
	}
	if p.Location != nil {
		f.Location = *p.Location
	}
	if p.Occupation != nil {
		f.Occupation = *p.Occupation
	}
	if p.Bio != nil {
		f.Bio = *p.Bio
	}
}

// snapshot 是最近一次成功加载或保存后的持久化状态。
type snapshot struct {
	fields          Fields
	profileImageURL string
}

// snapshotFromDocument 用存储文档填充快照，缺失字段使用默认值：
// name 取会话显示名，bio 取占位文案，age 取 0，其余为空串。
func snapshotFromDocument(doc *Document, ident Identity) snapshot {
	s := snapshot{
		fields: Fields{
			Name: stringOr(doc.Name, ident.DisplayName),
			Age:  "0",
			Bio:  stringOr(doc.Bio, constants.DefaultBio),
		},
	}
	if doc.Age != nil {
		s.fields.Age = strconv.Itoa(*doc.Age)
	}
	s.fields.Phone = stringOr(doc.Phone, "")
	s.fields.Location = stringOr(doc.Location, "")
	s.fields.Occupation = stringOr(doc.Occupation, "")
	s.profileImageURL = stringOr(doc.ProfileImageURL, "")
	return s
}

// Resolve 返回补齐默认值后的表单字段与头像 URL，规则与加载时相同。
func Resolve(doc *Document, ident Identity) (Fields, string) {
	s := snapshotFromDocument(doc, ident)
	return s.fields, s.profileImageURL
}

// savePayload 构造合并写的文档：全部工作副本 + 当前头像 URL + 更新时间。
func savePayload(f Fields, profileImageURL string, now time.Time) Document {
	age := parseAge(f.Age)
	return Document{
		Name:            ptr(f.Name),
		Age:             &age,
		Phone:           ptr(f.Phone),
		Location:        ptr(f.Location),
		Occupation:      ptr(f.Occupation),
		Bio:             ptr(f.Bio),
		ProfileImageURL: ptr(profileImageURL),
		UpdatedAt:       &now,
	}
}

// initialDocument 是首次加载时创建的种子文档。
func initialDocument(ident Identity, now time.Time) Document {
	return Document{
		Name:            ptr(ident.DisplayName),
		Email:           ptr(ident.Email),
		ProfileImageURL: ptr(ident.PhotoURL),
		CreatedAt:       &now,
	}
}

// parseAge 无法解析为整数的输入一律按 0 处理，不视为错误。
func parseAge(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}

func stringOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

func ptr[T any](v T) *T { return &v }
