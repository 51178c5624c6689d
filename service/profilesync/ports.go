package profilesync

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound 资料存储中不存在该用户的文档。
	ErrNotFound = errors.New("profile document not found")
	// ErrAlreadyExists 非破坏性创建时文档已存在。
	ErrAlreadyExists = errors.New("profile document already exists")
	// ErrAlreadyEditing 已处于编辑状态时再次调用 BeginEdit。
	ErrAlreadyEditing = errors.New("edit session is already editing")
	// ErrNotEditing 未处于编辑状态时修改工作副本。
	ErrNotEditing = errors.New("edit session is not editing")
	// ErrClosed 组件已关闭（页面已销毁）。
	ErrClosed = errors.New("profile sync component is closed")
)

// Identity 当前登录用户的身份快照，由 SessionProvider 提供。
type Identity struct {
	UserID      string
	DisplayName string
	Email       string
	PhotoURL    string
}

// Document 是资料存储中每个用户的一条持久化记录。
// 所有字段均为指针：nil 表示该字段在存储中不存在（读取时），或不参与写入（合并写时）。
type Document struct {
	Name            *string
	Email           *string
	Age             *int
	Phone           *string
	Location        *string
	Occupation      *string
	Bio             *string
	ProfileImageURL *string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
}

// SessionProvider 提供当前身份与退出登录能力。
// CurrentIdentity 不得阻塞：它在组件的事件循环上被调用。
type SessionProvider interface {
	CurrentIdentity() (Identity, bool)
	SignOut(ctx context.Context) error
}

// ProfileStore 是以用户 ID 为键的远程文档存储。
type ProfileStore interface {
	// Get 读取文档；不存在时返回 ErrNotFound。
	Get(ctx context.Context, userID string) (*Document, error)
	// Set 写入文档。merge 为 true 时只更新 doc 中非 nil 的字段，文档不存在则创建。
	Set(ctx context.Context, userID string, doc Document, merge bool) error
	// Create 非破坏性创建；文档已存在时返回 ErrAlreadyExists，且不修改已有文档。
	Create(ctx context.Context, userID string, doc Document) error
}

// BlobStore 接收按路径寻址的二进制上传，并提供可访问的 URL。
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	DownloadURL(ctx context.Context, path string) (string, error)
}

// ImageEncoder 把用户选择的原始图片转换为待上传的 JPEG 数据。
type ImageEncoder func(raw []byte) ([]byte, error)
