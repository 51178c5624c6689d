package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/Xushengqwer/kath_hub/dependencies"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
)

// ErrAvatarStorage 对象存储调用失败。
var ErrAvatarStorage = errors.New("头像存储服务异常")

// AvatarStore 把 COS 客户端适配为头像上传所需的对象存储。
type AvatarStore struct {
	cos dependencies.COSClientInterface
}

var _ profilesync.BlobStore = (*AvatarStore)(nil)

func NewAvatarStore(cos dependencies.COSClientInterface) *AvatarStore {
	return &AvatarStore{cos: cos}
}

func (a *AvatarStore) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := a.cos.PutObject(ctx, path, data, contentType); err != nil {
		return fmt.Errorf("上传头像到 COS 失败: %w: %w", ErrAvatarStorage, err)
	}
	return nil
}

// DownloadURL 对象不存在时返回错误。
// 拿不到地址的对象不会被资料引用，顺手删除，删除失败忽略。
func (a *AvatarStore) DownloadURL(ctx context.Context, path string) (string, error) {
	url, err := a.cos.ObjectURL(ctx, path)
	if err != nil {
		_ = a.cos.DeleteObject(ctx, path)
		return "", fmt.Errorf("获取头像地址失败: %w", err)
	}
	return url, nil
}
