package dependencies

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Xushengqwer/go-common/core"
	"github.com/Xushengqwer/kath_hub/config"
	"github.com/tencentyun/cos-go-sdk-v5"
	"go.uber.org/zap"
)

// COSClientInterface 定义了对象存储客户端需要实现的方法
type COSClientInterface interface {
	// PutObject 以给定的内容类型写入对象，同名对象被覆盖
	PutObject(ctx context.Context, objectKey string, data []byte, contentType string) error
	// ObjectURL 确认对象存在并返回其公开可访问的 URL
	ObjectURL(ctx context.Context, objectKey string) (string, error)
	// DeleteObject 从COS删除一个对象
	DeleteObject(ctx context.Context, objectKey string) error
}

type cosClient struct {
	client              *cos.Client
	publicAccessURLBase *url.URL // 用于拼接最终对象公开访问URL的基础部分
	logger              *core.ZapLogger
}

// InitCOS 初始化腾讯云 COS 客户端
func InitCOS(cfg *config.COSConfig, logger *core.ZapLogger) (COSClientInterface, error) {
	if cfg == nil {
		logger.Error("COS 配置为空")
		return nil, fmt.Errorf("COS 配置不能为nil")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" || cfg.BucketName == "" || cfg.AppID == "" || cfg.Region == "" {
		logger.Error("COS 配置不完整", zap.String("bucket", cfg.BucketName), zap.String("region", cfg.Region))
		return nil, fmt.Errorf("COS 配置不完整，缺少关键字段 (SecretID, SecretKey, BucketName, AppID, Region)")
	}

	sdkBucketURLStr := fmt.Sprintf("https://%s-%s.cos.%s.myqcloud.com", cfg.BucketName, cfg.AppID, cfg.Region)
	sdkURL, err := url.Parse(sdkBucketURLStr)
	if err != nil {
		logger.Error("解析 COS 存储桶 SDK 操作 URL 失败", zap.String("url", sdkBucketURLStr), zap.Error(err))
		return nil, fmt.Errorf("解析 COS 存储桶 SDK 操作 URL '%s' 失败: %w", sdkBucketURLStr, err)
	}

	finalPublicURLBase := sdkURL
	if cfg.BaseURL != "" { // 配置了 CDN 或自定义域名时使用它拼接公开 URL
		pu, err := url.Parse(cfg.BaseURL)
		if err != nil {
			logger.Error("解析配置的 COS 公共访问 BaseURL 失败", zap.String("提供的BaseURL", cfg.BaseURL), zap.Error(err))
			return nil, fmt.Errorf("解析提供的 COS 公共访问 BaseURL '%s' 失败: %w", cfg.BaseURL, err)
		}
		finalPublicURLBase = pu
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: sdkURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	logger.Info("COS 客户端初始化成功",
		zap.String("存储桶名称", cfg.BucketName),
		zap.String("地域", cfg.Region),
		zap.String("公共访问基础URL", finalPublicURLBase.String()),
	)

	return &cosClient{
		client:              client,
		publicAccessURLBase: finalPublicURLBase,
		logger:              logger,
	}, nil
}

// buildPublicObjectURL 构建对象的完整公共访问URL
func buildPublicObjectURL(base *url.URL, objectKey string) string {
	basePath := base.Path
	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	finalURL := *base
	finalURL.Path = basePath + strings.TrimPrefix(objectKey, "/")
	return finalURL.String()
}

// PutObject 写入对象
func (c *cosClient) PutObject(ctx context.Context, objectKey string, data []byte, contentType string) error {
	c.logger.Debug("开始上传文件到 COS", zap.String("对象键", objectKey), zap.Int("文件大小", len(data)), zap.String("内容类型", contentType))
	opts := &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:   contentType,
			ContentLength: int64(len(data)),
		},
	}

	resp, err := c.client.Object.Put(ctx, objectKey, bytes.NewReader(data), opts)
	if err != nil {
		c.logger.Error("COS 文件上传 API 调用失败", zap.String("对象键", objectKey), zap.Error(err))
		return fmt.Errorf("上传文件 '%s' 到 COS 失败: %w", objectKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errMsgBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("COS 文件上传返回非200状态码",
			zap.String("对象键", objectKey),
			zap.Int("状态码", resp.StatusCode),
			zap.String("响应信息", string(errMsgBytes)),
		)
		return fmt.Errorf("COS 文件上传失败，状态码: %d", resp.StatusCode)
	}
	return nil
}

// ObjectURL 先 HEAD 确认对象已可读，再返回公开 URL
func (c *cosClient) ObjectURL(ctx context.Context, objectKey string) (string, error) {
	resp, err := c.client.Object.Head(ctx, objectKey, nil)
	if err != nil {
		c.logger.Warn("COS 对象 HEAD 失败", zap.String("对象键", objectKey), zap.Error(err))
		return "", fmt.Errorf("获取对象 '%s' 信息失败: %w", objectKey, err)
	}
	resp.Body.Close()
	return buildPublicObjectURL(c.publicAccessURLBase, objectKey), nil
}

// DeleteObject 从COS删除一个对象
func (c *cosClient) DeleteObject(ctx context.Context, objectKey string) error {
	c.logger.Info("准备从 COS 删除对象", zap.String("对象键", objectKey))
	resp, err := c.client.Object.Delete(ctx, objectKey)
	if err != nil {
		c.logger.Error("COS 对象删除 API 调用失败", zap.String("对象键", objectKey), zap.Error(err))
		return fmt.Errorf("从 COS 删除对象 '%s' 失败: %w", objectKey, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		errMsgBytes, _ := io.ReadAll(resp.Body)
		c.logger.Error("COS 对象删除返回非成功状态码", zap.String("对象键", objectKey), zap.Int("状态码", resp.StatusCode), zap.String("响应信息", string(errMsgBytes)))
		return fmt.Errorf("COS 对象删除失败，状态码: %d", resp.StatusCode)
	}
	return nil
}
