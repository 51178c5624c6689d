package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt" // 引入 fmt 包用于错误包装
	"time"

	// 使用 go-redis/v9
	"github.com/redis/go-redis/v9"

	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/Xushengqwer/go-common/models/enums"

	"github.com/Xushengqwer/kath_hub/constants" // 引入常量包获取前缀
)

// 身份变更事件类型
const (
	EventSignedIn  = "signed_in"
	EventSignedOut = "signed_out"
)

// SessionRecord 是一次登录会话在 Redis 中的记录，同时保存登录时的身份快照。
type SessionRecord struct {
	SessionID   string         `json:"session_id"`
	UserID      string         `json:"user_id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	PhotoURL    string         `json:"photo_url"`
	Platform    enums.Platform `json:"platform"`
	CreatedAt   time.Time      `json:"created_at"`
}

// IdentityChange 在会话登录或退出时广播，供所有实例上的订阅者同步。
type IdentityChange struct {
	Event     string    `json:"event"`
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	At        time.Time `json:"at"`
}

// SessionRepo 定义了会话存储与身份变更广播的仓库接口。
// - 会话是否存在即代表登录态是否有效，删除会话等同于吊销其所有令牌。
type SessionRepo interface {
	// SaveSession 写入会话记录并设置存活时间。
	SaveSession(ctx context.Context, record *SessionRecord, ttl time.Duration) error

	// GetSession 读取会话记录，不存在或已过期时返回 commonerrors.ErrRepoNotFound。
	GetSession(ctx context.Context, sessionID string) (*SessionRecord, error)

	// DeleteSession 删除会话，返回删除前是否存在。
	DeleteSession(ctx context.Context, sessionID string) (bool, error)

	// TouchSession 刷新令牌时续期会话，会话已不存在时返回 commonerrors.ErrRepoNotFound。
	TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error

	// PublishIdentityChange 广播一次身份变更。
	PublishIdentityChange(ctx context.Context, change IdentityChange) error

	// ListenIdentityChanges 订阅身份变更并逐条交给 handle，直到 ctx 结束。
	// - 无法解析的消息直接跳过。
	ListenIdentityChanges(ctx context.Context, handle func(IdentityChange)) error
}

// sessionRepo 是 SessionRepo 接口基于 go-redis/v9 的实现。
type sessionRepo struct {
	client *redis.Client // client 是 Redis v9 客户端实例
}

// NewSessionRepo 创建一个新的 sessionRepo 实例。
// - 依赖注入 Redis v9 客户端。
func NewSessionRepo(client *redis.Client) SessionRepo {
	return &sessionRepo{client: client}
}

// buildSessionKey 示例键: "kath:session:01HXK3Z7Q8V9B2M4N6P8R0T2W4"
func (r *sessionRepo) buildSessionKey(sessionID string) string {
	return constants.SessionKeyPrefix + sessionID
}

// SaveSession 实现接口方法。
func (r *sessionRepo) SaveSession(ctx context.Context, record *SessionRecord, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("sessionRepo.SaveSession: 无效的 TTL (%v)", ttl)
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("sessionRepo.SaveSession: 序列化会话失败 (SessionID: %s): %w", record.SessionID, err)
	}
	if err := r.client.Set(ctx, r.buildSessionKey(record.SessionID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("sessionRepo.SaveSession: 写入会话失败 (SessionID: %s): %w", record.SessionID, err)
	}
	return nil
}

// GetSession 实现接口方法。
func (r *sessionRepo) GetSession(ctx context.Context, sessionID string) (*SessionRecord, error) {
	raw, err := r.client.Get(ctx, r.buildSessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Key 不存在，会话已退出或过期
			return nil, commonerrors.ErrRepoNotFound
		}
		return nil, fmt.Errorf("sessionRepo.GetSession: 读取会话失败 (SessionID: %s): %w", sessionID, err)
	}
	var record SessionRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("sessionRepo.GetSession: 解析会话失败 (SessionID: %s): %w", sessionID, err)
	}
	return &record, nil
}

// DeleteSession 实现接口方法。
func (r *sessionRepo) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Del(ctx, r.buildSessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("sessionRepo.DeleteSession: 删除会话失败 (SessionID: %s): %w", sessionID, err)
	}
	return n == 1, nil
}

// TouchSession 实现接口方法。EXPIRE 返回 false 表示 key 不存在。
func (r *sessionRepo) TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	ok, err := r.client.Expire(ctx, r.buildSessionKey(sessionID), ttl).Result()
	if err != nil {
		return fmt.Errorf("sessionRepo.TouchSession: 续期会话失败 (SessionID: %s): %w", sessionID, err)
	}
	if !ok {
		return commonerrors.ErrRepoNotFound
	}
	return nil
}

// PublishIdentityChange 实现接口方法。
func (r *sessionRepo) PublishIdentityChange(ctx context.Context, change IdentityChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("sessionRepo.PublishIdentityChange: 序列化事件失败: %w", err)
	}
	if err := r.client.Publish(ctx, constants.IdentityChannel, payload).Err(); err != nil {
		return fmt.Errorf("sessionRepo.PublishIdentityChange: 发布事件失败 (SessionID: %s): %w", change.SessionID, err)
	}
	return nil
}

// ListenIdentityChanges 实现接口方法。
func (r *sessionRepo) ListenIdentityChanges(ctx context.Context, handle func(IdentityChange)) error {
	sub := r.client.Subscribe(ctx, constants.IdentityChannel)
	defer sub.Close()

	// 等待订阅确认，确保连接可用
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("sessionRepo.ListenIdentityChanges: 订阅频道失败: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var change IdentityChange
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				continue
			}
			handle(change)
		}
	}
}
