package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/Xushengqwer/go-common/models/enums"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// 需要真实的 Redis，未设置 KATH_HUB_TEST_REDIS_ADDR 时跳过。
func newTestRepo(t *testing.T) SessionRepo {
	t.Helper()
	addr := os.Getenv("KATH_HUB_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KATH_HUB_TEST_REDIS_ADDR 未设置，跳过 Redis 集成测试")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("连接 Redis 失败: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepo(client)
}

func TestSessionRepo_Lifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	sid := uuid.New().String()

	if err := repo.SaveSession(ctx, &SessionRecord{SessionID: sid}, 0); err == nil {
		t.Fatal("TTL 为 0 时应报错")
	}

	record := &SessionRecord{
		SessionID:   sid,
		UserID:      "U1",
		DisplayName: "Alice",
		Email:       "alice@example.com",
		Platform:    enums.PlatformWeb,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := repo.SaveSession(ctx, record, time.Minute); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	got, err := repo.GetSession(ctx, sid)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.UserID != "U1" || got.DisplayName != "Alice" || got.Platform != enums.PlatformWeb || !got.CreatedAt.Equal(record.CreatedAt) {
		t.Fatalf("GetSession = %+v", got)
	}
	if err := repo.TouchSession(ctx, sid, 2*time.Minute); err != nil {
		t.Fatalf("TouchSession: %v", err)
	}

	existed, err := repo.DeleteSession(ctx, sid)
	if err != nil || !existed {
		t.Fatalf("DeleteSession = %v, %v", existed, err)
	}
	existed, err = repo.DeleteSession(ctx, sid)
	if err != nil || existed {
		t.Fatalf("重复删除应返回 false: %v, %v", existed, err)
	}
	if _, err := repo.GetSession(ctx, sid); !errors.Is(err, commonerrors.ErrRepoNotFound) {
		t.Fatalf("删除后应返回 ErrRepoNotFound, got %v", err)
	}
	if err := repo.TouchSession(ctx, sid, time.Minute); !errors.Is(err, commonerrors.ErrRepoNotFound) {
		t.Fatalf("续期已删除会话应返回 ErrRepoNotFound, got %v", err)
	}
}

func TestSessionRepo_PublishAndListen(t *testing.T) {
	repo := newTestRepo(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan IdentityChange, 1)
	listenCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- repo.ListenIdentityChanges(listenCtx, func(c IdentityChange) {
			select {
			case received <- c:
			default:
			}
		})
	}()

	sid := uuid.New().String()
	// 订阅建立前发布的消息会丢失，循环发布直到收到
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		if err := repo.PublishIdentityChange(ctx, IdentityChange{Event: EventSignedOut, SessionID: sid, UserID: "U1"}); err != nil {
			t.Fatalf("PublishIdentityChange: %v", err)
		}
		select {
		case c := <-received:
			if c.SessionID != sid || c.Event != EventSignedOut {
				continue
			}
			stop()
			if err := <-done; err != nil {
				t.Fatalf("ListenIdentityChanges 返回错误: %v", err)
			}
			return
		case <-ticker.C:
		case <-ctx.Done():
			t.Fatal("超时未收到身份变更")
		}
	}
}
