package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Xushengqwer/kath_hub/repository/redis"
)

type listenerSet struct {
	mu    sync.RWMutex
	next  int
	funcs map[int]func(redis.IdentityChange)
}

func (l *listenerSet) add(fn func(redis.IdentityChange)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.funcs == nil {
		l.funcs = make(map[int]func(redis.IdentityChange))
	}
	id := l.next
	l.next++
	l.funcs[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.funcs, id)
		l.mu.Unlock()
	}
}

func (l *listenerSet) dispatch(change redis.IdentityChange) {
	l.mu.RLock()
	fns := make([]func(redis.IdentityChange), 0, len(l.funcs))
	for _, fn := range l.funcs {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(change)
	}
}

// OnIdentityChange 实现接口方法。回调在发布方的 goroutine 上同步执行，不应阻塞。
func (s *sessionService) OnIdentityChange(fn func(redis.IdentityChange)) func() {
	return s.listeners.add(fn)
}

// ListenRemote 实现接口方法。本实例自己发布的事件也会再收到一次，回调需要幂等。
func (s *sessionService) ListenRemote(ctx context.Context) error {
	s.logger.Info("开始订阅身份变更广播")
	err := s.sessionRepo.ListenIdentityChanges(ctx, func(change redis.IdentityChange) {
		s.logger.Debug("收到身份变更广播",
			zap.String("event", change.Event),
			zap.String("sessionID", change.SessionID),
		)
		s.listeners.dispatch(change)
	})
	if err != nil {
		s.logger.Error("身份变更订阅中断", zap.Error(err))
		return err
	}
	s.logger.Info("身份变更订阅已停止")
	return nil
}
