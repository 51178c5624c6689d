package profilesync

import (
	"context"
)

// eventLoop 把组件的全部状态变更限制在同一个 goroutine 上执行。
// 远程调用在独立 goroutine 中完成后，通过 post 把后续处理投递回循环。
//
// pending 与 idleWaiters 只在循环内读写，无需加锁。
type eventLoop struct {
	queue chan func()
	done  chan struct{}

	pending     int
	idleWaiters []chan struct{}
}

func newEventLoop() *eventLoop {
	return &eventLoop{
		queue: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

func (l *eventLoop) run() {
	for {
		select {
		case fn := <-l.queue:
			fn()
		case <-l.done:
			return
		}
	}
}

func (l *eventLoop) stop() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// post 异步投递；循环已停止时丢弃。
func (l *eventLoop) post(fn func()) {
	select {
	case l.queue <- fn:
	case <-l.done:
	}
}

// call 在循环上执行 fn 并等待其返回。不能在循环内部调用，否则会死锁。
func (l *eventLoop) call(fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.queue <- wrapped:
	case <-l.done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// begin / end 统计尚未完成的远程操作，只能在循环内调用。
func (l *eventLoop) begin() { l.pending++ }

func (l *eventLoop) end() {
	l.pending--
	if l.pending > 0 {
		return
	}
	l.pending = 0
	for _, ch := range l.idleWaiters {
		close(ch)
	}
	l.idleWaiters = nil
}

// waitIdle 阻塞直到没有进行中的远程操作。
func (l *eventLoop) waitIdle(ctx context.Context) error {
	idle := make(chan struct{})
	err := l.call(func() {
		if l.pending == 0 {
			close(idle)
			return
		}
		l.idleWaiters = append(l.idleWaiters, idle)
	})
	if err != nil {
		return err
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}
