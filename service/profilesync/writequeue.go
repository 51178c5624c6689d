package profilesync

import (
	"context"
	"sync"
)

type writeJob struct {
	userID string
	doc    Document
	merge  bool
	// done 在事件循环上执行
	done func(err error)
}

// writeQueue 按入队顺序串行执行资料写入，保证上传完成后的保存排在其之前入队的写入之后。
// 队列无界：入队发生在事件循环上，不能阻塞。
type writeQueue struct {
	store ProfileStore
	post  func(func())

	mu     sync.Mutex
	items  []writeJob
	notify chan struct{}
}

func newWriteQueue(store ProfileStore, post func(func())) *writeQueue {
	return &writeQueue{
		store:  store,
		post:   post,
		notify: make(chan struct{}, 1),
	}
}

func (q *writeQueue) enqueue(job writeJob) {
	q.mu.Lock()
	q.items = append(q.items, job)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

func (q *writeQueue) next() (writeJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return writeJob{}, false
	}
	job := q.items[0]
	q.items[0] = writeJob{}
	q.items = q.items[1:]
	return job, true
}

func (q *writeQueue) run(ctx context.Context) {
	for {
		job, ok := q.next()
		if !ok {
			select {
			case <-q.notify:
				continue
			case <-ctx.Done():
				return
			}
		}
		err := q.store.Set(ctx, job.userID, job.doc, job.merge)
		done := job.done
		q.post(func() { done(err) })
	}
}
