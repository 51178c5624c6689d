package profilesync

import "time"

// Feedback 是页面上唯一的提示消息槽（toast）。
// Seq 每次显示新消息时递增，便于调用方区分内容相同的两条消息。
type Feedback struct {
	Message string
	Visible bool
	Seq     uint64
}

// Timer 是可取消的定时器，*time.Timer 满足该接口。
type Timer interface {
	Stop() bool
}

// AfterFunc 在 d 之后于任意 goroutine 上调用 f。
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// toast 只在事件循环内被访问。
type toast struct {
	duration  time.Duration
	afterFunc AfterFunc
	post      func(func())

	current Feedback
	timer   Timer
}

// show 替换当前消息并重新开始自动隐藏计时。旧消息的计时器即使已触发，
// 也会因序号不匹配而失效，不会把新消息隐藏掉。
func (t *toast) show(message string) {
	t.stopTimer()
	t.current.Seq++
	t.current.Message = message
	t.current.Visible = true

	seq := t.current.Seq
	t.timer = t.afterFunc(t.duration, func() {
		t.post(func() { t.expire(seq) })
	})
}

func (t *toast) expire(seq uint64) {
	if t.current.Seq != seq {
		return
	}
	t.current.Visible = false
	t.timer = nil
}

func (t *toast) dismiss() {
	t.stopTimer()
	t.current.Visible = false
}

func (t *toast) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
