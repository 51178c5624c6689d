package screen

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/constants"
	"github.com/Xushengqwer/kath_hub/repository/redis"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
	"github.com/Xushengqwer/kath_hub/utils"
)

var (
	ErrScreenNotFound  = errors.New("编辑页面不存在或已关闭")
	ErrTooManyScreens  = errors.New("打开的编辑页面过多")
	ErrNotSignedIn     = errors.New("会话未登录")
	ErrRegistryStopped = errors.New("编辑页面注册表已关闭")
)

// Binding 是绑定到单个会话的身份提供者，会话退出时由注册表吊销。
type Binding interface {
	profilesync.SessionProvider
	SessionID() string
	Revoke()
}

// ComponentFactory 为一个新页面创建同步组件。
type ComponentFactory func(provider profilesync.SessionProvider) *profilesync.Component

// NewComponentFactory 按资料配置组装组件，头像统一重新编码为 JPEG。
func NewComponentFactory(store profilesync.ProfileStore, blobs profilesync.BlobStore, cfg config.ProfileConfig, logger *zap.Logger) ComponentFactory {
	encoder := utils.NewJPEGEncoder(cfg.MaxImageSide, cfg.JPEGQuality, cfg.MaxImagePixels)
	return func(provider profilesync.SessionProvider) *profilesync.Component {
		return profilesync.New(provider, store, blobs, profilesync.Options{
			Logger:        logger,
			ToastDuration: cfg.ToastDuration,
			Encoder:       encoder,
		})
	}
}

type entry struct {
	id        string
	sessionID string
	binding   Binding
	comp      *profilesync.Component
	lastSeen  time.Time
}

// Registry 持有所有打开的编辑页面，每个页面属于一个会话。
// 会话退出、闲置超时或服务关闭时页面被回收，未保存的修改随之丢弃。
type Registry struct {
	newComponent  ComponentFactory
	idleTTL       time.Duration
	maxPerSession int
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string

	mu        sync.Mutex
	screens   map[string]*entry
	bySession map[string]map[string]*entry
	stopped   bool
}

func NewRegistry(factory ComponentFactory, cfg config.ProfileConfig, logger *zap.Logger) *Registry {
	idleTTL := cfg.ScreenIdleTTL
	if idleTTL <= 0 {
		idleTTL = constants.ScreenIdleTTL
	}
	maxPerSession := cfg.MaxOpenScreens
	if maxPerSession <= 0 {
		maxPerSession = constants.MaxOpenScreens
	}
	return &Registry{
		newComponent:  factory,
		idleTTL:       idleTTL,
		maxPerSession: maxPerSession,
		logger:        logger,
		now:           time.Now,
		newID:         func() string { return ulid.Make().String() },
		screens:       make(map[string]*entry),
		bySession:     make(map[string]map[string]*entry),
	}
}

// Open 为会话打开一个新页面并触发首次加载，返回页面 ID。
// 加载在后台进行，调用方可通过组件的 WaitIdle 等待。
func (r *Registry) Open(binding Binding) (string, error) {
	const operation = "ScreenRegistry.Open"

	ident, ok := binding.CurrentIdentity()
	if !ok {
		return "", ErrNotSignedIn
	}
	sessionID := binding.SessionID()

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return "", ErrRegistryStopped
	}
	if len(r.bySession[sessionID]) >= r.maxPerSession {
		r.mu.Unlock()
		r.logger.Warn("会话打开的编辑页面已达上限",
			zap.String("operation", operation),
			zap.String("sessionID", sessionID),
			zap.Int("max", r.maxPerSession),
		)
		return "", ErrTooManyScreens
	}
	e := &entry{
		id:        r.newID(),
		sessionID: sessionID,
		binding:   binding,
		comp:      r.newComponent(binding),
		lastSeen:  r.now(),
	}
	r.screens[e.id] = e
	if r.bySession[sessionID] == nil {
		r.bySession[sessionID] = make(map[string]*entry)
	}
	r.bySession[sessionID][e.id] = e
	r.mu.Unlock()
	screensOpen.Inc()

	if err := e.comp.Load(); err != nil {
		r.remove(e, ReasonClosed)
		return "", err
	}
	r.logger.Info("打开资料编辑页面",
		zap.String("operation", operation),
		zap.String("screenID", e.id),
		zap.String("sessionID", sessionID),
		zap.String("userID", ident.UserID),
	)
	return e.id, nil
}

// Get 返回会话自己的页面组件并刷新其活跃时间。其他会话的页面视为不存在。
func (r *Registry) Get(sessionID, screenID string) (*profilesync.Component, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.screens[screenID]
	if !ok || e.sessionID != sessionID {
		return nil, ErrScreenNotFound
	}
	e.lastSeen = r.now()
	return e.comp, nil
}

// Close 关闭会话自己的页面。
func (r *Registry) Close(sessionID, screenID string) error {
	r.mu.Lock()
	e, ok := r.screens[screenID]
	if !ok || e.sessionID != sessionID {
		r.mu.Unlock()
		return ErrScreenNotFound
	}
	r.detachLocked(e)
	r.mu.Unlock()

	r.closeEntry(e, ReasonClosed)
	return nil
}

// HandleIdentityChange 在会话退出时吊销其身份并关闭它的所有页面，重复事件无副作用。
func (r *Registry) HandleIdentityChange(change redis.IdentityChange) {
	if change.Event != redis.EventSignedOut {
		return
	}
	r.mu.Lock()
	owned := make([]*entry, 0, len(r.bySession[change.SessionID]))
	for _, e := range r.bySession[change.SessionID] {
		owned = append(owned, e)
	}
	for _, e := range owned {
		r.detachLocked(e)
	}
	r.mu.Unlock()

	for _, e := range owned {
		e.binding.Revoke()
		r.closeEntry(e, ReasonSignedOut)
	}
	if len(owned) > 0 {
		r.logger.Info("会话退出，已关闭其编辑页面",
			zap.String("sessionID", change.SessionID),
			zap.Int("count", len(owned)),
		)
	}
}

// Sweep 关闭闲置超过 idleTTL 的页面，返回关闭数量。
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var idle []*entry
	for _, e := range r.screens {
		if now.Sub(e.lastSeen) > r.idleTTL {
			idle = append(idle, e)
		}
	}
	for _, e := range idle {
		r.detachLocked(e)
	}
	r.mu.Unlock()

	for _, e := range idle {
		r.closeEntry(e, ReasonIdle)
	}
	if len(idle) > 0 {
		r.logger.Info("回收闲置的编辑页面", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// RunSweeper 按 interval 周期调用 Sweep，直到 ctx 结束。
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// CloseAll 关闭所有页面，之后的 Open 返回 ErrRegistryStopped。
func (r *Registry) CloseAll() {
	r.mu.Lock()
	r.stopped = true
	all := make([]*entry, 0, len(r.screens))
	for _, e := range r.screens {
		all = append(all, e)
	}
	for _, e := range all {
		r.detachLocked(e)
	}
	r.mu.Unlock()

	for _, e := range all {
		r.closeEntry(e, ReasonShutdown)
	}
}

// Count 返回当前打开的页面数。
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.screens)
}

func (r *Registry) remove(e *entry, reason string) {
	r.mu.Lock()
	detached := r.detachLocked(e)
	r.mu.Unlock()
	if detached {
		r.closeEntry(e, reason)
	}
}

// detachLocked 返回该页面此前是否仍在注册表中。
func (r *Registry) detachLocked(e *entry) bool {
	if _, ok := r.screens[e.id]; !ok {
		return false
	}
	delete(r.screens, e.id)
	if owned := r.bySession[e.sessionID]; owned != nil {
		delete(owned, e.id)
		if len(owned) == 0 {
			delete(r.bySession, e.sessionID)
		}
	}
	return true
}

// closeEntry 在锁外调用：组件关闭需要等待其事件循环。
func (r *Registry) closeEntry(e *entry, reason string) {
	e.comp.Close()
	screensOpen.Dec()
	screensClosed.WithLabelValues(reason).Inc()
	r.logger.Debug("关闭资料编辑页面",
		zap.String("screenID", e.id),
		zap.String("sessionID", e.sessionID),
		zap.String("reason", reason),
	)
}
