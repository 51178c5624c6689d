package profilesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Xushengqwer/kath_hub/constants"
)

// 页面提示文案，与移动端保持一致。
const (
	msgSaved         = "Profile updated successfully! 🎉"
	msgSaveFailed    = "Error: %s"
	msgCreateFailed  = "Error creating profile: %s"
	msgLoadFailed    = "Error loading profile: %s"
	msgPhotoUpdated  = "Profile photo updated! 📸"
	msgUploadFailed  = "Upload error: %s"
	msgEncodeFailed  = "Error compressing image"
	msgRefreshed     = "Profile refreshed! 🔄"
	msgLogoutFailed  = "Logout error: %s"
	uploadMediaType  = "image/jpeg"
	uploadFileSuffix = ".jpg"
)

// Options 调整组件行为，零值字段使用默认实现。
type Options struct {
	Logger        *zap.Logger
	ToastDuration time.Duration
	AfterFunc     AfterFunc
	Now           func() time.Time
	Encoder       ImageEncoder
}

// State 是编辑会话的可观察快照。
type State struct {
	Fields          Fields
	ProfileImageURL string
	Loaded          bool
	IsEditing       bool
	IsLoading       bool
	IsUploading     bool
	IsRefreshing    bool
	HasPreview      bool
	PreviewSize     int
	Feedback        Feedback
}

// uploadTask 是一次进行中的头像上传。
type uploadTask struct {
	data []byte
	path string
	url  string
}

// Component 协调编辑会话（EditSession）与资料存储、对象存储之间的同步，并驱动页面提示。
//
// 所有状态只在内部事件循环上读写；公开方法把操作投递到循环并等待该步骤执行完毕，
// 但不等待其触发的远程调用。需要等待远程调用结束时使用 WaitIdle。
type Component struct {
	session SessionProvider
	store   ProfileStore
	blobs   BlobStore
	logger  *zap.Logger
	now     func() time.Time
	encode  ImageEncoder

	loop      *eventLoop
	writes    *writeQueue
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// 以下字段只在事件循环内访问
	working    Fields
	imageURL   string
	persisted  snapshot
	loaded     bool
	editing    bool
	saving     int // 已入队未完成的保存数
	refreshing bool
	preview    []byte
	upload     *uploadTask
	nextPhoto  []byte
	feedback   *toast
}

// New 创建组件并启动事件循环与写队列。调用方负责在页面销毁时调用 Close。
func New(session SessionProvider, store ProfileStore, blobs BlobStore, opts Options) *Component {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Component{
		session: session,
		store:   store,
		blobs:   blobs,
		logger:  opts.Logger,
		now:     opts.Now,
		encode:  opts.Encoder,
		loop:    newEventLoop(),
		ctx:     ctx,
		cancel:  cancel,
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.encode == nil {
		c.encode = func(raw []byte) ([]byte, error) { return raw, nil }
	}
	duration := opts.ToastDuration
	if duration <= 0 {
		duration = constants.ToastDuration
	}
	afterFunc := opts.AfterFunc
	if afterFunc == nil {
		afterFunc = realAfterFunc
	}
	c.feedback = &toast{duration: duration, afterFunc: afterFunc, post: c.loop.post}
	c.writes = newWriteQueue(store, c.loop.post)

	go c.loop.run()
	go c.writes.run(ctx)
	return c
}

// Close 销毁组件。进行中的远程调用会收到取消信号，其结果被丢弃；未保存的修改不会持久化。
func (c *Component) Close() {
	c.closeOnce.Do(func() {
		_ = c.loop.call(func() { c.feedback.stopTimer() })
		c.cancel()
		c.loop.stop()
	})
}

// Load 按当前身份拉取资料并填充工作副本；资料不存在时创建初始资料。无身份时不做任何事。
func (c *Component) Load() error {
	return c.loop.call(func() { c.load(true, nil) })
}

// BeginEdit 进入编辑状态，不发起远程调用。
func (c *Component) BeginEdit() error {
	var opErr error
	if err := c.loop.call(func() {
		if c.editing {
			opErr = ErrAlreadyEditing
			return
		}
		c.editing = true
	}); err != nil {
		return err
	}
	return opErr
}

// UpdateFields 修改工作副本，仅在编辑状态下允许。
func (c *Component) UpdateFields(patch FieldsPatch) error {
	var opErr error
	if err := c.loop.call(func() {
		if !c.editing {
			opErr = ErrNotEditing
			return
		}
		patch.applyTo(&c.working)
	}); err != nil {
		return err
	}
	return opErr
}

// CancelEdit 退出编辑状态并丢弃本地修改：工作副本立即回到最近一次的持久化快照，
// 随后重新加载远程资料。尚未开始上传的照片选择一并丢弃。
func (c *Component) CancelEdit() error {
	return c.loop.call(func() {
		c.editing = false
		c.working = c.persisted.fields
		c.imageURL = c.persisted.profileImageURL
		c.preview = nil
		c.nextPhoto = nil
		c.load(true, nil)
	})
}

// Save 以合并写方式持久化全部工作副本及当前头像 URL。
// 与上传触发的保存不做合并：两者都在写队列中时，后入队者覆盖先入队者。
func (c *Component) Save() error {
	return c.loop.call(c.save)
}

// SelectPhoto 立即把图片作为本地预览，然后开始上传。
func (c *Component) SelectPhoto(data []byte) error {
	return c.loop.call(func() {
		c.preview = data
		c.uploadPhoto(data)
	})
}

// UploadPhoto 上传图片，成功后写入头像 URL 并立刻触发一次保存。
func (c *Component) UploadPhoto(data []byte) error {
	return c.loop.call(func() { c.uploadPhoto(data) })
}

// Refresh 用户触发的重新拉取，无论内容是否变化都会提示已刷新。
func (c *Component) Refresh() error {
	return c.loop.call(func() {
		c.refreshing = true
		c.load(true, func() { c.refreshing = false })
		c.feedback.show(msgRefreshed)
	})
}

// Logout 请求结束会话，失败时提示。编辑会话不在此处清理。
func (c *Component) Logout() error {
	return c.loop.call(func() {
		c.launch(func(ctx context.Context) func() {
			err := c.session.SignOut(ctx)
			return func() {
				if err != nil {
					c.logger.Warn("退出登录失败", zap.Error(err))
					c.feedback.show(fmt.Sprintf(msgLogoutFailed, err.Error()))
				}
			}
		})
	})
}

// DismissFeedback 手动关闭当前提示。
func (c *Component) DismissFeedback() error {
	return c.loop.call(c.feedback.dismiss)
}

// State 返回当前可观察状态的副本。
func (c *Component) State() (State, error) {
	var st State
	err := c.loop.call(func() {
		st = State{
			Fields:          c.working,
			ProfileImageURL: c.imageURL,
			Loaded:          c.loaded,
			IsEditing:       c.editing,
			IsLoading:       c.saving > 0,
			IsUploading:     c.upload != nil,
			IsRefreshing:    c.refreshing,
			HasPreview:      c.preview != nil,
			PreviewSize:     len(c.preview),
			Feedback:        c.feedback.current,
		}
	})
	return st, err
}

// WaitIdle 等待所有已发起的远程读取、上传与排队写入完成（包括它们引发的后续操作）。
func (c *Component) WaitIdle(ctx context.Context) error {
	return c.loop.waitIdle(ctx)
}

// ---- 以下方法只在事件循环内调用 ----

// launch 在独立 goroutine 中执行 work，并把它返回的后续处理投递回事件循环。
func (c *Component) launch(work func(ctx context.Context) func()) {
	c.loop.begin()
	go func() {
		next := work(c.ctx)
		c.loop.post(func() {
			defer c.loop.end()
			if next != nil {
				next()
			}
		})
	}()
}

func (c *Component) load(allowCreate bool, after func()) {
	ident, ok := c.session.CurrentIdentity()
	if !ok {
		if after != nil {
			after()
		}
		return
	}
	c.launch(func(ctx context.Context) func() {
		doc, err := c.store.Get(ctx, ident.UserID)
		return func() {
			if after != nil {
				defer after()
			}
			switch {
			case err == nil:
				c.applyLoaded(snapshotFromDocument(doc, ident))
			case errors.Is(err, ErrNotFound):
				if allowCreate {
					c.createInitial(ident)
					return
				}
				c.logger.Warn("初始资料创建后仍读取不到文档", zap.String("userID", ident.UserID))
			default:
				c.logger.Error("读取用户资料失败", zap.String("userID", ident.UserID), zap.Error(err))
				c.feedback.show(fmt.Sprintf(msgLoadFailed, err.Error()))
			}
		}
	})
}

func (c *Component) applyLoaded(s snapshot) {
	c.persisted = s
	c.working = s.fields
	c.imageURL = s.profileImageURL
	c.loaded = true
}

// createInitial 以会话身份为种子非破坏性地创建资料，成功（或已被他处创建）后重新加载。
func (c *Component) createInitial(ident Identity) {
	doc := initialDocument(ident, c.now())
	c.launch(func(ctx context.Context) func() {
		err := c.store.Create(ctx, ident.UserID, doc)
		return func() {
			if err != nil && !errors.Is(err, ErrAlreadyExists) {
				c.logger.Error("创建初始资料失败", zap.String("userID", ident.UserID), zap.Error(err))
				c.feedback.show(fmt.Sprintf(msgCreateFailed, err.Error()))
				return
			}
			c.logger.Info("初始资料已就绪", zap.String("userID", ident.UserID))
			c.load(false, nil)
		}
	})
}

func (c *Component) save() {
	ident, ok := c.session.CurrentIdentity()
	if !ok {
		return
	}
	c.saving++
	doc := savePayload(c.working, c.imageURL, c.now())
	saved := snapshot{fields: c.working, profileImageURL: c.imageURL}
	saved.fields.Age = fmt.Sprint(*doc.Age)

	c.loop.begin()
	c.writes.enqueue(writeJob{
		userID: ident.UserID,
		doc:    doc,
		merge:  true,
		done: func(err error) {
			defer c.loop.end()
			c.saving--
			if err != nil {
				c.logger.Error("保存用户资料失败", zap.String("userID", ident.UserID), zap.Error(err))
				c.feedback.show(fmt.Sprintf(msgSaveFailed, err.Error()))
				return
			}
			c.persisted = saved
			c.working = saved.fields
			c.editing = false
			c.feedback.show(msgSaved)
		},
	})
}

// uploadPhoto 同一时间最多一个上传在进行；进行中再选择的照片排在其后，
// 只保留最新的一张，已开始的上传不会被取消。
func (c *Component) uploadPhoto(data []byte) {
	ident, ok := c.session.CurrentIdentity()
	if !ok {
		return
	}
	if c.upload != nil {
		c.nextPhoto = data
		return
	}
	task := &uploadTask{
		data: data,
		path: avatarPath(ident.UserID, c.now()),
	}
	c.upload = task

	c.launch(func(ctx context.Context) func() {
		encoded, err := c.encode(task.data)
		if err != nil {
			return func() {
				c.logger.Warn("头像编码失败", zap.String("userID", ident.UserID), zap.Error(err))
				c.finishUpload()
				c.feedback.show(msgEncodeFailed)
			}
		}
		if err := c.blobs.Upload(ctx, task.path, encoded, uploadMediaType); err != nil {
			return c.uploadFailed(ident, task, err)
		}
		url, err := c.blobs.DownloadURL(ctx, task.path)
		if err != nil {
			return c.uploadFailed(ident, task, err)
		}
		task.url = url
		return func() {
			c.imageURL = task.url
			c.feedback.show(msgPhotoUpdated)
			c.save()
			c.finishUpload()
		}
	})
}

func (c *Component) uploadFailed(ident Identity, task *uploadTask, err error) func() {
	return func() {
		c.logger.Error("头像上传失败", zap.String("userID", ident.UserID), zap.String("path", task.path), zap.Error(err))
		c.finishUpload()
		c.feedback.show(fmt.Sprintf(msgUploadFailed, err.Error()))
	}
}

func (c *Component) finishUpload() {
	c.upload = nil
	if next := c.nextPhoto; next != nil {
		c.nextPhoto = nil
		c.uploadPhoto(next)
	}
}

// avatarPath 由用户 ID 与提交时间决定，不做去重。
func avatarPath(userID string, at time.Time) string {
	return fmt.Sprintf("%s/%s_%d%s", constants.AvatarPathPrefix, userID, at.UnixMilli(), uploadFileSuffix)
}
