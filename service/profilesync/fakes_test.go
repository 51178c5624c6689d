package profilesync

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSession struct {
	mu       sync.Mutex
	ident    Identity
	signedIn bool
	signOut  error
	signOuts int
}

func newFakeSession(ident Identity) *fakeSession {
	return &fakeSession{ident: ident, signedIn: true}
}

func (s *fakeSession) CurrentIdentity() (Identity, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ident, s.signedIn
}

func (s *fakeSession) SignOut(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signOuts++
	if s.signOut != nil {
		return s.signOut
	}
	s.signedIn = false
	return nil
}

type setCall struct {
	userID string
	doc    Document
	merge  bool
}

type fakeStore struct {
	mu        sync.Mutex
	docs      map[string]Document
	getErr    error
	setErr    error
	createErr error
	// 为 true 时 Create 不落库，直接返回 createErr
	forceCreateErr bool
	sets           []setCall
	creates        int
	gets           int
	// 非 nil 时每次 Get 都等待该通道关闭
	getRelease chan struct{}
	// 非 nil 时每次 Set 都要先从该通道取到一个信号
	setRelease chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string]Document)}
}

func (s *fakeStore) Get(ctx context.Context, userID string) (*Document, error) {
	if s.getRelease != nil {
		<-s.getRelease
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	doc, ok := s.docs[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *fakeStore) Set(ctx context.Context, userID string, doc Document, merge bool) error {
	if s.setRelease != nil {
		<-s.setRelease
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets = append(s.sets, setCall{userID: userID, doc: doc, merge: merge})
	if s.setErr != nil {
		return s.setErr
	}
	if !merge {
		s.docs[userID] = doc
		return nil
	}
	s.docs[userID] = mergeDocument(s.docs[userID], doc)
	return nil
}

func (s *fakeStore) Create(ctx context.Context, userID string, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.forceCreateErr {
		return s.createErr
	}
	if _, ok := s.docs[userID]; ok {
		return ErrAlreadyExists
	}
	s.docs[userID] = doc
	return nil
}

func (s *fakeStore) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

func (s *fakeStore) put(userID string, doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[userID] = doc
}

func (s *fakeStore) doc(userID string) (Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID]
	return doc, ok
}

func (s *fakeStore) setCalls() []setCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]setCall(nil), s.sets...)
}

func mergeDocument(dst, src Document) Document {
	if src.Name != nil {
		dst.Name = src.Name
	}
	if src.Email != nil {
		dst.Email = src.Email
	}
	if src.Age != nil {
		dst.Age = src.Age
	}
	if src.Phone != nil {
		dst.Phone = src.Phone
	}
	if src.Location != nil {
		dst.Location = src.Location
	}
	if src.Occupation != nil {
		dst.Occupation = src.Occupation
	}
	if src.Bio != nil {
		dst.Bio = src.Bio
	}
	if src.ProfileImageURL != nil {
		dst.ProfileImageURL = src.ProfileImageURL
	}
	if src.CreatedAt != nil {
		dst.CreatedAt = src.CreatedAt
	}
	if src.UpdatedAt != nil {
		dst.UpdatedAt = src.UpdatedAt
	}
	return dst
}

type uploadCall struct {
	path        string
	data        []byte
	contentType string
}

type fakeBlobs struct {
	mu        sync.Mutex
	uploads   []uploadCall
	uploadErr error
	urlErr    error
	// 非 nil 时每次 Upload 都等待该通道关闭
	release chan struct{}
}

func (b *fakeBlobs) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if b.release != nil {
		<-b.release
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, uploadCall{path: path, data: data, contentType: contentType})
	return b.uploadErr
}

func (b *fakeBlobs) DownloadURL(ctx context.Context, path string) (string, error) {
	if b.urlErr != nil {
		return "", b.urlErr
	}
	return "https://cdn.example.test/" + path, nil
}

func (b *fakeBlobs) uploadCalls() []uploadCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]uploadCall(nil), b.uploads...)
}

// manualTimers 手动触发的 AfterFunc，按创建顺序记录。
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

func (m *manualTimers) afterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

// fire 无视 Stop 直接触发第 i 个定时器，模拟停止前已经到期的情形。
func (m *manualTimers) fire(i int) {
	m.mu.Lock()
	t := m.timers[i]
	m.mu.Unlock()
	t.f()
}

func (m *manualTimers) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	session *fakeSession
	store   *fakeStore
	blobs   *fakeBlobs
	timers  *manualTimers
	comp    *Component
}

func newHarness(ident Identity, opts Options) *harness {
	h := &harness{
		session: newFakeSession(ident),
		store:   newFakeStore(),
		blobs:   &fakeBlobs{},
		timers:  &manualTimers{},
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = h.timers.afterFunc
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	h.comp = New(h.session, h.store, h.blobs, opts)
	return h
}

// reopen 在同一组存储上打开一个新的组件，相当于重新进入页面。
func (h *harness) reopen(t *testing.T) *Component {
	t.Helper()
	c := New(h.session, h.store, h.blobs, Options{
		AfterFunc: h.timers.afterFunc,
		Now:       func() time.Time { return fixedNow },
	})
	t.Cleanup(c.Close)
	return c
}
