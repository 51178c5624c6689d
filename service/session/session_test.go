package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Xushengqwer/go-common/commonerrors"
	"github.com/Xushengqwer/go-common/models/enums"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/dependencies"
	"github.com/Xushengqwer/kath_hub/models/dto"
	"github.com/Xushengqwer/kath_hub/models/entities"
	myenums "github.com/Xushengqwer/kath_hub/models/enums"
	"github.com/Xushengqwer/kath_hub/repository/redis"
)

type fakeIdentityRepo struct {
	mu         sync.Mutex
	identities map[string]*entities.UserIdentity
}

func (r *fakeIdentityRepo) CreateIdentity(ctx context.Context, db *gorm.DB, identity *entities.UserIdentity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[identity.Identifier] = identity
	return nil
}

func (r *fakeIdentityRepo) GetIdentityByTypeAndIdentifier(ctx context.Context, db *gorm.DB, identityType myenums.IdentityType, identifier string) (*entities.UserIdentity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[identifier]
	if !ok || identity.IdentityType != identityType {
		return nil, commonerrors.ErrRepoNotFound
	}
	return identity, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*entities.User
	syncs int
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, db *gorm.DB, user *entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.UserID] = user
	return nil
}

func (r *fakeUserRepo) GetUserByID(ctx context.Context, userID string) (*entities.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return nil, commonerrors.ErrRepoNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) SyncGoogleProfile(ctx context.Context, db *gorm.DB, userID, displayName, email, photoURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.syncs++
	user, ok := r.users[userID]
	if !ok {
		return commonerrors.ErrRepoNotFound
	}
	user.DisplayName, user.Email, user.PhotoURL = displayName, email, photoURL
	return nil
}

type fakeSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string]*redis.SessionRecord
	published []redis.IdentityChange
	touches   int
	remote    chan redis.IdentityChange
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*redis.SessionRecord), remote: make(chan redis.IdentityChange, 4)}
}

func (r *fakeSessionRepo) SaveSession(ctx context.Context, record *redis.SessionRecord, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.sessions[record.SessionID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetSession(ctx context.Context, sessionID string) (*redis.SessionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.sessions[sessionID]
	if !ok {
		return nil, commonerrors.ErrRepoNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *fakeSessionRepo) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	return ok, nil
}

func (r *fakeSessionRepo) TouchSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return commonerrors.ErrRepoNotFound
	}
	r.touches++
	return nil
}

func (r *fakeSessionRepo) PublishIdentityChange(ctx context.Context, change redis.IdentityChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, change)
	return nil
}

func (r *fakeSessionRepo) ListenIdentityChanges(ctx context.Context, handle func(redis.IdentityChange)) error {
	for {
		select {
		case change := <-r.remote:
			handle(change)
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *fakeSessionRepo) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.published))
	for _, c := range r.published {
		out = append(out, c.Event)
	}
	return out
}

type fakeGoogle struct {
	accounts map[string]*dependencies.GoogleAccount
}

func (g *fakeGoogle) Verify(ctx context.Context, idToken string) (*dependencies.GoogleAccount, error) {
	account, ok := g.accounts[idToken]
	if !ok {
		return nil, dependencies.ErrGoogleTokenInvalid
	}
	return account, nil
}

type fixture struct {
	identities *fakeIdentityRepo
	users      *fakeUserRepo
	sessions   *fakeSessionRepo
	jwt        dependencies.JWTTokenInterface
	svc        *sessionService
}

func newFixture() *fixture {
	f := &fixture{
		identities: &fakeIdentityRepo{identities: make(map[string]*entities.UserIdentity)},
		users:      &fakeUserRepo{users: make(map[string]*entities.User)},
		sessions:   newFakeSessionRepo(),
		jwt:        dependencies.NewJWTUtility(&config.JWTConfig{SecretKey: "a", RefreshSecret: "r", Issuer: "kath_hub"}),
	}
	google := &fakeGoogle{accounts: map[string]*dependencies.GoogleAccount{
		"good-token": {Subject: "sub-1", Email: "alice@example.com", DisplayName: "Alice", PhotoURL: "https://photo/a"},
	}}
	noTx := func(ctx context.Context, fn func(tx *gorm.DB) error) error { return fn(nil) }
	svc := NewSessionService(f.identities, f.users, f.sessions, f.jwt, google, noTx, zap.NewNop()).(*sessionService)
	n := 0
	svc.newSessionID = func() string {
		n++
		return "S" + string(rune('0'+n))
	}
	f.svc = svc
	return f
}

func TestSignInWithGoogleRegistersOnFirstLogin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	info, pair, err := f.svc.SignInWithGoogle(ctx, dto.GoogleLoginData{IDToken: "good-token"}, enums.PlatformWeb)
	if err != nil {
		t.Fatalf("SignInWithGoogle: %v", err)
	}
	if info.UserID == "" || info.DisplayName != "Alice" || info.Email != "alice@example.com" {
		t.Errorf("userinfo = %+v", info)
	}
	claims, err := f.jwt.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.SessionID != "S1" || claims.UserID != info.UserID {
		t.Errorf("claims = %+v", claims)
	}
	if _, err := f.sessions.GetSession(ctx, "S1"); err != nil {
		t.Errorf("session not stored: %v", err)
	}
	if got := f.sessions.events(); len(got) != 1 || got[0] != redis.EventSignedIn {
		t.Errorf("published = %v", got)
	}

	// 第二次登录复用同一用户并同步资料
	info2, _, err := f.svc.SignInWithGoogle(ctx, dto.GoogleLoginData{IDToken: "good-token"}, enums.PlatformWeb)
	if err != nil {
		t.Fatalf("second SignInWithGoogle: %v", err)
	}
	if info2.UserID != info.UserID {
		t.Errorf("second login user = %s, want %s", info2.UserID, info.UserID)
	}
	if f.users.syncs != 1 {
		t.Errorf("syncs = %d, want 1", f.users.syncs)
	}
}

func TestSignInWithGoogleRejectsBadToken(t *testing.T) {
	f := newFixture()
	_, _, err := f.svc.SignInWithGoogle(context.Background(), dto.GoogleLoginData{IDToken: "forged"}, enums.PlatformWeb)
	if !errors.Is(err, ErrGoogleLoginFailed) {
		t.Fatalf("err = %v, want ErrGoogleLoginFailed", err)
	}
	if len(f.users.users) != 0 {
		t.Errorf("user created for rejected token")
	}
}

func TestSignInWithGoogleRejectsInactiveUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	info, _, err := f.svc.SignInWithGoogle(ctx, dto.GoogleLoginData{IDToken: "good-token"}, enums.PlatformWeb)
	if err != nil {
		t.Fatal(err)
	}
	f.users.users[info.UserID].Status = enums.StatusBlacklisted

	if _, _, err := f.svc.SignInWithGoogle(ctx, dto.GoogleLoginData{IDToken: "good-token"}, enums.PlatformWeb); !errors.Is(err, ErrUserInactive) {
		t.Fatalf("err = %v, want ErrUserInactive", err)
	}
}

func TestRefreshRequiresLiveSession(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, pair, err := f.svc.SignInWithGoogle(ctx, dto.GoogleLoginData{IDToken: "good-token"}, enums.PlatformApp)
	if err != nil {
		t.Fatal(err)
	}

	refreshed, err := f.svc.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	claims, err := f.jwt.ParseRefreshToken(refreshed.RefreshToken)
	if err != nil || claims.SessionID != "S1" || claims.Platform != enums.PlatformApp {
		t.Fatalf("refreshed claims = %+v, err = %v", claims, err)
	}
	if f.sessions.touches != 1 {
		t.Errorf("touches = %d, want 1", f.sessions.touches)
	}

	if err := f.svc.SignOut(ctx, "S1"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("err = %v, want ErrSessionRevoked", err)
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Refresh(context.Background(), "not-a-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("err = %v, want ErrInvalidRefreshToken", err)
	}
}

func TestSignOutNotifiesListenersAndIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	info, _, err := f.svc.SignInWithGoogle(ctx, dto.GoogleLoginData{IDToken: "good-token"}, enums.PlatformWeb)
	if err != nil {
		t.Fatal(err)
	}

	var got []redis.IdentityChange
	cancel := f.svc.OnIdentityChange(func(c redis.IdentityChange) { got = append(got, c) })

	if err := f.svc.SignOut(ctx, "S1"); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if err := f.svc.SignOut(ctx, "S1"); err != nil {
		t.Fatalf("second SignOut: %v", err)
	}
	if len(got) != 2 || got[0].Event != redis.EventSignedOut || got[0].UserID != info.UserID {
		t.Fatalf("changes = %+v", got)
	}
	if _, err := f.svc.CurrentIdentity(ctx, "S1"); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("CurrentIdentity err = %v, want ErrSessionRevoked", err)
	}

	cancel()
	_ = f.svc.SignOut(ctx, "S1")
	if len(got) != 2 {
		t.Errorf("listener called after cancel")
	}
}

func TestCurrentIdentityAndBinding(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	info, _, err := f.svc.SignInWithGoogle(ctx, dto.GoogleLoginData{IDToken: "good-token"}, enums.PlatformWeb)
	if err != nil {
		t.Fatal(err)
	}
	ident, err := f.svc.CurrentIdentity(ctx, "S1")
	if err != nil {
		t.Fatalf("CurrentIdentity: %v", err)
	}
	if ident.UserID != info.UserID || ident.DisplayName != "Alice" {
		t.Errorf("identity = %+v", ident)
	}

	b := f.svc.Bind(ident, "S1")
	if got, ok := b.CurrentIdentity(); !ok || got != ident {
		t.Fatalf("binding identity = %+v, %v", got, ok)
	}
	if err := b.SignOut(ctx); err != nil {
		t.Fatalf("binding SignOut: %v", err)
	}
	if _, err := f.sessions.GetSession(ctx, "S1"); !errors.Is(err, commonerrors.ErrRepoNotFound) {
		t.Errorf("session still present after binding sign-out")
	}
	b.Revoke()
	b.Revoke()
	if _, ok := b.CurrentIdentity(); ok {
		t.Errorf("revoked binding still reports identity")
	}
}

func TestListenRemoteDispatchesToListeners(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan redis.IdentityChange, 1)
	f.svc.OnIdentityChange(func(c redis.IdentityChange) { received <- c })

	done := make(chan error, 1)
	go func() { done <- f.svc.ListenRemote(ctx) }()

	f.sessions.remote <- redis.IdentityChange{Event: redis.EventSignedOut, SessionID: "S9"}
	select {
	case c := <-received:
		if c.SessionID != "S9" {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("remote change not dispatched")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("ListenRemote: %v", err)
	}
}
