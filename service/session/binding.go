package session

import (
	"context"
	"sync"

	"github.com/Xushengqwer/kath_hub/service/profilesync"
)

// Binding 把一个会话适配为编辑页面组件所需的身份提供者。
// 身份在绑定时取快照，会话退出后通过 Revoke 置为无身份，读取不做任何 IO。
type Binding struct {
	sessionID string
	signOut   func(ctx context.Context, sessionID string) error

	mu       sync.RWMutex
	identity profilesync.Identity
	revoked  bool
}

var _ profilesync.SessionProvider = (*Binding)(nil)

func NewBinding(identity profilesync.Identity, sessionID string, signOut func(ctx context.Context, sessionID string) error) *Binding {
	return &Binding{sessionID: sessionID, signOut: signOut, identity: identity}
}

func (b *Binding) SessionID() string { return b.sessionID }

func (b *Binding) CurrentIdentity() (profilesync.Identity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.revoked {
		return profilesync.Identity{}, false
	}
	return b.identity, true
}

func (b *Binding) SignOut(ctx context.Context) error {
	return b.signOut(ctx, b.sessionID)
}

// Revoke 幂等。
func (b *Binding) Revoke() {
	b.mu.Lock()
	b.revoked = true
	b.mu.Unlock()
}
