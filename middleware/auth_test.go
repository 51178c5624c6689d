package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	commonconstants "github.com/Xushengqwer/go-common/constants"
	"github.com/Xushengqwer/go-common/models/enums"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Xushengqwer/kath_hub/config"
	"github.com/Xushengqwer/kath_hub/dependencies"
	"github.com/Xushengqwer/kath_hub/service/profilesync"
	"github.com/Xushengqwer/kath_hub/service/session"
)

type fakeLookup struct {
	identities map[string]profilesync.Identity
	err        error
}

func (f *fakeLookup) CurrentIdentity(ctx context.Context, sessionID string) (profilesync.Identity, error) {
	if f.err != nil {
		return profilesync.Identity{}, f.err
	}
	ident, ok := f.identities[sessionID]
	if !ok {
		return profilesync.Identity{}, session.ErrSessionRevoked
	}
	return ident, nil
}

func newTestEngine(jwtUtil dependencies.JWTTokenInterface, lookup IdentityLookup) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(jwtUtil, lookup, zap.NewNop()))
	r.GET("/me", func(c *gin.Context) {
		sid, ident, ok := SessionFromContext(c)
		if !ok {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sid":  sid,
			"uid":  ident.UserID,
			"ctx":  c.GetString(string(commonconstants.UserIDKey)),
			"name": ident.DisplayName,
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	jwtUtil := dependencies.NewJWTUtility(&config.JWTConfig{SecretKey: "a", RefreshSecret: "r", Issuer: "kath_hub"})
	valid, err := jwtUtil.GenerateAccessToken("U1", "S1", enums.RoleUser, enums.StatusActive, enums.PlatformApp)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := jwtUtil.GenerateAccessToken("U2", "S1", enums.RoleUser, enums.StatusActive, enums.PlatformApp)
	if err != nil {
		t.Fatal(err)
	}
	refresh, err := jwtUtil.GenerateRefreshToken("U1", "S1", enums.PlatformApp)
	if err != nil {
		t.Fatal(err)
	}
	live := &fakeLookup{identities: map[string]profilesync.Identity{"S1": {UserID: "U1", DisplayName: "Alice"}}}

	tests := []struct {
		name   string
		header string
		lookup IdentityLookup
		want   int
	}{
		{"missing header", "", live, http.StatusUnauthorized},
		{"not bearer", "Token " + valid, live, http.StatusUnauthorized},
		{"refresh token rejected", "Bearer " + refresh, live, http.StatusUnauthorized},
		{"signed out session", "Bearer " + valid, &fakeLookup{identities: map[string]profilesync.Identity{}}, http.StatusUnauthorized},
		{"user mismatch", "Bearer " + foreign, live, http.StatusUnauthorized},
		{"lookup failure", "Bearer " + valid, &fakeLookup{err: errors.New("redis down")}, http.StatusInternalServerError},
		{"ok", "Bearer " + valid, live, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestEngine(jwtUtil, tt.lookup)
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAuthMiddlewareRejectsForeignIssuer(t *testing.T) {
	ours := dependencies.NewJWTUtility(&config.JWTConfig{SecretKey: "a", RefreshSecret: "r", Issuer: "kath_hub"})
	other := dependencies.NewJWTUtility(&config.JWTConfig{SecretKey: "a", RefreshSecret: "r", Issuer: "someone-else"})
	token, err := other.GenerateAccessToken("U1", "S1", enums.RoleUser, enums.StatusActive, enums.PlatformApp)
	if err != nil {
		t.Fatal(err)
	}
	live := &fakeLookup{identities: map[string]profilesync.Identity{"S1": {UserID: "U1"}}}
	r := newTestEngine(ours, live)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
