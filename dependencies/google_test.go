package dependencies

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/idtoken"
)

func TestGoogleVerifierExtractsAccount(t *testing.T) {
	g := &googleVerifier{
		clientID: "client-1",
		validate: func(ctx context.Context, token, aud string) (*idtoken.Payload, error) {
			if aud != "client-1" {
				t.Errorf("audience = %q", aud)
			}
			return &idtoken.Payload{
				Subject: "1234",
				Claims: map[string]interface{}{
					"email":   "alice@example.com",
					"name":    "Alice",
					"picture": "https://lh3.googleusercontent.com/a/alice",
				},
			}, nil
		},
	}
	acc, err := g.Verify(context.Background(), "token")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	want := GoogleAccount{Subject: "1234", Email: "alice@example.com", DisplayName: "Alice", PhotoURL: "https://lh3.googleusercontent.com/a/alice"}
	if *acc != want {
		t.Errorf("account = %+v, want %+v", *acc, want)
	}
}

func TestGoogleVerifierRejects(t *testing.T) {
	failing := &googleVerifier{validate: func(context.Context, string, string) (*idtoken.Payload, error) {
		return nil, errors.New("idtoken: token expired")
	}}
	if _, err := failing.Verify(context.Background(), "t"); !errors.Is(err, ErrGoogleTokenInvalid) {
		t.Errorf("err = %v, want ErrGoogleTokenInvalid", err)
	}

	noSubject := &googleVerifier{validate: func(context.Context, string, string) (*idtoken.Payload, error) {
		return &idtoken.Payload{Claims: map[string]interface{}{"email": "x@example.com"}}, nil
	}}
	if _, err := noSubject.Verify(context.Background(), "t"); !errors.Is(err, ErrGoogleTokenInvalid) {
		t.Errorf("err = %v, want ErrGoogleTokenInvalid", err)
	}
}
