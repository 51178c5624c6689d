package dependencies

import (
	"context"
	"errors"
	"fmt" // 引入 fmt 包用于错误包装

	"github.com/Xushengqwer/kath_hub/config"
	"google.golang.org/api/idtoken"
)

// ErrGoogleTokenInvalid ID Token 校验失败（签名、过期、aud 不匹配或缺少 sub）。
var ErrGoogleTokenInvalid = errors.New("google ID Token 无效")

// GoogleAccount 是从 ID Token 中取出的账号信息。
type GoogleAccount struct {
	Subject     string // Google 账号唯一标识
	Email       string
	DisplayName string
	PhotoURL    string
}

// GoogleVerifier 定义了校验 Google ID Token 的客户端接口。
type GoogleVerifier interface {
	// Verify 校验 ID Token 并返回账号信息。
	// - 校验失败时返回包装了 ErrGoogleTokenInvalid 的错误。
	Verify(ctx context.Context, idToken string) (*GoogleAccount, error)
}

type googleVerifier struct {
	clientID string
	validate func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier 创建一个新的 googleVerifier 实例。
func NewGoogleVerifier(cfg *config.GoogleConfig) GoogleVerifier {
	return &googleVerifier{clientID: cfg.ClientID, validate: idtoken.Validate}
}

// Verify 实现接口方法。
func (g *googleVerifier) Verify(ctx context.Context, idToken string) (*GoogleAccount, error) {
	payload, err := g.validate(ctx, idToken, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("googleVerifier.Verify: %w: %v", ErrGoogleTokenInvalid, err)
	}
	account := accountFromPayload(payload)
	if account.Subject == "" {
		return nil, fmt.Errorf("googleVerifier.Verify: %w: 缺少 sub", ErrGoogleTokenInvalid)
	}
	return account, nil
}

func accountFromPayload(payload *idtoken.Payload) *GoogleAccount {
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	sub := payload.Subject
	if sub == "" {
		sub, _ = payload.Claims["sub"].(string)
	}
	return &GoogleAccount{
		Subject:     sub,
		Email:       email,
		DisplayName: name,
		PhotoURL:    picture,
	}
}
