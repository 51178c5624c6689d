package vo

type Userinfo struct {
	UserID      string `json:"user_id" example:"123e4567-e89b-12d3-a456-426614174000"`
	DisplayName string `json:"display_name" example:"Alice"`
	Email       string `json:"email" example:"alice@example.com"`
	PhotoURL    string `json:"photo_url" example:"https://lh3.googleusercontent.com/a/photo"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`  // 新认证令牌
	RefreshToken string `json:"refresh_token"` // 新刷新令牌（可选）
}

type LoginResponse struct {
	User  Userinfo  `json:"user"`  // 用户信息
	Token TokenPair `json:"token"` // Token 对
}
