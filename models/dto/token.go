package dto

// RefreshTokenDTO 刷新令牌请求。刷新令牌优先从 Cookie 读取，请求体中的值作为非浏览器客户端的备选。
type RefreshTokenDTO struct {
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJIUzI1NiIs..."`
}
