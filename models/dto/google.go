package dto

// GoogleLoginData 定义 DTO 结构体，用于接收客户端完成 Google 登录后拿到的 ID Token
type GoogleLoginData struct {
	// IDToken Google Sign-In 返回的 ID Token
	// - 必填，后端校验签名与 aud 后取出 sub/email/name/picture
	IDToken string `json:"id_token" binding:"required"`
}
