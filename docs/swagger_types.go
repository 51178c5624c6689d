package docs

// 这个文件定义了专门用于 Swagger 文档注解的类型。
// 由于 swaggo/swag 工具目前不支持直接解析泛型类型（如 response.APIResponse[T]），
// 我们需要为每个在控制器注解中使用的具体泛型实例化类型定义一个非泛型的包装器。

import (
	"github.com/Xushengqwer/go-common/response" // 导入通用响应包

	"github.com/Xushengqwer/kath_hub/models/vo"
)

// --- 成功响应包装类型 ---

// SwaggerAPILoginResponse 包装了 response.APIResponse[vo.LoginResponse]
// 用于 AuthController.GoogleSignInHandler
type SwaggerAPILoginResponse struct {
	response.APIResponse[vo.LoginResponse]
}

// SwaggerAPIEmptyResponse 包装了 response.APIResponse[vo.Empty] (用于表示成功但无数据返回的情况)
// 用于 AuthController.LogoutHandler, ScreenController.CloseScreenHandler
type SwaggerAPIEmptyResponse struct {
	response.APIResponse[vo.Empty]
}

// SwaggerAPITokenPairResponse 包装了 response.APIResponse[vo.TokenPair]
// 用于 AuthController.RefreshTokenHandler
type SwaggerAPITokenPairResponse struct {
	response.APIResponse[vo.TokenPair]
}

// SwaggerAPIProfileVOResponse 包装了 response.APIResponse[vo.ProfileVO]
// 用于 UserProfileController.GetMyProfileHandler
type SwaggerAPIProfileVOResponse struct {
	response.APIResponse[vo.ProfileVO]
}

// SwaggerAPIScreenStateResponse 包装了 response.APIResponse[vo.ScreenStateVO]
// 用于 ScreenController 的所有页面操作
type SwaggerAPIScreenStateResponse struct {
	response.APIResponse[vo.ScreenStateVO]
}

// --- 失败响应包装类型 ---

// SwaggerAPIErrorResponseString 包装了 response.APIResponse[string]
type SwaggerAPIErrorResponseString struct {
	response.APIResponse[string]
}
