package vo

// Empty 用于成功但无数据返回的响应
type Empty struct{}
