package dto

// Response 统一响应封装
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// PageReq 游标分页入参
type PageReq struct {
	Before string `form:"before"`
	Limit  int    `form:"limit"`
}
