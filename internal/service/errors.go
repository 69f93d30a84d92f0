package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	Forbidden           = 403
	NotFound            = 404
	Conflict            = 409
	Gone                = 410
	TooManyRequests     = 429
	InternalServerError = 500
)

var (
	ErrParamInvalid    = errors.New("参数错误")
	ErrNotParticipant  = errors.New("不在会话中")
	ErrForbidden       = errors.New("权限不足")
	ErrNotFound        = errors.New("目标不存在")
	ErrMessageNotFound = errors.New("消息不存在")
	ErrConvNotFound    = errors.New("会话不存在")
	ErrWindowExpired   = errors.New("操作已超出时间窗口")
	ErrRateLimited     = errors.New("操作过于频繁，请稍后再试")
	ErrConflict        = errors.New("操作冲突")
	ErrLinkExpired     = errors.New("邀请链接已过期")
	ErrLinkLimit       = errors.New("邀请链接使用次数已达上限")
	ErrGroupFull       = errors.New("群成员已达上限")
	ErrBlocked         = errors.New("对方已屏蔽该会话")
	ErrCredentials     = errors.New("邮箱或密码错误")
	UnauthorizedError  = errors.New("未登录或登录已失效")
	UnExpectedError    = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:    BadRequest,
	ErrNotParticipant:  Forbidden,
	ErrForbidden:       Forbidden,
	ErrNotFound:        NotFound,
	ErrMessageNotFound: NotFound,
	ErrConvNotFound:    NotFound,
	ErrWindowExpired:   Gone,
	ErrRateLimited:     TooManyRequests,
	ErrConflict:        Conflict,
	ErrLinkExpired:     Gone,
	ErrLinkLimit:       Forbidden,
	ErrGroupFull:       BadRequest,
	ErrBlocked:         Forbidden,
	ErrCredentials:     Unauthorized,
	UnauthorizedError:  Unauthorized,
	UnExpectedError:    InternalServerError,
}
