package response

import (
	"net/http"

	"projecthub/internal/apperr"
)

// StatusOf 错误类别 -> HTTP 状态码
func StatusOf(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation, apperr.KindInvalidCredential:
		return http.StatusBadRequest
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// 中间件直接使用的固定文案
const (
	MsgInternal        = "something went wrong"
	MsgTimeout         = "request timeout"
	MsgTooManyRequests = "too many requests"
	MsgServerBusy      = "server busy"
	MsgBodyTooLarge    = "request body too large"
	MsgRouteNotFound   = "route not found"
)
