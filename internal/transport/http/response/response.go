package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"projecthub/internal/apperr"
)

// Resp 统一响应体：{success, message?, data?, errors?}
type Resp struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

func OK(data any) Resp { return Resp{Success: true, Data: data} }

// Msg 成功 + 提示文案
func Msg(msg string, data any) Resp { return Resp{Success: true, Message: msg, Data: data} }

func Fail(msg string, fields ...apperr.FieldError) Resp {
	return Resp{Success: false, Message: msg, Errors: fields}
}

// FromError 非业务错误只返回通用文案
func FromError(err error) (int, Resp) {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, Fail(MsgTimeout)
	}
	k := apperr.KindOf(err)
	return StatusOf(k), Fail(apperr.PublicMessage(err), apperr.FieldsOf(err)...)
}

// Abort 写错误响应并终止后续 handler
func Abort(c *gin.Context, err error) {
	status, body := FromError(err)
	c.AbortWithStatusJSON(status, body)
}
