// Package ez 一行注册一个接口：鉴权 -> 绑定 -> 调用 -> 统一响应
package ez

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/core/auth"
	"projecthub/internal/domain"
	mdw "projecthub/internal/transport/http/middleware"
	resp "projecthub/internal/transport/http/response"
	"projecthub/internal/validate"
)

type EZ struct {
	g    *gin.RouterGroup
	auth *mdw.Auth
	log  *zap.Logger
}

func New(g *gin.RouterGroup, a *mdw.Auth, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, auth: a, log: l}
}

// Group 子路由，共享鉴权和日志
func (e EZ) Group(path string, handlers ...gin.HandlerFunc) EZ {
	return EZ{g: e.g.Group(path, handlers...), auth: e.auth, log: e.log}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

type AuthMode int

const (
	Public   AuthMode = iota // 不解析身份（或已由分组处理）
	Optional                 // 有 token 就解析
	Required                 // 必须登录
)

// 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string        // "GET" | "POST" | "PUT" | "DELETE"
	Path    string        // 例："/auth/login"、"/projects/:id/collaborators"
	Binder  Binder        // 绑定方式
	Auth    AuthMode      // 身份解析方式
	Roles   []domain.Role // 限定角色（隐含 Required）
	Status  int           // 成功状态码，默认 200
	Message string        // 成功文案（可选）
	Use     []gin.HandlerFunc
	Handler func(c *gin.Context, in *I) (O, error)
}

// Caller 当前请求的身份，匿名为 nil
func Caller(c *gin.Context) *domain.Identity { return auth.IdentityFrom(c.Request.Context()) }

// RegisterAction 在当前 EZ 下注册动作接口
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	chain := make([]gin.HandlerFunc, 0, len(a.Use)+3)
	chain = append(chain, a.Use...)
	switch {
	case a.Auth == Required || len(a.Roles) > 0:
		chain = append(chain, e.auth.Required())
	case a.Auth == Optional:
		chain = append(chain, e.auth.Optional())
	}
	if len(a.Roles) > 0 {
		chain = append(chain, mdw.Authorize(a.Roles...))
	}
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}

	chain = append(chain, func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			resp.Abort(c, err)
			return
		}
		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, err)
			return
		}
		c.JSON(status, resp.Msg(a.Message, out))
	})

	e.g.Handle(strings.ToUpper(a.Method), a.Path, chain...)
}

func bind(c *gin.Context, b Binder, in any) error {
	var err error
	switch b {
	case BindJSON:
		err = c.ShouldBindJSON(in)
		// 空 body 视为没有字段（部分更新）
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case BindQuery:
		err = c.ShouldBindQuery(in)
	default: // BindNone
		return nil
	}
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperr.Validation("validation failed", validate.FromValidator(verrs)...)
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apperr.Validation(resp.MsgBodyTooLarge)
	}
	if b == BindQuery {
		return apperr.Validation("invalid query parameters")
	}
	return apperr.Validation("invalid request body")
}

// fail 非业务错误记完整日志，对外只给通用文案
func (e EZ) fail(c *gin.Context, err error) {
	if !apperr.KindOf(err).Operational() {
		e.log.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	resp.Abort(c, err)
}
