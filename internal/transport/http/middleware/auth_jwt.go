package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/core/auth"
	"projecthub/internal/domain"
	resp "projecthub/internal/transport/http/response"
)

// Auth 把 Authorization 头解析成身份快照，挂到 request context
type Auth struct {
	resolver *auth.Resolver
	log      *zap.Logger
}

func NewAuth(r *auth.Resolver, l *zap.Logger) *Auth {
	if l == nil {
		l = zap.NewNop()
	}
	return &Auth{resolver: r, log: l}
}

// Required 必须登录
func (a *Auth) Required() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := a.resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			if !apperr.KindOf(err).Operational() {
				a.log.Error("resolve identity", zap.String("rid", c.GetString(KeyRequestID)), zap.Error(err))
			}
			resp.Abort(c, err)
			return
		}
		attach(c, id)
		c.Next()
	}
}

// Optional 有 token 就解析，失败按匿名放行
func (a *Auth) Optional() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if auth.BearerToken(header) == "" {
			c.Next()
			return
		}
		id, err := a.resolver.Resolve(c.Request.Context(), header)
		if err != nil {
			a.log.Debug("optional auth ignored", zap.String("rid", c.GetString(KeyRequestID)), zap.Error(err))
			c.Next()
			return
		}
		attach(c, id)
		c.Next()
	}
}

// Authorize 需在 Required 之后使用
func Authorize(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.IdentityFrom(c.Request.Context())
		if id == nil {
			resp.Abort(c, apperr.Forbidden("not authorized to access this route"))
			return
		}
		for _, r := range roles {
			if id.Role == r {
				c.Next()
				return
			}
		}
		resp.Abort(c, apperr.Forbidden(fmt.Sprintf("user role %s is not authorized to access this route", id.Role)))
	}
}

func attach(c *gin.Context, id *domain.Identity) {
	c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
}
