package router

import (
	"github.com/gin-gonic/gin"

	"projecthub/internal/domain"
	httpez "projecthub/internal/transport/http/ez"
	mdw "projecthub/internal/transport/http/middleware"
)

// NewAdminEngine 管理端：/admin/v1 统一要求 admin 角色
func NewAdminEngine(r *gin.Engine, d Deps) *gin.Engine {
	base(r, "admin", d)

	g := r.Group("/admin/v1")
	g.Use(d.Auth.Required(), mdw.Authorize(domain.RoleAdmin))
	d.Registry.MountAllAdmin(httpez.New(g, d.Auth, d.Log))
	return r
}
