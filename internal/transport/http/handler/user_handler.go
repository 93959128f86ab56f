package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"projecthub/internal/domain"
	"projecthub/internal/service"
	httpez "projecthub/internal/transport/http/ez"
)

var adminOnly = []domain.Role{domain.RoleAdmin}

type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler { return &UserHandler{users: users} }

func (h *UserHandler) Priority() int { return 20 }

// MountAPI 用户端；管理类接口同样要求 admin
func (h *UserHandler) MountAPI(e httpez.EZ) {
	g := e.Group("/users")
	h.mountAdmin(g, adminOnly)

	httpez.RegisterAction(g, httpez.Action[service.ProfileInput, gin.H]{
		Method:  http.MethodPut,
		Path:    "/profile",
		Binder:  httpez.BindJSON,
		Auth:    httpez.Required,
		Message: "profile updated successfully",
		Handler: func(c *gin.Context, in *service.ProfileInput) (gin.H, error) {
			u, err := h.users.UpdateProfile(c.Request.Context(), httpez.Caller(c), *in)
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})

	httpez.RegisterAction(g, httpez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id",
		Auth:   httpez.Required,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			u, err := h.users.Get(c.Request.Context(), httpez.Caller(c), c.Param("id"))
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})
}

// MountAdmin 分组已校验 admin
func (h *UserHandler) MountAdmin(e httpez.EZ) {
	h.mountAdmin(e.Group("/users"), nil)
}

func (h *UserHandler) mountAdmin(g httpez.EZ, roles []domain.Role) {
	httpez.RegisterAction(g, httpez.Action[service.ListUsersInput, *service.UserList]{
		Method: http.MethodGet,
		Path:   "",
		Binder: httpez.BindQuery,
		Roles:  roles,
		Handler: func(c *gin.Context, in *service.ListUsersInput) (*service.UserList, error) {
			return h.users.List(c.Request.Context(), httpez.Caller(c), *in)
		},
	})

	httpez.RegisterAction(g, httpez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/stats",
		Roles:  roles,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			st, err := h.users.Stats(c.Request.Context(), httpez.Caller(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"stats": st}, nil
		},
	})

	httpez.RegisterAction(g, httpez.Action[service.AdminUpdateInput, gin.H]{
		Method:  http.MethodPut,
		Path:    "/:id",
		Binder:  httpez.BindJSON,
		Roles:   roles,
		Message: "user updated successfully",
		Handler: func(c *gin.Context, in *service.AdminUpdateInput) (gin.H, error) {
			u, err := h.users.AdminUpdate(c.Request.Context(), httpez.Caller(c), c.Param("id"), *in)
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})

	httpez.RegisterAction(g, httpez.Action[struct{}, any]{
		Method:  http.MethodDelete,
		Path:    "/:id",
		Roles:   roles,
		Message: "user deleted successfully",
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			return nil, h.users.Delete(c.Request.Context(), httpez.Caller(c), c.Param("id"))
		},
	})
}
