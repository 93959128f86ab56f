package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"projecthub/internal/service"
	httpez "projecthub/internal/transport/http/ez"
	mdw "projecthub/internal/transport/http/middleware"
)

// AuthHandler /auth/*：注册、登录、当前用户、改密
type AuthHandler struct {
	users *service.UserService
	// 登录/注册每 IP 限速，<= 0 表示不限
	PerIPRPS   rate.Limit
	PerIPBurst int
}

func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users, PerIPRPS: 1, PerIPBurst: 10}
}

func (h *AuthHandler) Priority() int { return 10 }

func (h *AuthHandler) MountAPI(e httpez.EZ) {
	var guard []gin.HandlerFunc
	if h.PerIPRPS > 0 {
		guard = append(guard, mdw.RateLimitPerIP(h.PerIPRPS, h.PerIPBurst))
	}
	g := e.Group("/auth")

	httpez.RegisterAction(g, httpez.Action[service.RegisterInput, *service.AuthResult]{
		Method:  http.MethodPost,
		Path:    "/register",
		Binder:  httpez.BindJSON,
		Status:  http.StatusCreated,
		Message: "user registered successfully",
		Use:     guard,
		Handler: func(c *gin.Context, in *service.RegisterInput) (*service.AuthResult, error) {
			return h.users.Register(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(g, httpez.Action[service.LoginInput, *service.AuthResult]{
		Method:  http.MethodPost,
		Path:    "/login",
		Binder:  httpez.BindJSON,
		Message: "login successful",
		Use:     guard,
		Handler: func(c *gin.Context, in *service.LoginInput) (*service.AuthResult, error) {
			return h.users.Login(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(g, httpez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/me",
		Auth:   httpez.Required,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			u, err := h.users.Me(c.Request.Context(), httpez.Caller(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"user": u}, nil
		},
	})

	httpez.RegisterAction(g, httpez.Action[struct{}, any]{
		Method:  http.MethodPost,
		Path:    "/logout",
		Auth:    httpez.Required,
		Message: "logout successful",
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			return nil, h.users.Logout(c.Request.Context(), httpez.Caller(c))
		},
	})

	httpez.RegisterAction(g, httpez.Action[service.ChangePasswordInput, gin.H]{
		Method:  http.MethodPut,
		Path:    "/password",
		Binder:  httpez.BindJSON,
		Auth:    httpez.Required,
		Message: "password updated successfully",
		Handler: func(c *gin.Context, in *service.ChangePasswordInput) (gin.H, error) {
			tok, err := h.users.ChangePassword(c.Request.Context(), httpez.Caller(c), *in)
			if err != nil {
				return nil, err
			}
			return gin.H{"token": tok}, nil
		},
	})
}
