package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projecthub/internal/core/auth"
	"projecthub/internal/core/config"
	"projecthub/internal/core/database/dbtest"
	"projecthub/internal/core/server"
	"projecthub/internal/domain"
	"projecthub/internal/repo"
	"projecthub/internal/service"
	"projecthub/internal/transport/http/handler"
	mdw "projecthub/internal/transport/http/middleware"
)

func init() { gin.SetMode(gin.TestMode) }

type app struct {
	api   *gin.Engine
	admin *gin.Engine
	users *repo.UserRepo
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, repo.AutoMigrate(db))

	l := zap.NewNop()
	jwter := &auth.JWTer{Secret: []byte("router-secret"), Issuer: "projecthub", TTL: time.Hour}
	users := repo.NewUserRepo(db)
	projects := repo.NewProjectRepo(db)
	userSvc := service.NewUserService(users, jwter, l)
	projSvc := service.NewProjectService(projects, users, l)

	authH := handler.NewAuthHandler(userSvc)
	authH.PerIPRPS = 0
	reg := NewRegistry(authH, handler.NewUserHandler(userSvc), handler.NewProjectHandler(projSvc))
	d := Deps{
		Log:      l,
		Auth:     mdw.NewAuth(auth.NewResolver(jwter, users), l),
		Limit:    config.Limit{RPS: 1000, Burst: 1000, Concurrency: 100, MaxBodyBytes: 1 << 20, TimeoutSec: 5},
		Registry: reg,
	}
	return &app{
		api:   NewAPIEngine(server.NewRouter(l, nil), d),
		admin: NewAdminEngine(server.NewRouter(l, nil), d),
		users: users,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func register(t *testing.T, a *app, name, email string) (id, token string) {
	t.Helper()
	code, env := call(t, a.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var out struct {
		User  domain.User `json:"user"`
		Token string      `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out.User.ID, out.Token
}

// promote 直接改库，绕过接口
func promote(t *testing.T, a *app, id string) {
	t.Helper()
	u, err := a.users.FindByID(context.Background(), id)
	require.NoError(t, err)
	u.Role = domain.RoleAdmin
	require.NoError(t, a.users.Update(context.Background(), u))
}

func TestHealthAndNoRoute(t *testing.T) {
	a := newApp(t)
	code, env := call(t, a.api, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = call(t, a.api, http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "route not found", env.Message)
}

func TestAuthFlow(t *testing.T) {
	a := newApp(t)
	_, tok := register(t, a, "Ada", "Ada@Example.com")

	// 同邮箱不同大小写视为重复
	code, env := call(t, a.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Ada2", "email": "ada@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "user already exists with this email", env.Message)

	code, env = call(t, a.api, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "bad"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, env.Errors)

	code, env = call(t, a.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "ada@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid credentials", env.Message)

	code, env = call(t, a.api, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "ADA@example.com", "password": "secret123",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "login successful", env.Message)

	code, env = call(t, a.api, http.MethodGet, "/api/v1/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"email":"ada@example.com"`)
	assert.NotContains(t, string(env.Data), "password")

	code, _ = call(t, a.api, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = call(t, a.api, http.MethodPost, "/api/v1/auth/logout", tok, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "logout successful", env.Message)
	assert.Empty(t, env.Data)

	code, env = call(t, a.api, http.MethodPut, "/api/v1/auth/password", tok, gin.H{
		"currentPassword": "nope-nope", "newPassword": "another1",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "current password is incorrect", env.Message)

	code, env = call(t, a.api, http.MethodPut, "/api/v1/auth/password", tok, gin.H{
		"currentPassword": "secret123", "newPassword": "another1",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"token"`)
}

func TestUserRoutes_AdminOnly(t *testing.T) {
	a := newApp(t)
	uid, userTok := register(t, a, "Bob", "bob@example.com")
	adminID, adminTok := register(t, a, "Root", "root@example.com")
	promote(t, a, adminID)

	code, env := call(t, a.api, http.MethodGet, "/api/v1/users", userTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "user role user is not authorized to access this route", env.Message)

	code, env = call(t, a.api, http.MethodGet, "/api/v1/users?limit=1&page=2", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	var list service.UserList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list.Users, 1)
	assert.EqualValues(t, 2, list.Pagination.Total)

	code, env = call(t, a.api, http.MethodGet, "/api/v1/users/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"totalUsers":2`)

	// 任何登录用户都能查看单个用户
	code, _ = call(t, a.api, http.MethodGet, "/api/v1/users/"+adminID, userTok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, a.api, http.MethodPut, "/api/v1/users/profile", userTok, gin.H{"name": "Bobby"})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"name":"Bobby"`)

	code, _ = call(t, a.api, http.MethodPut, "/api/v1/users/"+uid, adminTok, gin.H{"isActive": false})
	require.Equal(t, http.StatusOK, code)

	// 停用后旧 token 失效
	code, _ = call(t, a.api, http.MethodGet, "/api/v1/auth/me", userTok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = call(t, a.api, http.MethodDelete, "/api/v1/users/"+adminID, adminTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "you cannot delete your own account", env.Message)

	code, env = call(t, a.api, http.MethodDelete, "/api/v1/users/"+uid, adminTok, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user deleted successfully", env.Message)

	code, _ = call(t, a.api, http.MethodGet, "/api/v1/users/"+uid, adminTok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestProjectRoutes(t *testing.T) {
	a := newApp(t)
	_, ownerTok := register(t, a, "Owner", "owner@example.com")
	otherID, otherTok := register(t, a, "Other", "other@example.com")

	body := gin.H{
		"name":        "Hub",
		"description": "a place for projects",
		"tech":        []string{"Go", "Postgres"},
		"isPublic":    false,
	}
	code, _ := call(t, a.api, http.MethodPost, "/api/v1/projects", "", body)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := call(t, a.api, http.MethodPost, "/api/v1/projects", ownerTok, body)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created struct {
		Project domain.Project `json:"project"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	pid := created.Project.ID
	assert.Equal(t, domain.StatusDevelopment, created.Project.Status)
	assert.Equal(t, []string{"Go", "Postgres"}, created.Project.Tech)

	// 私有项目对匿名和非成员不可见
	code, env = call(t, a.api, http.MethodGet, "/api/v1/projects/"+pid, "", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "access denied to this project", env.Message)
	code, _ = call(t, a.api, http.MethodGet, "/api/v1/projects/"+pid, otherTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = call(t, a.api, http.MethodGet, "/api/v1/projects/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, env = call(t, a.api, http.MethodGet, "/api/v1/projects", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"projects":[]`)

	code, _ = call(t, a.api, http.MethodPut, "/api/v1/projects/"+pid, otherTok, gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = call(t, a.api, http.MethodPost, "/api/v1/projects/"+pid+"/collaborators", ownerTok, gin.H{
		"userId": otherID, "role": "Editor",
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"role":"editor"`)

	code, _ = call(t, a.api, http.MethodPost, "/api/v1/projects/"+pid+"/collaborators", ownerTok, gin.H{
		"userId": otherID,
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = call(t, a.api, http.MethodGet, "/api/v1/projects/"+pid, otherTok, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, a.api, http.MethodGet, "/api/v1/projects?status=bogus", ownerTok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)

	code, env = call(t, a.api, http.MethodPut, "/api/v1/projects/"+pid, ownerTok, gin.H{"status": "Active", "isPublic": true})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"status":"active"`)

	code, env = call(t, a.api, http.MethodGet, "/api/v1/projects?tech=Go", "", nil)
	require.Equal(t, http.StatusOK, code)
	var list service.ProjectList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Projects, 1)

	code, _ = call(t, a.api, http.MethodDelete, "/api/v1/projects/"+pid, otherTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, env = call(t, a.api, http.MethodDelete, "/api/v1/projects/"+pid, ownerTok, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "project deleted successfully", env.Message)
}

func TestAdminEngine(t *testing.T) {
	a := newApp(t)
	_, userTok := register(t, a, "Carol", "carol@example.com")
	adminID, adminTok := register(t, a, "Boss", "boss@example.com")
	promote(t, a, adminID)

	code, _ := call(t, a.admin, http.MethodGet, "/admin/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = call(t, a.admin, http.MethodGet, "/admin/v1/users", userTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := call(t, a.admin, http.MethodGet, "/admin/v1/users?search=CAROL", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	var list service.UserList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Users, 1)
	assert.Equal(t, "carol@example.com", list.Users[0].Email)

	code, env = call(t, a.admin, http.MethodGet, "/admin/v1/projects/stats", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"stats"`)

	// 用户端路由不挂在管理端
	code, env = call(t, a.admin, http.MethodPost, "/admin/v1/auth/login", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "route not found", env.Message)
}
