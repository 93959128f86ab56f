package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"projecthub/internal/core/auth"
	"projecthub/internal/core/database/dbtest"
	"projecthub/internal/domain"
	"projecthub/internal/repo"
	"projecthub/pkg/utils"
)

type env struct {
	users    *repo.UserRepo
	projects *repo.ProjectRepo
	tokens   *auth.JWTer
	userSvc  *UserService
	projSvc  *ProjectService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := dbtest.Open(t)
	require.NoError(t, repo.AutoMigrate(db))
	e := &env{
		users:    repo.NewUserRepo(db),
		projects: repo.NewProjectRepo(db),
		tokens:   &auth.JWTer{Secret: []byte("test-secret"), Issuer: "projecthub", TTL: time.Hour},
	}
	e.userSvc = NewUserService(e.users, e.tokens, nil)
	e.projSvc = NewProjectService(e.projects, e.users, nil)
	return e
}

// seedUser 直接落库，返回身份快照
func (e *env) seedUser(t *testing.T, email string, role domain.Role) *domain.Identity {
	t.Helper()
	hash, err := utils.HashPassword("password1")
	require.NoError(t, err)
	u := &domain.User{
		ID:           utils.NewID(),
		Name:         "user " + email,
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.Identity()
}

func (e *env) seedProject(t *testing.T, owner *domain.Identity, name string, public bool) *domain.Project {
	t.Helper()
	p, err := e.projSvc.Create(context.Background(), owner, CreateProjectInput{
		Name:        name,
		Description: "a project called " + name,
		Tech:        []string{"Go"},
		IsPublic:    public,
	})
	require.NoError(t, err)
	return p
}
