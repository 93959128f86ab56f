package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"projecthub/internal/core/database/dbtest"
	"projecthub/internal/domain"
	"projecthub/internal/repo"
	"projecthub/pkg/utils"
)

func countProjects(t *testing.T, r *repo.ProjectRepo, q domain.ProjectQuery) int64 {
	t.Helper()
	_, total, err := r.List(context.Background(), q, 0, 100)
	require.NoError(t, err)
	return total
}

func TestSeed_Idempotent(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, repo.AutoMigrate(db))
	ctx := context.Background()
	opt := DefaultSeed()

	require.NoError(t, Seed(ctx, db, opt, zap.NewNop()))
	require.NoError(t, Seed(ctx, db, opt, zap.NewNop()))

	users := repo.NewUserRepo(db)
	admin, err := users.FindByEmail(ctx, opt.Admin.Email)
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, domain.RoleAdmin, admin.Role)
	assert.True(t, utils.CheckPassword("admin123", admin.PasswordHash))

	projects := repo.NewProjectRepo(db)
	assert.EqualValues(t, len(sampleProjects), countProjects(t, projects, domain.ProjectQuery{Visibility: domain.VisibilityAll}))
	assert.EqualValues(t, 4, countProjects(t, projects, domain.ProjectQuery{Visibility: domain.VisibilityPublic}))
}

func TestSeed_Reset(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, repo.AutoMigrate(db))
	ctx := context.Background()

	opt := DefaultSeed()
	require.NoError(t, Seed(ctx, db, opt, zap.NewNop()))

	opt.Demo.Email = "other-demo@projecthub.local"
	opt.Reset = true
	require.NoError(t, Seed(ctx, db, opt, zap.NewNop()))

	users := repo.NewUserRepo(db)
	old, err := users.FindByEmail(ctx, "demo@projecthub.local")
	require.NoError(t, err)
	assert.Nil(t, old)

	projects := repo.NewProjectRepo(db)
	assert.EqualValues(t, len(sampleProjects), countProjects(t, projects, domain.ProjectQuery{Visibility: domain.VisibilityAll}))
}
