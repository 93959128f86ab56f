package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"projecthub/internal/domain"
	"projecthub/internal/repo"
	"projecthub/pkg/utils"
)

type SeedUser struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

type SeedOptions struct {
	Admin SeedUser
	Demo  SeedUser
	// Reset 先清空用户与项目
	Reset bool
}

func DefaultSeed() SeedOptions {
	return SeedOptions{
		Admin: SeedUser{Name: "Admin User", Email: "admin@projecthub.local", Password: "admin123", Role: domain.RoleAdmin},
		Demo:  SeedUser{Name: "Demo User", Email: "demo@projecthub.local", Password: "demo123", Role: domain.RoleUser},
	}
}

type seedProject struct {
	name, description string
	tech, tags        []string
	status            domain.Status
	users             int
	public            bool
	byAdmin           bool
}

var sampleProjects = []seedProject{
	{
		name:        "E-Commerce Platform",
		description: "A full-featured e-commerce platform with product catalog, shopping cart, authentication and payment integration.",
		tech:        []string{"React", "Go", "PostgreSQL", "Stripe", "JWT"},
		tags:        []string{"ecommerce", "fullstack", "payment"},
		status:      domain.StatusActive, users: 1250, public: true, byAdmin: true,
	},
	{
		name:        "Social Media Dashboard",
		description: "Manage multiple social media accounts, schedule posts and analyze engagement metrics from one dashboard.",
		tech:        []string{"React", "Redux", "Go", "Redis", "WebSocket"},
		tags:        []string{"social-media", "dashboard", "analytics"},
		status:      domain.StatusDevelopment, users: 450, public: true, byAdmin: true,
	},
	{
		name:        "Task Management System",
		description: "A collaborative task manager with real-time updates, team collaboration and project tracking.",
		tech:        []string{"React", "TypeScript", "Go", "PostgreSQL", "WebSocket"},
		tags:        []string{"productivity", "collaboration", "realtime"},
		status:      domain.StatusActive, users: 890, public: true,
	},
	{
		name:        "Learning Management System",
		description: "An online learning platform with course creation, enrollment, progress tracking and quizzes.",
		tech:        []string{"React", "Go", "MySQL", "S3", "FFmpeg"},
		tags:        []string{"education", "lms", "video"},
		status:      domain.StatusDevelopment, users: 320,
	},
	{
		name:        "Real Estate Portal",
		description: "A listing platform with advanced search filters, virtual tours and agent management.",
		tech:        []string{"React", "Next.js", "Go", "PostgreSQL", "Mapbox"},
		tags:        []string{"real-estate", "maps", "search"},
		status:      domain.StatusActive, users: 2100, public: true, byAdmin: true,
	},
}

// Seed 可重复执行：已存在的用户沿用，已有项目的用户不再补样例
func Seed(ctx context.Context, db *gorm.DB, opt SeedOptions, l *zap.Logger) error {
	if opt.Reset {
		if err := reset(ctx, db); err != nil {
			return err
		}
		l.Info("seed: cleared existing data")
	}
	users := repo.NewUserRepo(db)
	projects := repo.NewProjectRepo(db)

	admin, err := ensureUser(ctx, users, opt.Admin, l)
	if err != nil {
		return err
	}
	demo, err := ensureUser(ctx, users, opt.Demo, l)
	if err != nil {
		return err
	}

	for _, owner := range []*domain.User{admin, demo} {
		_, total, err := projects.List(ctx, domain.ProjectQuery{OwnerID: owner.ID, Visibility: domain.VisibilityAll}, 0, 1)
		if err != nil {
			return fmt.Errorf("seed: list projects: %w", err)
		}
		if total > 0 {
			l.Info("seed: projects already present", zap.String("owner", owner.Email), zap.Int64("count", total))
			continue
		}
		for _, sp := range sampleProjects {
			if sp.byAdmin != (owner.ID == admin.ID) {
				continue
			}
			p := &domain.Project{
				ID:          utils.NewID(),
				Name:        sp.name,
				Description: sp.description,
				Tech:        sp.tech,
				Status:      sp.status,
				IsPublic:    sp.public,
				Users:       sp.users,
				Tags:        sp.tags,
				Repository:  domain.Repository{Branch: "main"},
				Deployment:  domain.Deployment{Status: domain.DeployNotDeployed},
				Owner:       domain.UserRef{ID: owner.ID, Name: owner.Name, Email: owner.Email},
				LastUpdated: time.Now(),
			}
			if err := projects.Create(ctx, p); err != nil {
				return fmt.Errorf("seed: create project %q: %w", sp.name, err)
			}
		}
		l.Info("seed: sample projects created", zap.String("owner", owner.Email))
	}
	return nil
}

func ensureUser(ctx context.Context, users *repo.UserRepo, su SeedUser, l *zap.Logger) (*domain.User, error) {
	email := domain.NormalizeEmail(su.Email)
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("seed: find %s: %w", email, err)
	}
	if u != nil {
		l.Info("seed: user exists", zap.String("email", email))
		return u, nil
	}
	hash, err := utils.HashPassword(su.Password)
	if err != nil {
		return nil, fmt.Errorf("seed: hash password: %w", err)
	}
	u = &domain.User{
		ID:           utils.NewID(),
		Name:         su.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         su.Role,
		Active:       true,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("seed: create %s: %w", email, err)
	}
	l.Info("seed: user created", zap.String("email", email), zap.String("role", string(u.Role)))
	return u, nil
}

func reset(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&repo.CollaboratorModel{}, &repo.ProjectTechModel{}, &repo.ProjectModel{}, &repo.UserModel{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("seed: reset: %w", err)
			}
		}
		return nil
	})
}
