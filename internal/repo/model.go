package repo

import (
	"time"

	"gorm.io/gorm"

	"projecthub/internal/domain"
)

type UserModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Email        string `gorm:"uniqueIndex;size:191;not null"`
	Name         string `gorm:"size:64;not null"`
	PasswordHash string `gorm:"size:100;not null"`
	Role         string `gorm:"size:16;not null;default:user;index"`
	Avatar       string `gorm:"size:255"`
	Active       bool   `gorm:"not null;index"`
	LastLoginAt  *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

type ProjectModel struct {
	ID               string    `gorm:"primaryKey;size:36"`
	Name             string    `gorm:"size:100;not null"`
	Description      string    `gorm:"size:500;not null"`
	Status           string    `gorm:"size:16;not null;default:development;index"`
	IsPublic         bool      `gorm:"not null;index"`
	Users            int       `gorm:"not null;default:0"`
	Tags             []string  `gorm:"serializer:json;type:text"`
	RepositoryURL    string    `gorm:"size:255"`
	RepositoryBranch string    `gorm:"size:100;not null;default:main"`
	DeploymentURL    string    `gorm:"size:255"`
	DeploymentStatus string    `gorm:"size:16;not null;default:not-deployed"`
	OwnerID          string    `gorm:"size:36;not null;index"`
	LastUpdated      time.Time `gorm:"not null;index"`

	Owner         UserModel           `gorm:"foreignKey:OwnerID"`
	Techs         []ProjectTechModel  `gorm:"foreignKey:ProjectID"`
	Collaborators []CollaboratorModel `gorm:"foreignKey:ProjectID"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (ProjectModel) TableName() string { return "projects" }

// ProjectTechModel 有序技术栈，单独成表便于按成员过滤
type ProjectTechModel struct {
	ProjectID string `gorm:"primaryKey;size:36"`
	Position  int    `gorm:"primaryKey;autoIncrement:false"`
	Name      string `gorm:"size:64;not null;index"`
}

func (ProjectTechModel) TableName() string { return "project_techs" }

type CollaboratorModel struct {
	ID        uint      `gorm:"primaryKey"`
	ProjectID string    `gorm:"size:36;not null;uniqueIndex:idx_project_user"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_project_user;index"`
	User      UserModel `gorm:"foreignKey:UserID"`
	Role      string    `gorm:"size:16;not null;default:viewer"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CollaboratorModel) TableName() string { return "project_collaborators" }

// AutoMigrate 建表/补字段
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{}, &ProjectModel{}, &ProjectTechModel{}, &CollaboratorModel{})
}

func userFromDomain(u *domain.User) *UserModel {
	return &UserModel{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Avatar:       u.Avatar,
		Active:       u.Active,
		LastLoginAt:  u.LastLoginAt,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m *UserModel) toDomain() *domain.User {
	return &domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		Avatar:       m.Avatar,
		Active:       m.Active,
		LastLoginAt:  m.LastLoginAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m *UserModel) ref() domain.UserRef {
	return domain.UserRef{ID: m.ID, Name: m.Name, Email: m.Email}
}

func projectFromDomain(p *domain.Project) *ProjectModel {
	return &ProjectModel{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		Status:           string(p.Status),
		IsPublic:         p.IsPublic,
		Users:            p.Users,
		Tags:             p.Tags,
		RepositoryURL:    p.Repository.URL,
		RepositoryBranch: p.Repository.Branch,
		DeploymentURL:    p.Deployment.URL,
		DeploymentStatus: string(p.Deployment.Status),
		OwnerID:          p.Owner.ID,
		LastUpdated:      p.LastUpdated,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func techRows(projectID string, tech []string) []ProjectTechModel {
	rows := make([]ProjectTechModel, 0, len(tech))
	for i, t := range tech {
		rows = append(rows, ProjectTechModel{ProjectID: projectID, Position: i, Name: t})
	}
	return rows
}

func (m *ProjectModel) toDomain() domain.Project {
	p := domain.Project{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Status:      domain.Status(m.Status),
		IsPublic:    m.IsPublic,
		Users:       m.Users,
		Tags:        m.Tags,
		Repository:  domain.Repository{URL: m.RepositoryURL, Branch: m.RepositoryBranch},
		Deployment:  domain.Deployment{URL: m.DeploymentURL, Status: domain.DeploymentStatus(m.DeploymentStatus)},
		Owner:       m.Owner.ref(),
		LastUpdated: m.LastUpdated,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	// 未 preload 时至少保留 owner id
	if p.Owner.ID == "" {
		p.Owner.ID = m.OwnerID
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Tech = make([]string, 0, len(m.Techs))
	for _, t := range m.Techs {
		p.Tech = append(p.Tech, t.Name)
	}
	p.Collaborators = make([]domain.Collaborator, 0, len(m.Collaborators))
	for _, c := range m.Collaborators {
		ref := c.User.ref()
		if ref.ID == "" {
			ref.ID = c.UserID
		}
		p.Collaborators = append(p.Collaborators, domain.Collaborator{
			User:    ref,
			Role:    domain.CollaboratorRole(c.Role),
			AddedAt: c.CreatedAt,
		})
	}
	return p
}
