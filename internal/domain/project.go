package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrDuplicate 存储层唯一约束冲突（邮箱、协作者对）
	ErrDuplicate = errors.New("duplicate record")
	// ErrNotFound 写操作命中 0 行
	ErrNotFound = errors.New("record not found")
)

type Status string

const (
	StatusActive      Status = "active"
	StatusDevelopment Status = "development"
	StatusInactive    Status = "inactive"
	StatusCompleted   Status = "completed"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, true
	case StatusDevelopment:
		return StatusDevelopment, true
	case StatusInactive:
		return StatusInactive, true
	case StatusCompleted:
		return StatusCompleted, true
	}
	return "", false
}

type CollaboratorRole string

const (
	CollabViewer CollaboratorRole = "viewer"
	CollabEditor CollaboratorRole = "editor"
	CollabAdmin  CollaboratorRole = "admin"
)

func ParseCollaboratorRole(s string) (CollaboratorRole, bool) {
	switch CollaboratorRole(strings.ToLower(strings.TrimSpace(s))) {
	case CollabViewer:
		return CollabViewer, true
	case CollabEditor:
		return CollabEditor, true
	case CollabAdmin:
		return CollabAdmin, true
	}
	return "", false
}

type DeploymentStatus string

const (
	DeployDeployed    DeploymentStatus = "deployed"
	DeployDeploying   DeploymentStatus = "deploying"
	DeployFailed      DeploymentStatus = "failed"
	DeployNotDeployed DeploymentStatus = "not-deployed"
)

func ParseDeploymentStatus(s string) (DeploymentStatus, bool) {
	switch DeploymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case DeployDeployed:
		return DeployDeployed, true
	case DeployDeploying:
		return DeployDeploying, true
	case DeployFailed:
		return DeployFailed, true
	case DeployNotDeployed:
		return DeployNotDeployed, true
	}
	return "", false
}

// UserRef 关联用户的公开信息
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Collaborator struct {
	User    UserRef          `json:"user"`
	Role    CollaboratorRole `json:"role"`
	AddedAt time.Time        `json:"addedAt"`
}

type Repository struct {
	URL    string `json:"url,omitempty"`
	Branch string `json:"branch"`
}

type Deployment struct {
	URL    string           `json:"url,omitempty"`
	Status DeploymentStatus `json:"status"`
}

type Project struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Tech          []string       `json:"tech"`
	Status        Status         `json:"status"`
	IsPublic      bool           `json:"isPublic"`
	Users         int            `json:"users"`
	Tags          []string       `json:"tags"`
	Repository    Repository     `json:"repository"`
	Deployment    Deployment     `json:"deployment"`
	Owner         UserRef        `json:"owner"`
	Collaborators []Collaborator `json:"collaborators"`
	LastUpdated   time.Time      `json:"lastUpdated"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (p *Project) HasCollaborator(userID string) bool {
	for _, c := range p.Collaborators {
		if c.User.ID == userID {
			return true
		}
	}
	return false
}

type Visibility int

const (
	// VisibilityPublic 匿名：仅公开项目
	VisibilityPublic Visibility = iota
	// VisibilityMember 普通用户：公开 或 自己的 或 参与协作的
	VisibilityMember
	// VisibilityAll 管理员：不限制
	VisibilityAll
)

// ProjectQuery 已按调用者身份收敛后的查询条件
type ProjectQuery struct {
	Status     Status
	Tech       string
	OwnerID    string
	Search     string
	Visibility Visibility
	ViewerID   string
}

type TechCount struct {
	Tech  string `json:"tech"`
	Count int64  `json:"count"`
}

type ProjectStats struct {
	TotalProjects       int64       `json:"totalProjects"`
	ActiveProjects      int64       `json:"activeProjects"`
	DevelopmentProjects int64       `json:"developmentProjects"`
	InactiveProjects    int64       `json:"inactiveProjects"`
	CompletedProjects   int64       `json:"completedProjects"`
	PublicProjects      int64       `json:"publicProjects"`
	PrivateProjects     int64       `json:"privateProjects"`
	NewProjects         int64       `json:"newProjects"`
	TopTechnologies     []TechCount `json:"topTechnologies"`
}

// ProjectRepository 查不到时返回 (nil, nil)
type ProjectRepository interface {
	Create(ctx context.Context, p *Project) error
	FindByID(ctx context.Context, id string) (*Project, error)
	List(ctx context.Context, q ProjectQuery, offset, limit int) ([]Project, int64, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id string) error
	AddCollaborator(ctx context.Context, projectID string, userID string, role CollaboratorRole) error
	Stats(ctx context.Context, since time.Time, topN int) (ProjectStats, error)
}
