package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"projecthub/internal/apperr"
	"projecthub/internal/core/cache"
	"projecthub/internal/domain"
	"projecthub/internal/policy"
	"projecthub/internal/validate"
	"projecthub/pkg/utils"
)

const (
	topTechnologies = 10

	msgProjectNotFound = "project not found"
	msgInvalidStatus   = "status must be one of: active, development, inactive, completed"
)

// ListProjectsInput 列表查询参数，原样来自 query string
type ListProjectsInput struct {
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
	Status string `form:"status"`
	Tech   string `form:"tech"`
	Owner  string `form:"owner"`
	Search string `form:"search"`
}

type RepositoryInput struct {
	URL    *string `json:"url" validate:"omitempty,url,max=255"`
	Branch *string `json:"branch" validate:"omitempty,min=1,max=100"`
}

type DeploymentInput struct {
	URL    *string `json:"url" validate:"omitempty,url,max=255"`
	Status *string `json:"status"`
}

type CreateProjectInput struct {
	Name        string           `json:"name" validate:"required,min=1,max=100"`
	Description string           `json:"description" validate:"required,min=10,max=500"`
	Tech        []string         `json:"tech" validate:"required,min=1,dive,required,max=64"`
	Status      string           `json:"status"`
	IsPublic    bool             `json:"isPublic"`
	Users       int              `json:"users" validate:"min=0"`
	Tags        []string         `json:"tags" validate:"omitempty,dive,required,max=32"`
	Repository  *RepositoryInput `json:"repository"`
	Deployment  *DeploymentInput `json:"deployment"`
}

// UpdateProjectInput nil 字段保持不变
type UpdateProjectInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description" validate:"omitempty,min=10,max=500"`
	Tech        *[]string        `json:"tech" validate:"omitempty,min=1,dive,required,max=64"`
	Status      *string          `json:"status"`
	IsPublic    *bool            `json:"isPublic"`
	Users       *int             `json:"users" validate:"omitempty,min=0"`
	Tags        *[]string        `json:"tags" validate:"omitempty,dive,required,max=32"`
	Repository  *RepositoryInput `json:"repository"`
	Deployment  *DeploymentInput `json:"deployment"`
}

type AddCollaboratorInput struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role"`
}

type ProjectList struct {
	Projects   []domain.Project  `json:"projects"`
	Pagination domain.Pagination `json:"pagination"`
}

type ProjectService struct {
	projects domain.ProjectRepository
	users    domain.UserRepository
	cache    *cache.Cache
	statsTTL time.Duration
	log      *zap.Logger
}

func NewProjectService(projects domain.ProjectRepository, users domain.UserRepository, log *zap.Logger) *ProjectService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProjectService{projects: projects, users: users, log: log}
}

func (s *ProjectService) WithStatsCache(c *cache.Cache, ttl time.Duration) *ProjectService {
	s.cache, s.statsTTL = c, ttl
	return s
}

// BuildProjectQuery 把请求过滤条件和调用者身份收敛成查询；可见性与显式过滤是并列的 AND 条件
func BuildProjectQuery(in ListProjectsInput, caller *domain.Identity) (domain.ProjectQuery, error) {
	var q domain.ProjectQuery
	if s := strings.TrimSpace(in.Status); s != "" {
		st, ok := domain.ParseStatus(s)
		if !ok {
			return q, apperr.Validation(msgValidationFailed, apperr.FieldError{Field: "status", Message: msgInvalidStatus})
		}
		q.Status = st
	}
	q.Tech = strings.TrimSpace(in.Tech)
	q.Search = strings.TrimSpace(in.Search)

	switch {
	case caller == nil:
		// 匿名时忽略 owner
		q.Visibility = domain.VisibilityPublic
	case caller.IsAdmin():
		q.OwnerID = strings.TrimSpace(in.Owner)
		q.Visibility = domain.VisibilityAll
	default:
		q.OwnerID = strings.TrimSpace(in.Owner)
		q.Visibility = domain.VisibilityMember
		q.ViewerID = caller.ID
	}
	return q, nil
}

func (s *ProjectService) List(ctx context.Context, caller *domain.Identity, in ListProjectsInput) (*ProjectList, error) {
	q, err := BuildProjectQuery(in, caller)
	if err != nil {
		return nil, err
	}
	page := domain.NewPage(in.Page, in.Limit)
	items, total, err := s.projects.List(ctx, q, page.Offset(), page.Limit)
	if err != nil {
		return nil, apperr.Internal("list projects", err)
	}
	return &ProjectList{Projects: items, Pagination: page.Paginate(total)}, nil
}

func (s *ProjectService) Get(ctx context.Context, caller *domain.Identity, id string) (*domain.Project, error) {
	p, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadProject(caller, p) {
		return nil, apperr.Forbidden("access denied to this project")
	}
	return p, nil
}

func (s *ProjectService) Create(ctx context.Context, caller *domain.Identity, in CreateProjectInput) (*domain.Project, error) {
	if caller == nil {
		return nil, apperr.Unauthenticated("not authorized to access this route")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Tech = trimAll(in.Tech)
	in.Tags = trimAll(in.Tags)

	var extra []apperr.FieldError
	status := domain.StatusDevelopment
	if in.Status != "" {
		st, ok := domain.ParseStatus(in.Status)
		if !ok {
			extra = append(extra, apperr.FieldError{Field: "status", Message: msgInvalidStatus})
		}
		status = st
	}
	repo := domain.Repository{Branch: "main"}
	deploy := domain.Deployment{Status: domain.DeployNotDeployed}
	applyRepository(&repo, in.Repository)
	extra = append(extra, applyDeployment(&deploy, in.Deployment)...)
	if err := validate.Struct(in, extra...); err != nil {
		return nil, err
	}

	now := time.Now()
	p := &domain.Project{
		ID:          utils.NewID(),
		Name:        in.Name,
		Description: in.Description,
		Tech:        in.Tech,
		Status:      status,
		IsPublic:    in.IsPublic,
		Users:       in.Users,
		Tags:        nonNil(in.Tags),
		Repository:  repo,
		Deployment:  deploy,
		Owner:       domain.UserRef{ID: caller.ID, Name: caller.Name, Email: caller.Email},
		LastUpdated: now,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, apperr.Internal("create project", err)
	}
	s.log.Info("project created", zap.String("project_id", p.ID), zap.String("owner_id", caller.ID))
	return s.mustFind(ctx, p.ID)
}

// Update 先判存在，再判权限，最后校验并部分更新
func (s *ProjectService) Update(ctx context.Context, caller *domain.Identity, id string, in UpdateProjectInput) (*domain.Project, error) {
	p, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutateProject(caller, p) {
		return nil, apperr.Forbidden("not authorized to update this project")
	}

	trimPtr(in.Name)
	trimPtr(in.Description)
	if in.Tech != nil {
		*in.Tech = trimAll(*in.Tech)
	}
	if in.Tags != nil {
		*in.Tags = trimAll(*in.Tags)
	}
	var extra []apperr.FieldError
	if in.Status != nil {
		st, ok := domain.ParseStatus(*in.Status)
		if !ok {
			extra = append(extra, apperr.FieldError{Field: "status", Message: msgInvalidStatus})
		}
		p.Status = st
	}
	applyRepository(&p.Repository, in.Repository)
	extra = append(extra, applyDeployment(&p.Deployment, in.Deployment)...)
	if err := validate.Struct(in, extra...); err != nil {
		return nil, err
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Tech != nil {
		p.Tech = *in.Tech
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if in.Users != nil {
		p.Users = *in.Users
	}
	if in.Tags != nil {
		p.Tags = nonNil(*in.Tags)
	}
	p.LastUpdated = time.Now()
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, apperr.Internal("update project", err)
	}
	return s.mustFind(ctx, id)
}

func (s *ProjectService) Delete(ctx context.Context, caller *domain.Identity, id string) error {
	p, err := s.mustFind(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanMutateProject(caller, p) {
		return apperr.Forbidden("not authorized to delete this project")
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound(msgProjectNotFound)
		}
		return apperr.Internal("delete project", err)
	}
	s.log.Info("project deleted", zap.String("project_id", id), zap.String("by", caller.ID))
	return nil
}

// AddCollaborator 仅所有者可操作；重复添加为 Conflict，状态不变
func (s *ProjectService) AddCollaborator(ctx context.Context, caller *domain.Identity, projectID string, in AddCollaboratorInput) (*domain.Project, error) {
	p, err := s.mustFind(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !policy.CanManageCollaborators(caller, p) {
		return nil, apperr.Forbidden("not authorized to add collaborators")
	}

	in.UserID = strings.TrimSpace(in.UserID)
	var extra []apperr.FieldError
	role := domain.CollabViewer
	if in.Role != "" {
		r, ok := domain.ParseCollaboratorRole(in.Role)
		if !ok {
			extra = append(extra, apperr.FieldError{Field: "role", Message: "role must be viewer, editor, or admin"})
		}
		role = r
	}
	if in.UserID != "" && in.UserID == p.Owner.ID {
		extra = append(extra, apperr.FieldError{Field: "userId", Message: "the owner cannot be added as a collaborator"})
	}
	if err := validate.Struct(in, extra...); err != nil {
		return nil, err
	}

	if p.HasCollaborator(in.UserID) {
		return nil, apperr.Conflict("user is already a collaborator")
	}
	target, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	if target == nil {
		return nil, apperr.NotFound(msgUserNotFound)
	}
	if err := s.projects.AddCollaborator(ctx, p.ID, target.ID, role); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperr.Conflict("user is already a collaborator")
		}
		return nil, apperr.Internal("add collaborator", err)
	}
	s.log.Info("collaborator added",
		zap.String("project_id", p.ID),
		zap.String("user_id", target.ID),
		zap.String("role", string(role)),
	)
	return s.mustFind(ctx, p.ID)
}

func (s *ProjectService) Stats(ctx context.Context, caller *domain.Identity) (*domain.ProjectStats, error) {
	if !policy.CanViewProjectStats(caller) {
		return nil, apperr.Forbidden("not authorized to view project statistics")
	}
	st, err := cache.GetOrLoadJSON(s.cache, ctx, "stats:projects", s.statsTTL, func(ctx context.Context) (*domain.ProjectStats, error) {
		st, err := s.projects.Stats(ctx, time.Now().Add(-statsWindow), topTechnologies)
		if err != nil {
			return nil, err
		}
		return &st, nil
	})
	if err != nil {
		return nil, apperr.Internal("project stats", err)
	}
	return st, nil
}

func (s *ProjectService) mustFind(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("find project", err)
	}
	if p == nil {
		return nil, apperr.NotFound(msgProjectNotFound)
	}
	return p, nil
}

func applyRepository(dst *domain.Repository, in *RepositoryInput) {
	if in == nil {
		return
	}
	trimPtr(in.URL)
	trimPtr(in.Branch)
	if in.URL != nil {
		dst.URL = *in.URL
	}
	if in.Branch != nil {
		dst.Branch = *in.Branch
	}
}

func applyDeployment(dst *domain.Deployment, in *DeploymentInput) []apperr.FieldError {
	if in == nil {
		return nil
	}
	trimPtr(in.URL)
	if in.URL != nil {
		dst.URL = *in.URL
	}
	if in.Status != nil {
		st, ok := domain.ParseDeploymentStatus(*in.Status)
		if !ok {
			return []apperr.FieldError{{
				Field:   "deployment.status",
				Message: "deployment status must be one of: deployed, deploying, failed, not-deployed",
			}}
		}
		dst.Status = st
	}
	return nil
}

func trimAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
