package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"projecthub/internal/domain"
	"projecthub/internal/service"
	httpez "projecthub/internal/transport/http/ez"
)

type ProjectHandler struct {
	projects *service.ProjectService
}

func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

func (h *ProjectHandler) Priority() int { return 30 }

func (h *ProjectHandler) MountAPI(e httpez.EZ) {
	g := e.Group("/projects")
	h.mountStats(g, adminOnly)

	// 列表/详情允许匿名，按身份决定可见范围
	httpez.RegisterAction(g, httpez.Action[service.ListProjectsInput, *service.ProjectList]{
		Method: http.MethodGet,
		Path:   "",
		Binder: httpez.BindQuery,
		Auth:   httpez.Optional,
		Handler: func(c *gin.Context, in *service.ListProjectsInput) (*service.ProjectList, error) {
			return h.projects.List(c.Request.Context(), httpez.Caller(c), *in)
		},
	})

	httpez.RegisterAction(g, httpez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/:id",
		Auth:   httpez.Optional,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			return wrapProject(h.projects.Get(c.Request.Context(), httpez.Caller(c), c.Param("id")))
		},
	})

	httpez.RegisterAction(g, httpez.Action[service.CreateProjectInput, gin.H]{
		Method:  http.MethodPost,
		Path:    "",
		Binder:  httpez.BindJSON,
		Auth:    httpez.Required,
		Status:  http.StatusCreated,
		Message: "project created successfully",
		Handler: func(c *gin.Context, in *service.CreateProjectInput) (gin.H, error) {
			return wrapProject(h.projects.Create(c.Request.Context(), httpez.Caller(c), *in))
		},
	})

	httpez.RegisterAction(g, httpez.Action[service.UpdateProjectInput, gin.H]{
		Method:  http.MethodPut,
		Path:    "/:id",
		Binder:  httpez.BindJSON,
		Auth:    httpez.Required,
		Message: "project updated successfully",
		Handler: func(c *gin.Context, in *service.UpdateProjectInput) (gin.H, error) {
			return wrapProject(h.projects.Update(c.Request.Context(), httpez.Caller(c), c.Param("id"), *in))
		},
	})

	httpez.RegisterAction(g, httpez.Action[struct{}, any]{
		Method:  http.MethodDelete,
		Path:    "/:id",
		Auth:    httpez.Required,
		Message: "project deleted successfully",
		Handler: func(c *gin.Context, _ *struct{}) (any, error) {
			return nil, h.projects.Delete(c.Request.Context(), httpez.Caller(c), c.Param("id"))
		},
	})

	httpez.RegisterAction(g, httpez.Action[service.AddCollaboratorInput, gin.H]{
		Method:  http.MethodPost,
		Path:    "/:id/collaborators",
		Binder:  httpez.BindJSON,
		Auth:    httpez.Required,
		Message: "collaborator added successfully",
		Handler: func(c *gin.Context, in *service.AddCollaboratorInput) (gin.H, error) {
			return wrapProject(h.projects.AddCollaborator(c.Request.Context(), httpez.Caller(c), c.Param("id"), *in))
		},
	})
}

func (h *ProjectHandler) MountAdmin(e httpez.EZ) {
	h.mountStats(e.Group("/projects"), nil)
}

func (h *ProjectHandler) mountStats(g httpez.EZ, roles []domain.Role) {
	httpez.RegisterAction(g, httpez.Action[struct{}, gin.H]{
		Method: http.MethodGet,
		Path:   "/stats",
		Roles:  roles,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			st, err := h.projects.Stats(c.Request.Context(), httpez.Caller(c))
			if err != nil {
				return nil, err
			}
			return gin.H{"stats": st}, nil
		},
	})
}

func wrapProject(p *domain.Project, err error) (gin.H, error) {
	if err != nil {
		return nil, err
	}
	return gin.H{"project": p}, nil
}
