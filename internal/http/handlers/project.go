package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/taskmaster-backend/internal/http/response"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/services"
)

type ProjectHandler struct {
	projectService services.ProjectService
}

func NewProjectHandler(projectService services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

// POST /projects
// body: { "name": "...", "description": "..." }
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		return
	}
	var req services.CreateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, err := h.projectService.CreateProject(dbctx.Context{Ctx: c.Request.Context()}, userID, req)
	if err != nil {
		response.RespondAPIError(c, err, "create_project_failed")
		return
	}
	response.RespondCreated(c, gin.H{"project": p})
}

// GET /projects
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		return
	}
	projects, err := h.projectService.ListProjects(dbctx.Context{Ctx: c.Request.Context()}, userID)
	if err != nil {
		response.RespondAPIError(c, err, "list_projects_failed")
		return
	}
	response.RespondOK(c, gin.H{"projects": projects})
}

// GET /projects/:id
func (h *ProjectHandler) GetProject(c *gin.Context) {
	userID, ok := sessionUserID(c)
	if !ok {
		return
	}
	projectID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	p, err := h.projectService.GetProject(dbctx.Context{Ctx: c.Request.Context()}, userID, projectID)
	if err != nil {
		response.RespondAPIError(c, err, "load_project_failed")
		return
	}
	response.RespondOK(c, gin.H{"project": p})
}
