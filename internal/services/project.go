package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/taskmaster-backend/internal/data/repos"
	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/platform/apierr"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
	"github.com/yungbote/taskmaster-backend/internal/platform/validate"
)

type ProjectService interface {
	CreateProject(dbc dbctx.Context, ownerID uuid.UUID, in CreateProjectInput) (*types.Project, error)
	ListProjects(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Project, error)
	GetProject(dbc dbctx.Context, userID, projectID uuid.UUID) (*types.Project, error)
}

type CreateProjectInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type projectService struct {
	db          *gorm.DB
	log         *logger.Logger
	projectRepo repos.ProjectRepo
}

func NewProjectService(db *gorm.DB, log *logger.Logger, projectRepo repos.ProjectRepo) ProjectService {
	return &projectService{
		db:          db,
		log:         log.With("service", "ProjectService"),
		projectRepo: projectRepo,
	}
}

func (ps *projectService) CreateProject(dbc dbctx.Context, ownerID uuid.UUID, in CreateProjectInput) (*types.Project, error) {
	if ownerID == uuid.Nil {
		return nil, apierr.Unauthorized()
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if err := validate.Struct(in); err != nil {
		return nil, apierr.BadRequest("validation_failed", err)
	}
	p := &types.Project{
		OwnerUserID: ownerID,
		Name:        in.Name,
		Description: in.Description,
		Status:      types.ProjectStatusActive,
	}
	if _, err := ps.projectRepo.Create(dbc, []*types.Project{p}); err != nil {
		ps.log.Error("Create project failed", "error", err, "user_id", ownerID)
		return nil, apierr.Internal("create_project_failed", fmt.Errorf("create project: %w", err))
	}
	ps.log.Info("Project created", "project_id", p.ID, "user_id", ownerID)
	return p, nil
}

func (ps *projectService) ListProjects(dbc dbctx.Context, ownerID uuid.UUID) ([]*types.Project, error) {
	if ownerID == uuid.Nil {
		return nil, apierr.Unauthorized()
	}
	projects, err := ps.projectRepo.ListByOwner(dbc, ownerID)
	if err != nil {
		return nil, apierr.Internal("list_projects_failed", fmt.Errorf("list projects: %w", err))
	}
	if projects == nil {
		projects = []*types.Project{}
	}
	return projects, nil
}

// GetProject returns the project when userID owns it.
func (ps *projectService) GetProject(dbc dbctx.Context, userID, projectID uuid.UUID) (*types.Project, error) {
	if userID == uuid.Nil {
		return nil, apierr.Unauthorized()
	}
	p, err := ps.projectRepo.GetByID(dbc, projectID)
	if err != nil {
		return nil, apierr.Internal("load_project_failed", fmt.Errorf("load project: %w", err))
	}
	if p == nil {
		return nil, apierr.NotFound("project_not_found", errors.New("project not found"))
	}
	if p.OwnerUserID != userID {
		return nil, apierr.Forbidden("forbidden", errors.New("project belongs to another user"))
	}
	return p, nil
}
