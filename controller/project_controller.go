package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildgrid/sitewise/middleware"
	"github.com/buildgrid/sitewise/models"
	service "github.com/buildgrid/sitewise/service"
)

// ProjectController manages HTTP requests for projects and their dashboards.
type ProjectController struct {
	projects  *service.ProjectService
	dashboard *service.DashboardService
	team      *service.TeamService
}

func NewProjectController(projects *service.ProjectService, dashboard *service.DashboardService, team *service.TeamService) *ProjectController {
	return &ProjectController{projects: projects, dashboard: dashboard, team: team}
}

func (c *ProjectController) CreateProject(ctx *gin.Context) {
	var project models.Project
	if err := ctx.ShouldBindJSON(&project); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.projects.CreateProject(&project, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, project)
}

// ListProjects returns the projects the caller belongs to.
func (c *ProjectController) ListProjects(ctx *gin.Context) {
	projects, err := c.projects.ListProjectsForUser(middleware.CurrentUser(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": projects, "total": len(projects)})
}

func (c *ProjectController) GetProject(ctx *gin.Context) {
	projectID := ctx.Param("id")
	if _, err := c.team.RequireMember(projectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	project, err := c.projects.GetProject(projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, project)
}

func (c *ProjectController) UpdateProject(ctx *gin.Context) {
	projectID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireRole(projectID, userID, models.RoleOwner, models.RoleManager); err != nil {
		respondError(ctx, err)
		return
	}

	var updates map[string]interface{}
	if err := ctx.ShouldBindJSON(&updates); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, err := c.projects.UpdateProject(projectID, updates, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, project)
}

// GetDashboard returns the aggregated per-project statistics.
func (c *ProjectController) GetDashboard(ctx *gin.Context) {
	projectID := ctx.Param("id")
	if _, err := c.team.RequireMember(projectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	stats, err := c.dashboard.GetProjectDashboard(ctx.Request.Context(), projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
