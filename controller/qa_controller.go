package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildgrid/sitewise/middleware"
	"github.com/buildgrid/sitewise/models"
	service "github.com/buildgrid/sitewise/service"
)

// QAController manages HTTP requests for QA alerts and ITP templates.
type QAController struct {
	qa   *service.QAService
	team *service.TeamService
}

func NewQAController(qa *service.QAService, team *service.TeamService) *QAController {
	return &QAController{qa: qa, team: team}
}

func (c *QAController) ListAlerts(ctx *gin.Context) {
	projectID := ctx.Param("id")
	if _, err := c.team.RequireMember(projectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	alerts, err := c.qa.ListAlerts(projectID, ctx.Query("status"), ctx.Query("severity"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"alerts": alerts, "total": len(alerts)})
}

func (c *QAController) AcknowledgeAlert(ctx *gin.Context) {
	c.updateAlert(ctx, func(id, userID string) (models.QAAlert, error) {
		return c.qa.AcknowledgeAlert(id, userID)
	})
}

func (c *QAController) ResolveAlert(ctx *gin.Context) {
	var req struct {
		Note string `json:"note"`
	}
	_ = ctx.ShouldBindJSON(&req)
	c.updateAlert(ctx, func(id, userID string) (models.QAAlert, error) {
		return c.qa.ResolveAlert(id, userID, req.Note)
	})
}

// updateAlert factors the role check shared by ack and resolve: the caller
// must hold a role that can work QA items on the alert's project.
func (c *QAController) updateAlert(ctx *gin.Context, apply func(id, userID string) (models.QAAlert, error)) {
	alertID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)

	existing, err := c.qa.GetAlert(alertID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireRole(existing.ProjectID, userID,
		models.RoleOwner, models.RoleManager, models.RoleForeman); err != nil {
		respondError(ctx, err)
		return
	}

	alert, err := apply(alertID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, alert)
}

func (c *QAController) ListTemplates(ctx *gin.Context) {
	templates, err := c.qa.ListTemplates()
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"templates": templates, "total": len(templates)})
}

// UpsertTemplate creates or replaces an ITP template by name.
func (c *QAController) UpsertTemplate(ctx *gin.Context) {
	var req struct {
		Name  string           `json:"name" binding:"required"`
		Trade string           `json:"trade"`
		Items []models.ItpItem `json:"items" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tpl := models.ItpTemplate{Name: req.Name, Trade: req.Trade, Source: "api"}
	if err := tpl.SetChecklist(req.Items); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.qa.UpsertTemplate(&tpl); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, tpl)
}
