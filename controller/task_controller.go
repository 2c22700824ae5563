package controller

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildgrid/sitewise/middleware"
	"github.com/buildgrid/sitewise/models"
	service "github.com/buildgrid/sitewise/service"
)

// TaskController manages HTTP requests for tasks and change proposals.
type TaskController struct {
	tasks *service.TaskService
	team  *service.TeamService
}

func NewTaskController(tasks *service.TaskService, team *service.TeamService) *TaskController {
	return &TaskController{tasks: tasks, team: team}
}

// taskEditors are the roles allowed to create and edit tasks directly.
// Subcontractors go through proposals instead.
var taskEditors = []string{models.RoleOwner, models.RoleManager, models.RoleForeman}

func (c *TaskController) CreateTask(ctx *gin.Context) {
	projectID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireRole(projectID, userID, taskEditors...); err != nil {
		respondError(ctx, err)
		return
	}

	var task models.Task
	if err := ctx.ShouldBindJSON(&task); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	task.ProjectID = projectID
	if err := c.tasks.CreateTask(&task, userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, task)
}

func (c *TaskController) ListTasks(ctx *gin.Context) {
	projectID := ctx.Param("id")
	if _, err := c.team.RequireMember(projectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}

	from, err := parseDate(ctx.Query("from"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
		return
	}
	to, err := parseDate(ctx.Query("to"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date"})
		return
	}

	tasks, err := c.tasks.ListTasks(projectID, service.TaskFilter{
		Stage:      ctx.Query("stage"),
		AssigneeID: ctx.Query("assignee"),
		From:       from,
		To:         to,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": len(tasks)})
}

func (c *TaskController) GetTask(ctx *gin.Context) {
	task, err := c.tasks.GetTask(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireMember(task.ProjectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, task)
}

func (c *TaskController) UpdateTask(ctx *gin.Context) {
	taskID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)

	task, err := c.tasks.GetTask(taskID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireRole(task.ProjectID, userID, taskEditors...); err != nil {
		respondError(ctx, err)
		return
	}

	var updates map[string]interface{}
	if err := ctx.ShouldBindJSON(&updates); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated, err := c.tasks.UpdateTask(taskID, updates, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, updated)
}

func (c *TaskController) DeleteTask(ctx *gin.Context) {
	taskID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)

	task, err := c.tasks.GetTask(taskID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireRole(task.ProjectID, userID, models.RoleOwner, models.RoleManager); err != nil {
		respondError(ctx, err)
		return
	}
	if err := c.tasks.DeleteTask(taskID, userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// ChangeStage moves a task through its lifecycle.
func (c *TaskController) ChangeStage(ctx *gin.Context) {
	taskID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)

	var req struct {
		Stage string `json:"stage" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := c.tasks.GetTask(taskID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireRole(task.ProjectID, userID, taskEditors...); err != nil {
		respondError(ctx, err)
		return
	}

	updated, err := c.tasks.ChangeStage(taskID, req.Stage, userID)
	if err != nil {
		log.Printf("[ChangeStage] Error moving task %s: %v", taskID, err)
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, updated)
}

// CreateProposal lets any member suggest a task change.
func (c *TaskController) CreateProposal(ctx *gin.Context) {
	taskID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)

	task, err := c.tasks.GetTask(taskID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireMember(task.ProjectID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	var req struct {
		Reason  string                 `json:"reason"`
		Changes map[string]interface{} `json:"changes" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	proposal, err := c.tasks.CreateProposal(taskID, userID, req.Reason, req.Changes)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, proposal)
}

func (c *TaskController) ListProposals(ctx *gin.Context) {
	projectID := ctx.Param("id")
	if _, err := c.team.RequireMember(projectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	proposals, err := c.tasks.ListProposals(projectID, ctx.Query("status"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"proposals": proposals, "total": len(proposals)})
}

// ApproveProposal applies a pending proposal to its task.
func (c *TaskController) ApproveProposal(ctx *gin.Context) {
	c.decideProposal(ctx, true)
}

// RejectProposal closes a pending proposal without changes.
func (c *TaskController) RejectProposal(ctx *gin.Context) {
	c.decideProposal(ctx, false)
}

func (c *TaskController) decideProposal(ctx *gin.Context, approve bool) {
	proposalID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)

	proposal, err := c.tasks.GetProposal(proposalID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireRole(proposal.ProjectID, userID, models.RoleOwner, models.RoleManager); err != nil {
		respondError(ctx, err)
		return
	}

	var req struct {
		Note string `json:"note"`
	}
	// Note is optional; an empty body is fine.
	_ = ctx.ShouldBindJSON(&req)

	if approve {
		proposal, err = c.tasks.ApproveProposal(proposalID, userID, req.Note)
	} else {
		proposal, err = c.tasks.RejectProposal(proposalID, userID, req.Note)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, proposal)
}
