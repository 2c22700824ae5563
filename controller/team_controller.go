package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildgrid/sitewise/middleware"
	"github.com/buildgrid/sitewise/models"
	service "github.com/buildgrid/sitewise/service"
)

// TeamController manages HTTP requests for project membership.
type TeamController struct {
	team *service.TeamService
}

func NewTeamController(team *service.TeamService) *TeamController {
	return &TeamController{team: team}
}

// GetMe returns the caller's profile.
func (c *TeamController) GetMe(ctx *gin.Context) {
	user, err := c.team.GetProfile(middleware.CurrentUser(ctx))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

// UpdateMe upserts the caller's profile. The SPA calls this once after
// sign-in so invite-by-email can find the account.
func (c *TeamController) UpdateMe(ctx *gin.Context) {
	var updates map[string]interface{}
	if err := ctx.ShouldBindJSON(&updates); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := c.team.UpdateProfile(middleware.CurrentUser(ctx), updates)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, user)
}

func (c *TeamController) ListMembers(ctx *gin.Context) {
	projectID := ctx.Param("id")
	if _, err := c.team.RequireMember(projectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	members, err := c.team.ListMembers(projectID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"members": members, "total": len(members)})
}

// InviteMember adds an existing user to the project by email.
func (c *TeamController) InviteMember(ctx *gin.Context) {
	projectID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireRole(projectID, userID, models.RoleOwner, models.RoleManager); err != nil {
		respondError(ctx, err)
		return
	}

	var req struct {
		Email string `json:"email" binding:"required,email"`
		Role  string `json:"role" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invite payload", "details": err.Error()})
		return
	}

	member, err := c.team.InviteMember(projectID, req.Email, req.Role, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, member)
}

func (c *TeamController) UpdateMemberRole(ctx *gin.Context) {
	projectID := ctx.Param("id")
	actorID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireRole(projectID, actorID, models.RoleOwner, models.RoleManager); err != nil {
		respondError(ctx, err)
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := c.team.UpdateMemberRole(projectID, ctx.Param("userID"), req.Role, actorID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Member role updated"})
}

func (c *TeamController) RemoveMember(ctx *gin.Context) {
	projectID := ctx.Param("id")
	actorID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireRole(projectID, actorID, models.RoleOwner, models.RoleManager); err != nil {
		respondError(ctx, err)
		return
	}

	if err := c.team.RemoveMember(projectID, ctx.Param("userID"), actorID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
