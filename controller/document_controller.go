package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildgrid/sitewise/middleware"
	service "github.com/buildgrid/sitewise/service"
)

// DocumentController manages HTTP requests for document uploads and search.
type DocumentController struct {
	documents *service.DocumentService
	team      *service.TeamService
}

func NewDocumentController(documents *service.DocumentService, team *service.TeamService) *DocumentController {
	return &DocumentController{documents: documents, team: team}
}

// UploadDocument handles the multipart file upload for a project.
func (c *DocumentController) UploadDocument(ctx *gin.Context) {
	projectID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireMember(projectID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
		return
	}
	defer file.Close()

	var taskID *string
	if v := ctx.PostForm("task_id"); v != "" {
		taskID = &v
	}
	category := ctx.PostForm("category")

	doc, err := c.documents.UploadDocument(projectID, taskID, category, userID, file, header)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"message":  "Document uploaded successfully",
		"document": doc,
	})
}

func (c *DocumentController) ListDocuments(ctx *gin.Context) {
	projectID := ctx.Param("id")
	if _, err := c.team.RequireMember(projectID, middleware.CurrentUser(ctx)); err != nil {
		respondError(ctx, err)
		return
	}
	docs, err := c.documents.ListDocuments(projectID, ctx.Query("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"documents": docs, "total": len(docs)})
}

// Search runs a full-text query across documents and tasks.
func (c *DocumentController) Search(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'q' is required"})
		return
	}

	results, err := c.documents.Search(query)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"message": "Search completed successfully",
		"results": results,
	})
}
