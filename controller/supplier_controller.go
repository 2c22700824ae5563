package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/buildgrid/sitewise/middleware"
	"github.com/buildgrid/sitewise/models"
	service "github.com/buildgrid/sitewise/service"
)

// SupplierController manages HTTP requests for the vendor book and deliveries.
// Suppliers are shared across projects; deliveries are project-scoped.
type SupplierController struct {
	suppliers *service.SupplierService
	team      *service.TeamService
}

func NewSupplierController(suppliers *service.SupplierService, team *service.TeamService) *SupplierController {
	return &SupplierController{suppliers: suppliers, team: team}
}

func (c *SupplierController) CreateSupplier(ctx *gin.Context) {
	var supplier models.Supplier
	if err := ctx.ShouldBindJSON(&supplier); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := c.suppliers.CreateSupplier(&supplier); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, supplier)
}

func (c *SupplierController) ListSuppliers(ctx *gin.Context) {
	activeOnly := ctx.Query("active") == "true"
	suppliers, err := c.suppliers.ListSuppliers(activeOnly)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"suppliers": suppliers, "total": len(suppliers)})
}

func (c *SupplierController) GetSupplier(ctx *gin.Context) {
	supplier, err := c.suppliers.GetSupplier(ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, supplier)
}

func (c *SupplierController) UpdateSupplier(ctx *gin.Context) {
	var updates map[string]interface{}
	if err := ctx.ShouldBindJSON(&updates); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	supplier, err := c.suppliers.UpdateSupplier(ctx.Param("id"), updates)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, supplier)
}

func (c *SupplierController) CreateDelivery(ctx *gin.Context) {
	projectID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)
	if _, err := c.team.RequireRole(projectID, userID, taskEditors...); err != nil {
		respondError(ctx, err)
		return
	}

	var delivery models.Delivery
	if err := ctx.ShouldBindJSON(&delivery); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	delivery.ProjectID = projectID
	if err := c.suppliers.CreateDelivery(&delivery, userID); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, delivery)
}

func (c *SupplierController) ListDeliveries(ctx *gin.Context) {
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

	deliveries, err := c.suppliers.ListDeliveries(projectID, service.DeliveryFilter{
		Status: ctx.Query("status"),
		From:   from,
		To:     to,
	})
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"deliveries": deliveries, "total": len(deliveries)})
}

// UpdateDeliveryStatus advances a delivery through its lifecycle.
func (c *SupplierController) UpdateDeliveryStatus(ctx *gin.Context) {
	deliveryID := ctx.Param("id")
	userID := middleware.CurrentUser(ctx)

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, err := c.suppliers.GetDelivery(deliveryID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if _, err := c.team.RequireRole(existing.ProjectID, userID, taskEditors...); err != nil {
		respondError(ctx, err)
		return
	}

	delivery, err := c.suppliers.UpdateDeliveryStatus(deliveryID, req.Status, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, delivery)
}
