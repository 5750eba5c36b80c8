package v1

import (
	"net/http"

	"github.com/alumnity/alumnity/internal/api/dto"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/gin-gonic/gin"
)

// BillingHandler handles self-serve billing endpoints
type BillingHandler struct {
	quantityService interfaces.QuantityService
	logger          *logger.Logger
}

func NewBillingHandler(quantityService interfaces.QuantityService, logger *logger.Logger) *BillingHandler {
	return &BillingHandler{
		quantityService: quantityService,
		logger:          logger,
	}
}

// AdjustQuantity handles POST /billing/quantity
func (h *BillingHandler) AdjustQuantity(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := types.GetTenantID(ctx)
	if tenantID == "" {
		c.Error(ierr.NewError("no tenant in session").
			WithHint("Organization context is missing from the session").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	var req dto.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.quantityService.Adjust(ctx, tenantID, &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetPlanSummary handles GET /billing/summary
func (h *BillingHandler) GetPlanSummary(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := types.GetTenantID(ctx)
	if tenantID == "" {
		c.Error(ierr.NewError("no tenant in session").
			WithHint("Organization context is missing from the session").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	kind := types.UnitKind(c.DefaultQuery("unit_kind", types.UnitKindSeat.String()))

	resp, err := h.quantityService.PlanSummary(ctx, tenantID, kind)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
