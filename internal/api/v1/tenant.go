package v1

import (
	"net/http"

	"github.com/alumnity/alumnity/internal/api/dto"
	"github.com/alumnity/alumnity/internal/domain/tenant"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/alumnity/alumnity/internal/types"
	"github.com/gin-gonic/gin"
)

// TenantHandler exposes the authenticated actor's organization
type TenantHandler struct {
	tenantRepo tenant.Repository
	logger     *logger.Logger
}

func NewTenantHandler(tenantRepo tenant.Repository, logger *logger.Logger) *TenantHandler {
	return &TenantHandler{
		tenantRepo: tenantRepo,
		logger:     logger,
	}
}

// GetTenant handles GET /tenant
func (h *TenantHandler) GetTenant(c *gin.Context) {
	ctx := c.Request.Context()
	tenantID := types.GetTenantID(ctx)
	if tenantID == "" {
		c.Error(ierr.NewError("no tenant in session").
			WithHint("Organization context is missing from the session").
			Mark(ierr.ErrPermissionDenied))
		return
	}

	t, err := h.tenantRepo.GetByID(ctx, tenantID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.NewTenantResponse(t))
}
