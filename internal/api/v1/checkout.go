package v1

import (
	"net/http"

	"github.com/alumnity/alumnity/internal/api/dto"
	ierr "github.com/alumnity/alumnity/internal/errors"
	"github.com/alumnity/alumnity/internal/interfaces"
	"github.com/alumnity/alumnity/internal/logger"
	"github.com/gin-gonic/gin"
)

// CheckoutHandler handles checkout initiation
type CheckoutHandler struct {
	checkoutService interfaces.CheckoutService
	logger          *logger.Logger
}

func NewCheckoutHandler(checkoutService interfaces.CheckoutService, logger *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// CreateCheckout handles POST /checkout
func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	var req dto.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request payload").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.checkoutService.InitiateCheckout(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}
