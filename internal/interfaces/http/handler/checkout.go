package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	checkoutapp "github.com/scancheckout/backend/internal/application/checkout"
	"github.com/scancheckout/backend/internal/domain/checkout"
	"github.com/scancheckout/backend/internal/infrastructure/config"
	"github.com/scancheckout/backend/internal/infrastructure/logger"
	"github.com/scancheckout/backend/internal/interfaces/http/dto"
	"github.com/scancheckout/backend/internal/interfaces/http/middleware"
)

// CheckoutService is the part of checkoutapp.Service the handler uses.
type CheckoutService interface {
	Target(mode checkout.Mode, o checkoutapp.Overrides) (checkout.Target, error)
	Checkout(ctx context.Context, req checkout.Request, target checkout.Target) (*checkout.Result, error)
}

// CheckoutHandler serves POST /pos/checkout.
type CheckoutHandler struct {
	BaseHandler
	service    CheckoutService
	posAdapter string
}

// NewCheckoutHandler creates a CheckoutHandler. service may be nil when the
// ERP connection is not configured; checkouts then fail with 500.
func NewCheckoutHandler(service CheckoutService, posAdapter string) *CheckoutHandler {
	return &CheckoutHandler{service: service, posAdapter: posAdapter}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	pos := rg.Group("/pos")
	pos.POST("/checkout", h.Checkout)
}

// Checkout godoc
// @Summary      Record a checkout in the ERP
// @Description  mode "sale" creates and confirms a sale.order; mode "pos" submits a draft pos.order
// @Tags         pos
// @Accept       json
// @Produce      json
// @Param        request body dto.CheckoutRequest true "Checkout request"
// @Success      200 {object} dto.CheckoutResponse
// @Failure      400 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Failure      502 {object} dto.Response
// @Router       /pos/checkout [post]
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	mode, err := checkout.ParseMode(req.Mode)
	if err != nil {
		h.BadRequest(c, dto.ErrCodeUnsupportedMode, fmt.Sprintf("unsupported mode: %s", req.Mode))
		return
	}

	if h.posAdapter != config.POSAdapterOdoo {
		h.BadRequest(c, dto.ErrCodeUnsupportedAdapter, fmt.Sprintf("unsupported POS_ADAPTER: %s", h.posAdapter))
		return
	}

	if h.service == nil {
		h.ErrorWithCode(c, dto.ErrCodeNotConfigured, "ERP connection is not configured: set ODOO_URL, ODOO_DB, ODOO_USER and ODOO_PASSWORD")
		return
	}

	sessionID, partnerID := req.POSOverrides()
	target, err := h.service.Target(mode, checkoutapp.Overrides{
		POSSessionID: sessionID,
		PartnerID:    partnerID,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), req.ToDomain(), target)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewCheckoutResponse(result))
}

func (h *CheckoutHandler) handleError(c *gin.Context, err error) {
	var remote *checkout.RemoteError
	switch {
	case errors.As(err, &remote):
		h.BadGateway(c, "odoo error: "+remote.Message)
	case errors.Is(err, checkout.ErrMissingSession):
		h.BadRequest(c, dto.ErrCodeMissingSession, "pos_session_id is required when mode is pos")
	case errors.Is(err, checkout.ErrUnsupportedMode):
		h.BadRequest(c, dto.ErrCodeUnsupportedMode, err.Error())
	case errors.Is(err, checkout.ErrInvalidLine):
		h.UnprocessableEntity(c, err.Error())
	default:
		logger.L(c.Request.Context()).Error("Checkout failed", zap.Error(err))
		h.InternalError(c, err.Error())
	}
}
