package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	scanapp "github.com/scancheckout/backend/internal/application/scan"
	"github.com/scancheckout/backend/internal/domain/scan"
	"github.com/scancheckout/backend/internal/infrastructure/logger"
	"github.com/scancheckout/backend/internal/interfaces/http/dto"
	"github.com/scancheckout/backend/internal/interfaces/http/middleware"
)

// ScanService is the part of scanapp.Service the handler uses.
type ScanService interface {
	Create(ctx context.Context, in scanapp.CreateInput) (*scan.Record, error)
	Get(ctx context.Context, id string) (*scan.Record, error)
	Infer(ctx context.Context, id string, topK int) (*scan.Record, error)
}

// ScanHandler serves the /scans endpoints.
type ScanHandler struct {
	BaseHandler
	service ScanService
}

// NewScanHandler creates a ScanHandler
func NewScanHandler(service ScanService) *ScanHandler {
	return &ScanHandler{service: service}
}

// RegisterRoutes implements router.RouteRegistrar
func (h *ScanHandler) RegisterRoutes(rg *gin.RouterGroup) {
	scans := rg.Group("/scans")
	scans.POST("", h.Create)
	scans.GET("/:id", h.Get)
	scans.POST("/:id/infer", h.Infer)
}

// Create godoc
// @Summary      Upload a scan image
// @Tags         scans
// @Accept       multipart/form-data
// @Produce      json
// @Param        image     formData file   true  "Image file"
// @Param        store_id  formData string true  "Store identifier"
// @Param        device_id formData string false "Device identifier"
// @Success      200 {object} dto.ScanResponse
// @Failure      400 {object} dto.Response
// @Failure      413 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /scans [post]
func (h *ScanHandler) Create(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, fmt.Sprintf("file exceeds the upload limit (max=%d bytes)", scan.MaxImageBytes))
			return
		}
		h.UnprocessableEntity(c, "image file is required")
		return
	}

	storeID := c.PostForm("store_id")
	if storeID == "" {
		h.UnprocessableEntity(c, "store_id is required")
		return
	}

	if file.Size > scan.MaxImageBytes {
		h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, fmt.Sprintf("file exceeds the upload limit (max=%d bytes)", scan.MaxImageBytes))
		return
	}

	f, err := file.Open()
	if err != nil {
		h.InternalError(c, "failed to read upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, scan.MaxImageBytes+1))
	if err != nil {
		h.InternalError(c, "failed to read upload")
		return
	}

	record, err := h.service.Create(c.Request.Context(), scanapp.CreateInput{
		StoreID:     storeID,
		DeviceID:    c.PostForm("device_id"),
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewScanResponse(record))
}

// Get godoc
// @Summary      Get a scan
// @Tags         scans
// @Produce      json
// @Param        id path string true "Scan ID"
// @Success      200 {object} dto.ScanResponse
// @Failure      404 {object} dto.Response
// @Router       /scans/{id} [get]
func (h *ScanHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewScanResponse(record))
}

// Infer godoc
// @Summary      Rank candidate SKUs for a scan
// @Tags         scans
// @Accept       json
// @Produce      json
// @Param        id      path string           true  "Scan ID"
// @Param        request body dto.InferRequest false "top_k between 1 and 5, default 3"
// @Success      200 {object} dto.InferResponse
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Router       /scans/{id}/infer [post]
func (h *ScanHandler) Infer(c *gin.Context) {
	var req dto.InferRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	record, err := h.service.Infer(c.Request.Context(), c.Param("id"), req.TopKOrDefault())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewInferResponse(record))
}

func (h *ScanHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scan.ErrScanNotFound):
		h.NotFound(c, fmt.Sprintf("scan not found: %s", c.Param("id")))
	case errors.Is(err, scan.ErrImageTooLarge):
		h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, err.Error())
	case errors.Is(err, scan.ErrInvalidImage):
		h.BadRequest(c, dto.ErrCodeInvalidImage, err.Error())
	case errors.Is(err, scan.ErrInvalidTopK):
		h.UnprocessableEntity(c, err.Error())
	default:
		logger.L(c.Request.Context()).Error("Scan request failed", zap.Error(err))
		h.InternalError(c, "scan request failed")
	}
}
