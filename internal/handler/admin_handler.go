package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/service"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// AdminHandler handles admin HTTP requests: settings, overrides, sweeps,
// and resets. All routes are guarded by the auth middleware.
type AdminHandler struct {
	parkingService  service.ParkingService
	settingsService service.SettingsService
	sweeperService  service.SweeperService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	parkingService service.ParkingService,
	settingsService service.SettingsService,
	sweeperService service.SweeperService,
) *AdminHandler {
	return &AdminHandler{
		parkingService:  parkingService,
		settingsService: settingsService,
		sweeperService:  sweeperService,
	}
}

// GetSettings handles GET /admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.get_settings")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.settingsService.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// UpdateSettings handles PUT /admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.update_settings")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	admin := c.GetString("username")
	span.SetAttributes(attribute.String("admin", admin))

	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	result, err := h.settingsService.Update(ctx, &req, admin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// Sweep handles POST /admin/sweep, running one sweep pass on demand
func (h *AdminHandler) Sweep(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.sweep")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.sweeperService.Sweep(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(
		attribute.Int("expired", result.Expired),
		attribute.Int("cancelled", result.Cancelled),
		attribute.Int("notified", result.Notified),
	)
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SweepResponse{
		Expired:   result.Expired,
		Cancelled: result.Cancelled,
		Notified:  result.Notified,
	})
}

// OverrideSpot handles PUT /admin/spots/:id
func (h *AdminHandler) OverrideSpot(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.override_spot")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	spotID := c.Param("id")
	if spotID == "" {
		span.SetStatus(codes.Error, "spot id required")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error: "spot id required",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	admin := c.GetString("username")
	span.SetAttributes(
		attribute.String("spot_id", spotID),
		attribute.String("admin", admin),
	)

	var req dto.OverrideSpotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid request",
			Code:    "INVALID_REQUEST",
			Message: err.Error(),
		})
		return
	}

	result, err := h.parkingService.OverrideSpot(ctx, spotID, &req, admin)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// ResetSpots handles POST /admin/spots/reset
func (h *AdminHandler) ResetSpots(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.reset_spots")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	admin := c.GetString("username")
	span.SetAttributes(attribute.String("admin", admin))

	if err := h.parkingService.ResetSpots(ctx, admin); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}

// FactoryReset handles POST /admin/factory-reset
func (h *AdminHandler) FactoryReset(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.admin.factory_reset")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	admin := c.GetString("username")
	span.SetAttributes(attribute.String("admin", admin))

	if err := h.parkingService.FactoryReset(ctx, admin); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SuccessResponse{Success: true})
}
