package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/service"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// ParkingHandler handles spot and reservation HTTP requests
type ParkingHandler struct {
	parkingService service.ParkingService
}

// NewParkingHandler creates a new parking handler
func NewParkingHandler(parkingService service.ParkingService) *ParkingHandler {
	return &ParkingHandler{parkingService: parkingService}
}

// GetSpots handles GET /spots
func (h *ParkingHandler) GetSpots(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.parking.get_spots")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	result, err := h.parkingService.GetSpots(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}

// CreateReservation handles POST /reservations
func (h *ParkingHandler) CreateReservation(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.parking.create_reservation")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateReservationRequest
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

	span.SetAttributes(
		attribute.String("spot_id", req.SpotID),
		attribute.String("plate", req.PlateNumber),
		attribute.Int("duration_minutes", req.DurationMinutes),
	)

	result, err := h.parkingService.CreateReservation(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("reservation_id", result.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// CreateWalkIn handles POST /reservations/walkin
func (h *ParkingHandler) CreateWalkIn(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.parking.create_walkin")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.WalkInRequest
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

	span.SetAttributes(
		attribute.String("spot_id", req.SpotID),
		attribute.String("plate", req.PlateNumber),
	)

	result, err := h.parkingService.CreateWalkIn(ctx, &req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("reservation_id", result.ID))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusCreated, result)
}

// ListReservations handles GET /reservations
func (h *ParkingHandler) ListReservations(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.parking.list_reservations")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	status := c.Query("status")
	plate := c.Query("plate")

	limit := 100
	offset := 0
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if o := c.Query("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	span.SetAttributes(
		attribute.String("status", status),
		attribute.String("plate", plate),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	result, err := h.parkingService.ListReservations(ctx, status, plate, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, result)
}
