package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/service"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// DetectionIntake accepts detection events for asynchronous arbitration.
// Implemented by worker.DetectionWorker.
type DetectionIntake interface {
	Submit(event *domain.DetectionEvent) bool
}

// DetectionHandler handles plate detection HTTP requests
type DetectionHandler struct {
	arbitrator service.ArbitratorService
	intake     DetectionIntake
}

// NewDetectionHandler creates a new detection handler. intake may be nil,
// in which case the stream endpoint reports unavailable.
func NewDetectionHandler(arbitrator service.ArbitratorService, intake DetectionIntake) *DetectionHandler {
	return &DetectionHandler{arbitrator: arbitrator, intake: intake}
}

// ProcessDetection handles POST /detections. The camera gets the arbitration
// outcome back so the gate can act on it.
func (h *DetectionHandler) ProcessDetection(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.detection.process")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.DetectionRequest
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
		attribute.String("plate", req.PlateNumber),
		attribute.Bool("is_emergency", req.IsEmergency),
		attribute.String("camera", req.Camera),
	)

	result, err := h.arbitrator.ProcessDetection(ctx, &domain.DetectionEvent{
		PlateNumber: req.PlateNumber,
		Confidence:  req.Confidence,
		IsEmergency: req.IsEmergency,
		Camera:      req.Camera,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.String("action", string(result.Action)))
	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.DetectionFromDomain(result))
}

// StreamDetection handles POST /detections/stream. Camera streams post here
// at frame rate; events are queued for the arbitration worker and the camera
// does not wait for the outcome.
func (h *DetectionHandler) StreamDetection(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.detection.stream")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.DetectionRequest
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

	if h.intake == nil {
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "detection intake unavailable",
			Code:    "INTAKE_UNAVAILABLE",
			Message: "the detection worker is not running",
		})
		return
	}

	span.SetAttributes(
		attribute.String("plate", req.PlateNumber),
		attribute.Bool("is_emergency", req.IsEmergency),
	)

	accepted := h.intake.Submit(&domain.DetectionEvent{
		PlateNumber: req.PlateNumber,
		Confidence:  req.Confidence,
		IsEmergency: req.IsEmergency,
		Camera:      req.Camera,
	})
	if !accepted {
		// Cooldown suppression or backpressure. Either way the camera
		// should not retry.
		span.SetStatus(codes.Ok, "")
		c.JSON(http.StatusOK, dto.SuccessResponse{Success: false})
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusAccepted, dto.SuccessResponse{Success: true})
}

// RecentDetections handles GET /detections/recent
func (h *DetectionHandler) RecentDetections(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.detection.recent")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	limit := 50
	if l := c.Query("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	span.SetAttributes(attribute.Int("limit", limit))

	records, err := h.arbitrator.RecentDetections(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		handleError(c, err)
		return
	}

	span.SetStatus(codes.Ok, "")
	c.JSON(http.StatusOK, dto.SuccessResponse{
		Success: true,
		Data:    records,
	})
}
