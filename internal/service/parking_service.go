package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/metrics"
	"github.com/basepark/smartpark/internal/repository"
	"github.com/basepark/smartpark/pkg/logger"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// ParkingService defines the interface for spot and reservation business logic
type ParkingService interface {
	// GetSpots retrieves all spots with per-status counts
	GetSpots(ctx context.Context) (*dto.SpotListResponse, error)

	// CreateReservation creates a pending reservation that holds a spot
	// until the plate is detected
	CreateReservation(ctx context.Context, req *dto.CreateReservationRequest) (*dto.ReservationResponse, error)

	// CreateWalkIn creates an immediately active reservation for a vehicle
	// already at the gate
	CreateWalkIn(ctx context.Context, req *dto.WalkInRequest) (*dto.ReservationResponse, error)

	// ListReservations retrieves reservations, optionally filtered by
	// status and plate
	ListReservations(ctx context.Context, status, plate string, limit, offset int) (*dto.ReservationListResponse, error)

	// OverrideSpot force-sets a spot's state. Freeing a spot hands it to
	// the waiting queue when anyone is waiting.
	OverrideSpot(ctx context.Context, spotID string, req *dto.OverrideSpotRequest, admin string) (*dto.SpotResponse, error)

	// ResetSpots returns every spot to available
	ResetSpots(ctx context.Context, admin string) error

	// FactoryReset reseeds the spot grid and clears the queue and the
	// detection log
	FactoryReset(ctx context.Context, admin string) error
}

// parkingService implements ParkingService
type parkingService struct {
	spotRepo      repository.SpotRepository
	resRepo       repository.ReservationRepository
	queueRepo     repository.QueueRepository
	detectionRepo repository.DetectionRepository
	settingsRepo  repository.SettingsRepository
	notifier      Notifier
	publisher     EventPublisher
	queueSvc      QueueService
	log           *logger.Logger
}

// NewParkingService creates a new parking service
func NewParkingService(
	spotRepo repository.SpotRepository,
	resRepo repository.ReservationRepository,
	queueRepo repository.QueueRepository,
	detectionRepo repository.DetectionRepository,
	settingsRepo repository.SettingsRepository,
	notifier Notifier,
	publisher EventPublisher,
	queueSvc QueueService,
) ParkingService {
	if notifier == nil {
		notifier = NewNoOpNotifier()
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &parkingService{
		spotRepo:      spotRepo,
		resRepo:       resRepo,
		queueRepo:     queueRepo,
		detectionRepo: detectionRepo,
		settingsRepo:  settingsRepo,
		notifier:      notifier,
		publisher:     publisher,
		queueSvc:      queueSvc,
		log:           logger.Get(),
	}
}

// GetSpots retrieves all spots with per-status counts
func (s *parkingService) GetSpots(ctx context.Context) (*dto.SpotListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.get_spots")
	defer span.End()

	spots, err := s.spotRepo.GetAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(spots)))
	span.SetStatus(codes.Ok, "")
	return dto.SpotListFromDomain(spots), nil
}

// CreateReservation creates a pending reservation that holds a spot until the
// plate is detected
func (s *parkingService) CreateReservation(ctx context.Context, req *dto.CreateReservationRequest) (*dto.ReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.create_reservation")
	defer span.End()

	if err := s.reservationsAllowed(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	plate, err := validateReservationInput(req.SpotID, req.PlateNumber, req.DurationMinutes)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("spot_id", req.SpotID),
		attribute.String("plate", plate),
		attribute.Int("duration_minutes", req.DurationMinutes),
	)

	// The spot is held for the pending window; the sweeper reclaims it if
	// the vehicle never shows up.
	holdUntil := time.Now().Add(domain.PendingWindow)
	if err := s.spotRepo.Reserve(ctx, req.SpotID, plate, req.CustomerName, &holdUntil); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &domain.Reservation{
		SpotID:          req.SpotID,
		PlateNumber:     plate,
		CustomerName:    req.CustomerName,
		DurationMinutes: req.DurationMinutes,
		Status:          domain.ReservationStatusWaiting,
		CreatedAt:       time.Now(),
	}
	if err := s.resRepo.Create(ctx, res); err != nil {
		// Hand the spot back so the failed insert does not leak a hold
		if relErr := s.spotRepo.Release(ctx, req.SpotID); relErr != nil {
			s.log.ErrorContext(ctx, "failed to release spot after create error",
				zap.String("spot_id", req.SpotID), zap.Error(relErr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	_ = s.publisher.PublishReservationCreated(ctx, res)
	metrics.RecordReservationCreated(ctx, res.SpotID, false)

	span.SetAttributes(attribute.Int64("reservation_id", res.ID))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomain(res), nil
}

// CreateWalkIn creates an immediately active reservation
func (s *parkingService) CreateWalkIn(ctx context.Context, req *dto.WalkInRequest) (*dto.ReservationResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.create_walkin")
	defer span.End()

	if err := s.reservationsAllowed(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	plate, err := validateReservationInput(req.SpotID, req.PlateNumber, req.DurationMinutes)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("spot_id", req.SpotID),
		attribute.String("plate", plate),
	)

	now := time.Now()
	end := domain.ReservationEnd(now, req.DurationMinutes)

	if err := s.spotRepo.OccupyAvailable(ctx, req.SpotID, plate, req.CustomerName, &end); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res := &domain.Reservation{
		SpotID:          req.SpotID,
		PlateNumber:     plate,
		CustomerName:    req.CustomerName,
		StartTime:       &now,
		EndTime:         &end,
		DurationMinutes: req.DurationMinutes,
		Status:          domain.ReservationStatusActive,
		CreatedAt:       now,
	}
	if err := s.resRepo.Create(ctx, res); err != nil {
		if relErr := s.spotRepo.Release(ctx, req.SpotID); relErr != nil {
			s.log.ErrorContext(ctx, "failed to release spot after create error",
				zap.String("spot_id", req.SpotID), zap.Error(relErr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if req.Email != "" {
		// Confirmation is best-effort
		if err := s.notifier.NotifyReservationConfirmed(ctx, res, req.Email); err != nil {
			s.log.WarnContext(ctx, "walk-in confirmation failed",
				zap.String("contact", req.Email), zap.Error(err))
		}
	}

	_ = s.publisher.PublishReservationCreated(ctx, res)
	metrics.RecordReservationCreated(ctx, res.SpotID, true)

	span.SetAttributes(attribute.Int64("reservation_id", res.ID))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomain(res), nil
}

// ListReservations retrieves reservations, optionally filtered by status
// and plate
func (s *parkingService) ListReservations(ctx context.Context, status, plate string, limit, offset int) (*dto.ReservationListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.list_reservations")
	defer span.End()

	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var statuses []domain.ReservationStatus
	if status != "" {
		statuses = append(statuses, domain.ReservationStatus(status))
	}

	reservations, err := s.resRepo.List(ctx, statuses, limit, offset)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if plate = domain.NormalizePlate(plate); plate != "" {
		filtered := reservations[:0]
		for _, res := range reservations {
			if res.MatchesPlate(plate) {
				filtered = append(filtered, res)
			}
		}
		reservations = filtered
	}

	span.SetAttributes(attribute.Int("count", len(reservations)))
	span.SetStatus(codes.Ok, "")
	return dto.FromDomainList(reservations), nil
}

// OverrideSpot force-sets a spot's state
func (s *parkingService) OverrideSpot(ctx context.Context, spotID string, req *dto.OverrideSpotRequest, admin string) (*dto.SpotResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.override_spot")
	defer span.End()

	span.SetAttributes(
		attribute.String("spot_id", spotID),
		attribute.String("status", req.Status),
		attribute.String("admin", admin),
	)

	newStatus := domain.SpotStatus(req.Status)
	if !newStatus.IsValid() {
		span.SetStatus(codes.Error, "invalid status")
		return nil, domain.ErrInvalidSpotStatus
	}

	spot, err := s.spotRepo.GetByID(ctx, spotID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	freed := newStatus == domain.SpotStatusAvailable && spot.Status != domain.SpotStatusAvailable

	spot.Status = newStatus
	if newStatus == domain.SpotStatusAvailable || newStatus == domain.SpotStatusMaintenance {
		spot.OccupantPlate = ""
		spot.OccupantName = ""
		spot.ReservedUntil = nil
	} else {
		spot.OccupantPlate = domain.NormalizePlate(req.OccupantPlate)
		spot.OccupantName = req.OccupantName
	}

	if err := s.spotRepo.Override(ctx, spot, spot.Version); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// A manually freed spot goes to the waiting queue first
	if freed && s.queueSvc != nil {
		if _, err := s.queueSvc.HandOffSpot(ctx, spotID); err != nil {
			s.log.WarnContext(ctx, "queue hand-off failed after override",
				zap.String("spot_id", spotID), zap.Error(err))
		}
	}

	updated, err := s.spotRepo.GetByID(ctx, spotID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.SpotFromDomain(updated), nil
}

// ResetSpots returns every spot to available
func (s *parkingService) ResetSpots(ctx context.Context, admin string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.reset_spots")
	defer span.End()

	span.SetAttributes(attribute.String("admin", admin))

	if err := s.spotRepo.ResetAll(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.recordAction(ctx, "spots_reset", "", admin)
	span.SetStatus(codes.Ok, "")
	return nil
}

// FactoryReset reseeds the spot grid and clears reservations, the queue and
// the detection log
func (s *parkingService) FactoryReset(ctx context.Context, admin string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.factory_reset")
	defer span.End()

	span.SetAttributes(attribute.String("admin", admin))

	// Reservations go first: a surviving row would point the next sweep
	// at a freshly reseeded spot.
	if err := s.resRepo.Clear(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.spotRepo.ReplaceAll(ctx, domain.DefaultSpots(time.Now())); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.queueRepo.Clear(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if err := s.detectionRepo.Clear(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	s.recordAction(ctx, "factory_reset", "", admin)
	span.SetStatus(codes.Ok, "")
	return nil
}

// reservationsAllowed reads one settings snapshot and maps disabled flags to
// their errors
func (s *parkingService) reservationsAllowed(ctx context.Context) error {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return err
	}
	if !settings.SystemEnabled {
		return domain.ErrSystemDisabled
	}
	if !settings.ReservationsEnabled {
		return domain.ErrReservationsDisabled
	}
	return nil
}

func (s *parkingService) recordAction(ctx context.Context, action, reason, admin string) {
	err := s.settingsRepo.RecordAction(ctx, &domain.SystemAction{
		Action:    action,
		Reason:    reason,
		Admin:     admin,
		Timestamp: time.Now(),
	})
	if err != nil {
		s.log.WarnContext(ctx, "failed to record admin action",
			zap.String("action", action), zap.Error(err))
	}
}

func validateReservationInput(spotID, plateNumber string, durationMinutes int) (string, error) {
	if spotID == "" {
		return "", domain.ErrInvalidSpotID
	}
	plate := domain.NormalizePlate(plateNumber)
	if plate == "" {
		return "", domain.ErrInvalidPlate
	}
	if !domain.ValidDuration(durationMinutes) {
		return "", domain.ErrInvalidDuration
	}
	return plate, nil
}
