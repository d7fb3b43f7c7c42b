package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/repository"
	"github.com/basepark/smartpark/pkg/logger"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// SettingsService manages the system kill-switch flags
type SettingsService interface {
	// Get retrieves the current settings
	Get(ctx context.Context) (*dto.SettingsResponse, error)

	// Update applies the given toggle changes and records an audit entry
	// per changed flag
	Update(ctx context.Context, req *dto.UpdateSettingsRequest, admin string) (*dto.SettingsResponse, error)
}

// settingsService implements SettingsService
type settingsService struct {
	settingsRepo repository.SettingsRepository
	log          *logger.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo repository.SettingsRepository) SettingsService {
	return &settingsService{
		settingsRepo: settingsRepo,
		log:          logger.Get(),
	}
}

// Get retrieves the current settings
func (s *settingsService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.settings.get")
	defer span.End()

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return dto.SettingsFromDomain(settings), nil
}

// Update applies the given toggle changes
func (s *settingsService) Update(ctx context.Context, req *dto.UpdateSettingsRequest, admin string) (*dto.SettingsResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.settings.update")
	defer span.End()

	span.SetAttributes(attribute.String("admin", admin))

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var changes []string
	if req.SystemEnabled != nil && *req.SystemEnabled != settings.SystemEnabled {
		settings.SystemEnabled = *req.SystemEnabled
		changes = append(changes, toggleAction("system", *req.SystemEnabled))
	}
	if req.ANPREnabled != nil && *req.ANPREnabled != settings.ANPREnabled {
		settings.ANPREnabled = *req.ANPREnabled
		changes = append(changes, toggleAction("anpr", *req.ANPREnabled))
	}
	if req.ReservationsEnabled != nil && *req.ReservationsEnabled != settings.ReservationsEnabled {
		settings.ReservationsEnabled = *req.ReservationsEnabled
		changes = append(changes, toggleAction("reservations", *req.ReservationsEnabled))
	}

	if len(changes) == 0 {
		span.SetStatus(codes.Ok, "no changes")
		return dto.SettingsFromDomain(settings), nil
	}

	settings.Reason = req.Reason
	settings.UpdatedBy = admin
	settings.UpdatedAt = time.Now()

	if err := s.settingsRepo.Update(ctx, settings); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	for _, change := range changes {
		err := s.settingsRepo.RecordAction(ctx, &domain.SystemAction{
			Action:    change,
			Reason:    req.Reason,
			Admin:     admin,
			Timestamp: settings.UpdatedAt,
		})
		if err != nil {
			s.log.WarnContext(ctx, "failed to record settings action",
				zap.String("action", change), zap.Error(err))
		}
	}

	span.SetAttributes(attribute.Int("changes", len(changes)))
	span.SetStatus(codes.Ok, "")
	return dto.SettingsFromDomain(settings), nil
}

func toggleAction(name string, enabled bool) string {
	if enabled {
		return fmt.Sprintf("%s_enabled", name)
	}
	return fmt.Sprintf("%s_disabled", name)
}
