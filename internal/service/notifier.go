package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/pkg/logger"
	"github.com/basepark/smartpark/pkg/retry"
)

// Notifier delivers messages to waiting or booking customers. Delivery is
// best-effort; callers must not fail their own operation on a notifier error.
type Notifier interface {
	// NotifySpotAvailable tells a waiting party that a spot has freed up
	NotifySpotAvailable(ctx context.Context, entry *domain.QueueEntry, spotID string) error

	// NotifyQueueJoined confirms a queue join with the assigned position
	NotifyQueueJoined(ctx context.Context, entry *domain.QueueEntry, position int) error

	// NotifyReservationConfirmed confirms a reservation to the given
	// contact address
	NotifyReservationConfirmed(ctx context.Context, res *domain.Reservation, contact string) error
}

// WebhookNotifier posts notifications to an external delivery gateway that
// handles the actual email or SMS fan-out.
type WebhookNotifier struct {
	client  *resty.Client
	retrier *retry.Retrier
}

// WebhookNotifierConfig contains configuration for the webhook notifier
type WebhookNotifierConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *WebhookNotifierConfig) (*WebhookNotifier, error) {
	if cfg == nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("notifier base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}

	retryCfg := retry.DefaultConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxRetries = cfg.MaxRetries
	}

	return &WebhookNotifier{
		client:  client,
		retrier: retry.New(retryCfg),
	}, nil
}

type notificationPayload struct {
	Kind        string `json:"kind"`
	Contact     string `json:"contact"`
	ContactKind string `json:"contact_kind"`
	Name        string `json:"name"`
	PlateNumber string `json:"plate_number"`
	SpotID      string `json:"spot_id,omitempty"`
	Position    int    `json:"position,omitempty"`
	Message     string `json:"message"`
}

// NotifySpotAvailable tells a waiting party that a spot has freed up
func (n *WebhookNotifier) NotifySpotAvailable(ctx context.Context, entry *domain.QueueEntry, spotID string) error {
	return n.post(ctx, &notificationPayload{
		Kind:        "spot_available",
		Contact:     entry.Contact,
		ContactKind: domain.ContactKind(entry.Contact),
		Name:        entry.Name,
		PlateNumber: entry.PlateNumber,
		SpotID:      spotID,
		Message:     fmt.Sprintf("Spot %s is ready for you. It is held for the next 60 minutes.", spotID),
	})
}

// NotifyQueueJoined confirms a queue join with the assigned position
func (n *WebhookNotifier) NotifyQueueJoined(ctx context.Context, entry *domain.QueueEntry, position int) error {
	return n.post(ctx, &notificationPayload{
		Kind:        "queue_joined",
		Contact:     entry.Contact,
		ContactKind: domain.ContactKind(entry.Contact),
		Name:        entry.Name,
		PlateNumber: entry.PlateNumber,
		Position:    position,
		Message:     fmt.Sprintf("You are number %d in the waiting queue.", position),
	})
}

// NotifyReservationConfirmed confirms a reservation to the given contact
func (n *WebhookNotifier) NotifyReservationConfirmed(ctx context.Context, res *domain.Reservation, contact string) error {
	return n.post(ctx, &notificationPayload{
		Kind:        "reservation_confirmed",
		Contact:     contact,
		ContactKind: domain.ContactKind(contact),
		Name:        res.CustomerName,
		PlateNumber: res.PlateNumber,
		SpotID:      res.SpotID,
		Message:     fmt.Sprintf("Your parking at spot %s is confirmed.", res.SpotID),
	})
}

func (n *WebhookNotifier) post(ctx context.Context, payload *notificationPayload) error {
	result := n.retrier.Do(ctx, func(ctx context.Context) error {
		resp, err := n.client.R().
			SetContext(ctx).
			SetBody(payload).
			Post("/notifications")
		if err != nil {
			return retry.Retryable(err)
		}
		if resp.StatusCode() >= 500 {
			return retry.Retryable(fmt.Errorf("gateway returned %d", resp.StatusCode()))
		}
		if resp.IsError() {
			return retry.Permanent(fmt.Errorf("gateway rejected notification: %d", resp.StatusCode()))
		}
		return nil
	})
	if result.Err != nil {
		return fmt.Errorf("failed to deliver %s notification: %w", payload.Kind, result.Err)
	}
	return nil
}

// LogNotifier writes notifications to the application log. Used when no
// delivery gateway is configured.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a new log notifier
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Get()
	}
	return &LogNotifier{log: log}
}

// NotifySpotAvailable logs the notification
func (n *LogNotifier) NotifySpotAvailable(ctx context.Context, entry *domain.QueueEntry, spotID string) error {
	n.log.InfoContext(ctx, "spot available notification",
		zap.String("contact", entry.Contact),
		zap.String("plate", entry.PlateNumber),
		zap.String("spot_id", spotID),
	)
	return nil
}

// NotifyQueueJoined logs the notification
func (n *LogNotifier) NotifyQueueJoined(ctx context.Context, entry *domain.QueueEntry, position int) error {
	n.log.InfoContext(ctx, "queue joined notification",
		zap.String("contact", entry.Contact),
		zap.String("plate", entry.PlateNumber),
		zap.Int("position", position),
	)
	return nil
}

// NotifyReservationConfirmed logs the notification
func (n *LogNotifier) NotifyReservationConfirmed(ctx context.Context, res *domain.Reservation, contact string) error {
	n.log.InfoContext(ctx, "reservation confirmed notification",
		zap.String("contact", contact),
		zap.String("plate", res.PlateNumber),
		zap.String("spot_id", res.SpotID),
	)
	return nil
}

// NoOpNotifier discards every notification. Used in tests and wherever a
// Notifier is required but delivery is unwanted.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new no-op notifier
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) NotifySpotAvailable(ctx context.Context, entry *domain.QueueEntry, spotID string) error {
	return nil
}

func (n *NoOpNotifier) NotifyQueueJoined(ctx context.Context, entry *domain.QueueEntry, position int) error {
	return nil
}

func (n *NoOpNotifier) NotifyReservationConfirmed(ctx context.Context, res *domain.Reservation, contact string) error {
	return nil
}

// Ensure implementations satisfy Notifier
var (
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*NoOpNotifier)(nil)
)
