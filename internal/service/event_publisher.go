package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/pkg/kafka"
)

// EventPublisher defines the interface for publishing parking events
type EventPublisher interface {
	// PublishReservationCreated publishes a reservation created event
	PublishReservationCreated(ctx context.Context, res *domain.Reservation) error

	// PublishReservationActivated publishes a reservation activated event
	PublishReservationActivated(ctx context.Context, res *domain.Reservation) error

	// PublishReservationExpired publishes a reservation expired event
	PublishReservationExpired(ctx context.Context, res *domain.Reservation) error

	// PublishReservationCancelled publishes a reservation cancelled event
	PublishReservationCancelled(ctx context.Context, res *domain.Reservation) error

	// PublishEmergencyAssigned publishes an emergency admission event
	PublishEmergencyAssigned(ctx context.Context, res *domain.Reservation) error

	// PublishQueueNotified publishes a queue hand-off event
	PublishQueueNotified(ctx context.Context, entry *domain.QueueEntry) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "parking-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "smartpark"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "smartpark-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishReservationCreated publishes a reservation created event
func (p *KafkaEventPublisher) PublishReservationCreated(ctx context.Context, res *domain.Reservation) error {
	return p.publishEvent(ctx, domain.EventReservationCreated, res)
}

// PublishReservationActivated publishes a reservation activated event
func (p *KafkaEventPublisher) PublishReservationActivated(ctx context.Context, res *domain.Reservation) error {
	return p.publishEvent(ctx, domain.EventReservationActivated, res)
}

// PublishReservationExpired publishes a reservation expired event
func (p *KafkaEventPublisher) PublishReservationExpired(ctx context.Context, res *domain.Reservation) error {
	return p.publishEvent(ctx, domain.EventReservationExpired, res)
}

// PublishReservationCancelled publishes a reservation cancelled event
func (p *KafkaEventPublisher) PublishReservationCancelled(ctx context.Context, res *domain.Reservation) error {
	return p.publishEvent(ctx, domain.EventReservationCancelled, res)
}

// PublishEmergencyAssigned publishes an emergency admission event
func (p *KafkaEventPublisher) PublishEmergencyAssigned(ctx context.Context, res *domain.Reservation) error {
	return p.publishEvent(ctx, domain.EventEmergencyAssigned, res)
}

// PublishQueueNotified publishes a queue hand-off event
func (p *KafkaEventPublisher) PublishQueueNotified(ctx context.Context, entry *domain.QueueEntry) error {
	eventID := uuid.New().String()
	event := &domain.ParkingEvent{
		EventID:    eventID,
		EventType:  domain.EventQueueNotified,
		OccurredAt: time.Now(),
		QueueEntry: entry,
	}
	return p.send(ctx, event)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.ParkingEventType, res *domain.Reservation) error {
	event := domain.NewParkingEvent(eventType, res, uuid.New().String())
	return p.send(ctx, event)
}

func (p *KafkaEventPublisher) send(ctx context.Context, event *domain.ParkingEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := map[string]string{
		"event_type":   string(event.EventType),
		"event_id":     event.EventID,
		"source":       p.serviceName,
		"content_type": "application/json",
	}

	msg := &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: time.Now(),
	}

	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType, err)
	}

	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
// and for running without Kafka
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishReservationCreated is a no-op
func (p *NoOpEventPublisher) PublishReservationCreated(ctx context.Context, res *domain.Reservation) error {
	return nil
}

// PublishReservationActivated is a no-op
func (p *NoOpEventPublisher) PublishReservationActivated(ctx context.Context, res *domain.Reservation) error {
	return nil
}

// PublishReservationExpired is a no-op
func (p *NoOpEventPublisher) PublishReservationExpired(ctx context.Context, res *domain.Reservation) error {
	return nil
}

// PublishReservationCancelled is a no-op
func (p *NoOpEventPublisher) PublishReservationCancelled(ctx context.Context, res *domain.Reservation) error {
	return nil
}

// PublishEmergencyAssigned is a no-op
func (p *NoOpEventPublisher) PublishEmergencyAssigned(ctx context.Context, res *domain.Reservation) error {
	return nil
}

// PublishQueueNotified is a no-op
func (p *NoOpEventPublisher) PublishQueueNotified(ctx context.Context, entry *domain.QueueEntry) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}
