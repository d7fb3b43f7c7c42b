package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/basepark/smartpark/pkg/telemetry"
)

var (
	// Reservation counters
	ReservationsCreated   *telemetry.Counter
	ReservationsActivated *telemetry.Counter
	ReservationsExpired   *telemetry.Counter
	ReservationsCancelled *telemetry.Counter

	// Detection counters
	DetectionsProcessed *telemetry.Counter
	DetectionsDropped   *telemetry.Counter
	EmergencyAdmissions *telemetry.Counter

	// Queue counters
	QueueJoined   *telemetry.Counter
	QueueNotified *telemetry.Counter

	// Histograms
	DetectionLatency *telemetry.Histogram
	SweepDuration    *telemetry.Histogram

	// Gauges
	OccupiedSpots *telemetry.UpDownCounter
	QueueDepth    *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all parking metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	ReservationsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_reservations_created_total",
		Description: "Total number of reservations created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsActivated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_reservations_activated_total",
		Description: "Total number of reservations activated by plate detection",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsExpired, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_reservations_expired_total",
		Description: "Total number of reservations expired by the sweeper",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ReservationsCancelled, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_reservations_cancelled_total",
		Description: "Total number of stale pending reservations cancelled",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	DetectionsProcessed, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "anpr_detections_processed_total",
		Description: "Total number of plate detections processed, by action",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	DetectionsDropped, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "anpr_detections_dropped_total",
		Description: "Total number of detections dropped by cooldown or backpressure",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EmergencyAdmissions, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "anpr_emergency_admissions_total",
		Description: "Total number of emergency vehicles granted a spot",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	QueueJoined, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_queue_joins_total",
		Description: "Total number of parties that joined the waiting queue",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	QueueNotified, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "parking_queue_notifications_total",
		Description: "Total number of waiting parties notified of a free spot",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	DetectionLatency, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "anpr_detection_duration_seconds",
		Description: "Time to arbitrate one plate detection",
		Unit:        "s",
	}, []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5})
	if err != nil {
		return err
	}

	SweepDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "parking_sweep_duration_seconds",
		Description: "Time to run one expiry sweep",
		Unit:        "s",
	}, []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30})
	if err != nil {
		return err
	}

	OccupiedSpots, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "parking_occupied_spots",
		Description: "Current number of reserved or occupied spots",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	QueueDepth, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "parking_queue_depth",
		Description: "Current number of un-notified waiting queue entries",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordReservationCreated records a new reservation metric
func RecordReservationCreated(ctx context.Context, spotID string, walkIn bool) {
	if ReservationsCreated != nil {
		ReservationsCreated.Inc(ctx,
			attribute.String("spot_id", spotID),
			attribute.Bool("walk_in", walkIn),
		)
	}
	if OccupiedSpots != nil {
		OccupiedSpots.Inc(ctx)
	}
}

// RecordDetection records a processed detection metric
func RecordDetection(ctx context.Context, action string, durationSeconds float64) {
	if DetectionsProcessed != nil {
		DetectionsProcessed.Inc(ctx, attribute.String("action", action))
	}
	if DetectionLatency != nil {
		DetectionLatency.Record(ctx, durationSeconds, attribute.String("action", action))
	}
}

// RecordDetectionDropped records a dropped detection metric
func RecordDetectionDropped(ctx context.Context, reason string) {
	if DetectionsDropped != nil {
		DetectionsDropped.Inc(ctx, attribute.String("reason", reason))
	}
}

// RecordEmergencyAdmission records an emergency admission metric
func RecordEmergencyAdmission(ctx context.Context, spotID string) {
	if EmergencyAdmissions != nil {
		EmergencyAdmissions.Inc(ctx, attribute.String("spot_id", spotID))
	}
	if OccupiedSpots != nil {
		OccupiedSpots.Inc(ctx)
	}
}

// RecordExpirations records reservation expirations from one sweep
func RecordExpirations(ctx context.Context, count int64) {
	if ReservationsExpired != nil {
		ReservationsExpired.Add(ctx, count)
	}
	if OccupiedSpots != nil {
		OccupiedSpots.Add(ctx, -count)
	}
}

// RecordCancellations records stale pending cancellations from one sweep
func RecordCancellations(ctx context.Context, count int64) {
	if ReservationsCancelled != nil {
		ReservationsCancelled.Add(ctx, count)
	}
	if OccupiedSpots != nil {
		OccupiedSpots.Add(ctx, -count)
	}
}

// RecordSweep records the duration of one expiry sweep
func RecordSweep(ctx context.Context, durationSeconds float64) {
	if SweepDuration != nil {
		SweepDuration.Record(ctx, durationSeconds)
	}
}

// RecordQueueJoin records a queue join metric
func RecordQueueJoin(ctx context.Context) {
	if QueueJoined != nil {
		QueueJoined.Inc(ctx)
	}
	if QueueDepth != nil {
		QueueDepth.Inc(ctx)
	}
}

// RecordQueueNotification records a queue hand-off metric
func RecordQueueNotification(ctx context.Context) {
	if QueueNotified != nil {
		QueueNotified.Inc(ctx)
	}
	if QueueDepth != nil {
		QueueDepth.Dec(ctx)
	}
}
