package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basepark/smartpark/internal/domain"
)

func TestWebhookNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("posts the spot available payload", func(t *testing.T) {
		var got notificationPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/notifications", r.URL.Path)
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		n, err := NewWebhookNotifier(&WebhookNotifierConfig{BaseURL: srv.URL, APIKey: "secret"})
		require.NoError(t, err)

		entry := &domain.QueueEntry{PlateNumber: "WAIT-1", Name: "Pat", Contact: "pat@example.com"}
		require.NoError(t, n.NotifySpotAvailable(ctx, entry, "B02"))

		assert.Equal(t, "spot_available", got.Kind)
		assert.Equal(t, "pat@example.com", got.Contact)
		assert.Equal(t, "email", got.ContactKind)
		assert.Equal(t, "B02", got.SpotID)
	})

	t.Run("posts the reservation confirmed payload", func(t *testing.T) {
		var got notificationPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		n, err := NewWebhookNotifier(&WebhookNotifierConfig{BaseURL: srv.URL})
		require.NoError(t, err)

		res := &domain.Reservation{SpotID: "S02", PlateNumber: "WALKIN-1", CustomerName: "Gate"}
		require.NoError(t, n.NotifyReservationConfirmed(ctx, res, "gate@example.com"))

		assert.Equal(t, "reservation_confirmed", got.Kind)
		assert.Equal(t, "gate@example.com", got.Contact)
		assert.Equal(t, "S02", got.SpotID)
	})

	t.Run("a client error is not retried", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		n, err := NewWebhookNotifier(&WebhookNotifierConfig{BaseURL: srv.URL, MaxRetries: 3})
		require.NoError(t, err)

		err = n.NotifyQueueJoined(ctx, &domain.QueueEntry{PlateNumber: "W-1", Contact: "x@example.com"}, 2)
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("a gateway error is retried", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusAccepted)
		}))
		defer srv.Close()

		n, err := NewWebhookNotifier(&WebhookNotifierConfig{
			BaseURL: srv.URL, MaxRetries: 2, Timeout: 2 * time.Second,
		})
		require.NoError(t, err)

		err = n.NotifyQueueJoined(ctx, &domain.QueueEntry{PlateNumber: "W-1", Contact: "x@example.com"}, 2)
		assert.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("requires a base URL", func(t *testing.T) {
		_, err := NewWebhookNotifier(nil)
		assert.Error(t, err)
	})
}

func TestNoOpNotifier(t *testing.T) {
	ctx := context.Background()
	n := NewNoOpNotifier()

	entry := &domain.QueueEntry{PlateNumber: "WAIT-1", Contact: "pat@example.com"}
	assert.NoError(t, n.NotifySpotAvailable(ctx, entry, "A01"))
	assert.NoError(t, n.NotifyQueueJoined(ctx, entry, 1))
	assert.NoError(t, n.NotifyReservationConfirmed(ctx, &domain.Reservation{SpotID: "A01"}, "pat@example.com"))
}

func TestLogNotifier(t *testing.T) {
	ctx := context.Background()
	n := NewLogNotifier(nil)

	entry := &domain.QueueEntry{PlateNumber: "WAIT-1", Contact: "pat@example.com"}
	assert.NoError(t, n.NotifySpotAvailable(ctx, entry, "A01"))
	assert.NoError(t, n.NotifyQueueJoined(ctx, entry, 1))
	assert.NoError(t, n.NotifyReservationConfirmed(ctx, &domain.Reservation{SpotID: "A01"}, "pat@example.com"))
}
