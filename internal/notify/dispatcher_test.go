package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	badgeModel "sigil/internal/badge/models"
	"sigil/internal/platform/config"
)

type capturedCallback struct {
	mu       sync.Mutex
	payloads []CallbackPayload
}

func (c *capturedCallback) handler(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload CallbackPayload
		_ = json.NewDecoder(r.Body).Decode(&payload)
		c.mu.Lock()
		c.payloads = append(c.payloads, payload)
		c.mu.Unlock()
		w.WriteHeader(status)
	}
}

func newDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	return NewDispatcher(
		config.CallbackConfig{Timeout: 2 * time.Second, MaxIdleConns: 4, MaxConnsPerHost: 4},
		"badges.example",
		slog.New(slog.DiscardHandler),
		nil,
	)
}

func TestNotifyGranted(t *testing.T) {
	t.Run("202 is an acknowledgement", func(t *testing.T) {
		captured := &capturedCallback{}
		server := httptest.NewServer(captured.handler(http.StatusAccepted))
		defer server.Close()

		expires := time.Date(2027, 3, 14, 9, 30, 0, 0, time.UTC)
		badges := []badgeModel.Badge{
			{ID: "b-1", Name: "apple.com", Type: badgeModel.TypeEmail, ExpiresAt: &expires},
			{ID: "b-2", Name: "Tech Industry", Type: badgeModel.TypeInferred},
		}
		acked := newDispatcher(t).NotifyGranted(context.Background(), server.URL, "app-1tok", badges)
		require.True(t, acked)

		require.Len(t, captured.payloads, 1)
		payload := captured.payloads[0]
		require.Equal(t, "app-1tok", payload.TransactionID)
		require.Equal(t, "badges.example", payload.Authority)
		require.Equal(t, "granted", payload.State)
		require.Len(t, payload.Badges, 2)
		require.Equal(t, "2027-03-14T09:30:00Z", payload.Badges[0].ExpiresAt)
		require.Empty(t, payload.Badges[1].ExpiresAt)
	})

	t.Run("200 is not an acknowledgement", func(t *testing.T) {
		captured := &capturedCallback{}
		server := httptest.NewServer(captured.handler(http.StatusOK))
		defer server.Close()

		acked := newDispatcher(t).NotifyGranted(context.Background(), server.URL, "app-1tok", nil)
		require.False(t, acked)
		require.Len(t, captured.payloads, 1)
	})

	t.Run("unreachable sponsor is not an acknowledgement", func(t *testing.T) {
		acked := newDispatcher(t).NotifyGranted(context.Background(), "http://127.0.0.1:1", "app-1tok", nil)
		require.False(t, acked)
	})
}

func TestNotifyRefused(t *testing.T) {
	captured := &capturedCallback{}
	server := httptest.NewServer(captured.handler(http.StatusAccepted))
	defer server.Close()

	newDispatcher(t).NotifyRefused(context.Background(), server.URL, "app-1tok", "too_many_retries")

	require.Len(t, captured.payloads, 1)
	require.Equal(t, "refused", captured.payloads[0].State)
	require.Equal(t, "too_many_retries", captured.payloads[0].Reason)
	require.Empty(t, captured.payloads[0].Badges)
}

func TestNotifyServerError(t *testing.T) {
	captured := &capturedCallback{}
	server := httptest.NewServer(captured.handler(http.StatusAccepted))
	defer server.Close()

	newDispatcher(t).NotifyServerError(context.Background(), server.URL, "app-1tok")

	require.Len(t, captured.payloads, 1)
	require.Equal(t, "server_error", captured.payloads[0].State)
}

func TestVerificationEmail(t *testing.T) {
	subject, body := VerificationEmail("badges.example", "Sponsors Inc", "c0de", 10*time.Minute)
	require.Contains(t, subject, "badges.example")
	require.Contains(t, body, "c0de")
	require.Contains(t, body, "Sponsors Inc")
	require.Contains(t, body, "10 minutes")
}
