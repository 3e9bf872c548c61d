package resilience_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunsafe/sunsafe/internal/resilience"
)

func fastConfig(name string, retries uint64) resilience.ClientConfig {
	breaker := resilience.DefaultBreakerConfig(name)
	breaker.ShouldTrip = func(counts gobreaker.Counts) bool { return counts.Requests >= 100 }
	return resilience.ClientConfig{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      retries,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Breaker:         &breaker,
	}
}

func TestClient_PostJSON_Success(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("webhook", 3))
	err := client.PostJSON(context.Background(), server.URL, map[string]any{"deviceId": "d1"})

	require.NoError(t, err)
	assert.Equal(t, "d1", received["deviceId"])
}

func TestClient_RetriesServerErrorsAndResendsBody(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"n":1}`, string(body))
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("retry", 5))
	require.NoError(t, client.PostJSON(context.Background(), server.URL, map[string]int{"n": 1}))
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("4xx", 3))
	err := client.PostJSON(context.Background(), server.URL, struct{}{})

	assert.ErrorIs(t, err, resilience.ErrUnexpectedStatus)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestClient_ExhaustedServerErrorReturnsLastResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("exhaust", 2))
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, http.NoBody)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestClient_BreakerOpensAndShortCircuits(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	breaker := resilience.BreakerConfig{
		Name:        "trip",
		OpenTimeout: time.Minute,
		ShouldTrip:  resilience.TripOnFailureRatio,
	}
	cfg := fastConfig("trip", 1)
	cfg.Breaker = &breaker
	client := resilience.NewClient(cfg)

	for i := 0; i < 3; i++ {
		_ = client.PostJSON(context.Background(), server.URL, struct{}{})
	}
	assert.Equal(t, gobreaker.StateOpen, client.BreakerState())

	before := attempts.Load()
	err := client.PostJSON(context.Background(), server.URL, struct{}{})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, before, attempts.Load())
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("cancel", 1))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.PostJSON(ctx, server.URL, struct{}{})
	assert.Error(t, err)
}

func TestTripOnFailureRatio(t *testing.T) {
	tests := []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"too few requests", gobreaker.Counts{Requests: 4, TotalFailures: 4}, false},
		{"low failure ratio", gobreaker.Counts{Requests: 10, TotalFailures: 4}, false},
		{"half failing", gobreaker.Counts{Requests: 10, TotalFailures: 5}, true},
		{"all failing", gobreaker.Counts{Requests: 5, TotalFailures: 5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resilience.TripOnFailureRatio(tt.counts))
		})
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := resilience.DefaultClientConfig("alerts")

	assert.Equal(t, "alerts", cfg.Name)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	require.NotNil(t, cfg.Breaker)
	assert.Equal(t, 30*time.Second, cfg.Breaker.OpenTimeout)
}

func TestServerError(t *testing.T) {
	err := &resilience.ServerError{StatusCode: http.StatusBadGateway}
	assert.Contains(t, err.Error(), "Bad Gateway")
}
