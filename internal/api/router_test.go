package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/surplus-delivery/internal/auth"
	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/inventory"
	"github.com/joao-fontenele/surplus-delivery/internal/orders"
	"github.com/joao-fontenele/surplus-delivery/internal/profiles"
)

type stubResolver map[string]domain.Actor

func (s stubResolver) Resolve(_ context.Context, token string) (domain.Actor, error) {
	actor, ok := s[token]
	if !ok {
		return domain.Actor{}, auth.ErrUnauthenticated
	}
	return actor, nil
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }

func newTestRouter(db Pinger) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := stubResolver{"consumer": {ID: "c1", Role: domain.RoleConsumer}}

	return NewRouter(Config{
		Orders:         orders.NewHandler(orders.NewService(nil, nil, nil, logger), logger),
		Inventory:      inventory.NewHandler(nil, logger),
		Profiles:       profiles.NewHandler(nil, logger),
		Auth:           auth.NewMiddleware(resolver, logger),
		Metrics:        http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "# metrics") }),
		DB:             db,
		RequestTimeout: time.Second,
		Logger:         logger,
	})
}

func TestRouter_Guards(t *testing.T) {
	router := newTestRouter(stubPinger{})

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"checkout without token", http.MethodPost, "/consumer/orders", "", http.StatusUnauthorized},
		{"courier route as consumer", http.MethodGet, "/courier/new-requests", "consumer", http.StatusForbidden},
		{"business route as consumer", http.MethodPatch, "/business/food-items/l1", "consumer", http.StatusForbidden},
		{"accept as consumer", http.MethodPut, "/courier/deliveries/o-1/accept", "consumer", http.StatusForbidden},
		{"me without token", http.MethodGet, "/me", "", http.StatusUnauthorized},
		{"wrong method", http.MethodDelete, "/consumer/orders", "consumer", http.StatusMethodNotAllowed},
		{"health", http.MethodGet, "/healthz", "", http.StatusOK},
		{"ready", http.MethodGet, "/readyz", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_NotReady(t *testing.T) {
	router := newTestRouter(stubPinger{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestWithTimeout(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := WithTimeout(50*time.Millisecond, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
		<-r.Context().Done()
		w.WriteHeader(http.StatusGatewayTimeout)
	}))

	start := time.Now()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.WithinDuration(t, start.Add(50*time.Millisecond), deadline, 40*time.Millisecond)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)

	passthrough := WithTimeout(0, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok = r.Context().Deadline()
	}))
	passthrough.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.False(t, ok)
}
