package routes

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/weather-hub/weather-hub/internal/cache"
	"github.com/weather-hub/weather-hub/internal/provider"
)

type stubService struct {
	snap    cache.Snapshot
	statErr error
	healthy bool
}

func (s *stubService) Fetch(ctx context.Context, city string) (*provider.Observation, error) {
	return &provider.Observation{City: city}, nil
}

func (s *stubService) Stats(context.Context) (cache.Snapshot, error) {
	return s.snap, s.statErr
}

func (s *stubService) Healthy(context.Context) bool {
	return s.healthy
}

func newStatusApp(t *testing.T, svc *stubService) *fiber.App {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app := fiber.New()
	RegisterStatusRoutes(app, svc, logger)
	return app
}

func TestStatsRouteReturnsSnapshot(t *testing.T) {
	ratio := 0.75
	app := newStatusApp(t, &stubService{
		snap: cache.Snapshot{Hits: 3, Misses: 1, APICalls: 1, AvoidedAPICalls: 2, HitRatio: &ratio},
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/stats", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, expect := range []string{`"cache_hits":3`, `"cache_misses":1`, `"api_calls":1`, `"avoided_api_calls":2`, `"hit_ratio":0.75`} {
		if !bytes.Contains(body, []byte(expect)) {
			t.Fatalf("stats body missing %s: %s", expect, string(body))
		}
	}
}

func TestStatsRouteReportsStoreOutage(t *testing.T) {
	app := newStatusApp(t, &stubService{statErr: errors.New("redis down")})

	resp, err := app.Test(httptest.NewRequest("GET", "/stats", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 status, got %d", resp.StatusCode)
	}
}

func TestHealthzRoute(t *testing.T) {
	app := newStatusApp(t, &stubService{healthy: true})

	resp, err := app.Test(httptest.NewRequest("GET", "/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 status, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(body, []byte(`"redis_ok":true`)) || !bytes.Contains(body, []byte(`"provider_ok":true`)) {
		t.Fatalf("healthz body mismatch: %s", string(body))
	}
}
