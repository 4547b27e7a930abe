package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/weather-hub/weather-hub/internal/cache"
	"github.com/weather-hub/weather-hub/internal/logging"
	"github.com/weather-hub/weather-hub/internal/provider"
	"github.com/weather-hub/weather-hub/internal/weather"
)

// WeatherService describes the capability the routes need from the weather
// layer. It allows injecting fake services during tests.
type WeatherService interface {
	Fetch(ctx context.Context, city string) (*provider.Observation, error)
	Stats(ctx context.Context) (cache.Snapshot, error)
	Healthy(ctx context.Context) bool
}

// AppOptions controls how the Fiber application should behave on a specific port.
type AppOptions struct {
	Logger     *logrus.Logger
	Service    WeatherService
	ListenPort int
}

const contextKeyRequestID = "_weatherhub_request_id"

// NewApp builds a Fiber application with request-ID middleware and the
// /weather endpoint. Operational routes are registered separately.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Service == nil {
		return nil, errors.New("weather service is required")
	}
	if opts.ListenPort <= 0 {
		return nil, fmt.Errorf("invalid listen port: %d", opts.ListenPort)
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestIDMiddleware())

	app.Get("/weather", handleWeather(opts))

	return app, nil
}

// requestIDMiddleware 负责生成请求 ID 并回写 X-Request-ID 头。
func requestIDMiddleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)
		return c.Next()
	}
}

func handleWeather(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		city := strings.TrimSpace(c.Query("city"))
		if city == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "city_required",
			})
		}

		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		started := time.Now()
		obs, err := opts.Service.Fetch(ctx, city)
		if err != nil {
			return renderFetchError(c, opts.Logger, city, err)
		}

		fields := logging.RequestFields(city, RequestID(c), obs.Stale)
		fields["duration_ms"] = time.Since(started).Milliseconds()
		opts.Logger.WithFields(fields).Info("weather request served")

		if obs.Stale {
			c.Set("X-Weather-Hub-Stale", "true")
		}
		return c.JSON(obs)
	}
}

func renderFetchError(c fiber.Ctx, logger *logrus.Logger, city string, err error) error {
	switch {
	case errors.Is(err, weather.ErrCityRequired):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "city_required",
		})
	case errors.Is(err, cache.ErrUpstreamUnavailable):
		logger.WithError(err).WithFields(logrus.Fields{
			"action": "fetch_failed",
			"city":   city,
		}).Warn("upstream unavailable")
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "upstream_unavailable",
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// 客户端已经放弃，无需再构造响应体。
		return c.SendStatus(fiber.StatusServiceUnavailable)
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"action": "fetch_failed",
			"city":   city,
		}).Error("unexpected fetch error")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal_error",
		})
	}
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}
