package routes

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/weather-hub/weather-hub/internal/server"
)

// RegisterStatusRoutes 暴露 /stats 与 /healthz 运维接口，供 SRE 观察
// 命中率与后端存活状态。
func RegisterStatusRoutes(app *fiber.App, svc server.WeatherService, logger *logrus.Logger) {
	if app == nil || svc == nil {
		return
	}

	app.Get("/stats", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		snap, err := svc.Stats(ctx)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("action", "stats_read_failed").Warn("统计读取失败")
			}
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "stats_unavailable",
			})
		}
		return c.JSON(snap)
	})

	app.Get("/healthz", func(c fiber.Ctx) error {
		ctx := c.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		return c.JSON(fiber.Map{
			"redis_ok":    svc.Healthy(ctx),
			"provider_ok": true,
		})
	})
}
