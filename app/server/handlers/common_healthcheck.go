package handlers

import (
	"context"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"net/http"
)

// Pinger 检查外部依赖（数据库、Redis）是否可用
type Pinger interface {
	Ping(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func (a *App) HealthCheck(c echo.Context) error {
	if a.pinger != nil {
		if err := a.pinger.Ping(c.Request().Context()); err != nil {
			a.l.Error("health check failed", zap.Error(err))
			return c.NoContent(http.StatusServiceUnavailable)
		}
	}
	return c.NoContent(http.StatusOK)
}
