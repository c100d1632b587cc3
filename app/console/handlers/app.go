package handlers

import (
	"context"
	"go.uber.org/zap"
	"io"
	"webknight/app/console/config"
	"webknight/app/console/guard"
	"webknight/app/console/platform"
)

type App struct {
	cfg    *config.Config
	l      *zap.Logger
	client *platform.Client
	guard  *guard.Guard
	out    io.Writer
}

func NewApp(cfg *config.Config, l *zap.Logger, client *platform.Client, g *guard.Guard, out io.Writer) *App {
	return &App{
		cfg:    cfg,
		l:      l,
		client: client,
		guard:  g,
		out:    out,
	}
}

func (a *App) Start(ctx context.Context) error {
	return a.guard.Start(ctx)
}

func (a *App) Stop() {
	a.guard.Close()
}

func (a *App) Done() <-chan struct{} {
	return a.guard.Done()
}
