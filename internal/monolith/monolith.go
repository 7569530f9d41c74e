// Package monolith hosts the router's bounded contexts (market, blockchain,
// venue, aggregator, pricing) in one process behind a shared DI container.
package monolith

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/swap-router/internal/config"
	"github.com/fd1az/swap-router/internal/di"
	"github.com/fd1az/swap-router/internal/logger"
)

// Monolith is what modules see of the host at startup.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Services() di.ServiceRegistry
}

// Module is a bounded context. RegisterServices only declares lazy
// factories; Startup may do I/O.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Closer is implemented by modules holding connections that must be released
// on shutdown.
type Closer interface {
	Close(context.Context) error
}

// App is the default Monolith.
type App struct {
	config    *config.Config
	logger    logger.LoggerInterface
	container di.Container
	modules   []Module
}

// New creates an App with config and logger registered in its container.
func New(cfg *config.Config, log logger.LoggerInterface) *App {
	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	return &App{config: cfg, logger: log, container: container}
}

func (a *App) Config() *config.Config { return a.config }
func (a *App) Logger() logger.LoggerInterface { return a.logger }
func (a *App) Services() di.ServiceRegistry { return a.container }

// RegisterModules registers modules in order. Close later walks them in
// reverse.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return fmt.Errorf("register %s module: %w", moduleName(m), err)
		}
		a.modules = append(a.modules, m)
	}
	return nil
}

// StartModules starts modules in order and stops at the first failure.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		name := moduleName(m)
		start := time.Now()
		if err := m.Startup(ctx, a); err != nil {
			return fmt.Errorf("start %s module: %w", name, err)
		}
		a.logger.Debug(ctx, "module started", "module", name, "took", time.Since(start))
	}
	return nil
}

// Close releases module resources in reverse registration order. Every
// Closer runs even when an earlier one fails.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.modules) - 1; i >= 0; i-- {
		c, ok := a.modules[i].(Closer)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			a.logger.Warn(ctx, "module close failed", "module", moduleName(a.modules[i]), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// moduleName turns "*blockchain.Module" into "blockchain".
func moduleName(m Module) string {
	name := strings.TrimPrefix(fmt.Sprintf("%T", m), "*")
	if pkg, _, ok := strings.Cut(name, "."); ok {
		return pkg
	}
	return name
}
