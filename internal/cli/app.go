// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jeranaias/rigrun-route/internal/config"
	"github.com/jeranaias/rigrun-route/internal/dispatch"
	"github.com/jeranaias/rigrun-route/internal/executor"
	"github.com/jeranaias/rigrun-route/internal/logging"
	"github.com/jeranaias/rigrun-route/internal/offline"
	"github.com/jeranaias/rigrun-route/internal/registry"
	"github.com/jeranaias/rigrun-route/internal/router"
	"github.com/jeranaias/rigrun-route/internal/telemetry"
)

var (
	// ErrValidationFailed is returned when a decision carries validator
	// errors; such decisions are never executed.
	ErrValidationFailed = errors.New("routing decision failed validation")

	// ErrAllModelsFailed is returned by run when no model answered.
	ErrAllModelsFailed = errors.New("no model could process the request")
)

// app carries global flags and the collaborators shared by commands.
type app struct {
	configPath string
	loadout    string
	jsonOut    bool
	offline    bool
	verbose    bool

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	now    func() time.Time

	cfg       *config.Config
	metrics   *telemetry.Metrics
	logCloser io.Closer

	newCaller func(ctx context.Context, cfg *config.Config, reg *registry.Registry) (executor.ModelCaller, error)
	newLocal  func(cfg *config.Config, reg *registry.Registry) executor.LocalFallback
}

func newApp() *app {
	return &app{
		in:      os.Stdin,
		out:     os.Stdout,
		errOut:  os.Stderr,
		now:     time.Now,
		metrics: telemetry.NewMetrics(),
		newCaller: func(ctx context.Context, cfg *config.Config, reg *registry.Registry) (executor.ModelCaller, error) {
			return dispatch.FromConfig(ctx, cfg, reg)
		},
		newLocal: func(cfg *config.Config, reg *registry.Registry) executor.LocalFallback {
			return dispatch.LastResortFromConfig(cfg, reg)
		},
	}
}

// =============================================================================
// SETUP
// =============================================================================

// loadConfig reads the character sheet, applies flag overrides and
// reconfigures logging and offline mode from the result.
func (a *app) loadConfig() error {
	cfg, err := a.readConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg
	offline.SetOfflineMode(cfg.Cloud.Offline)

	level := cfg.Logging.Level
	if a.verbose {
		level = "debug"
	}
	closer, err := logging.Init(&logging.Config{
		Level:  level,
		Format: cfg.Logging.Format,
		Output: "stderr",
	})
	if err != nil {
		return err
	}
	a.logCloser = closer
	return nil
}

// readConfig loads and overlays without touching process state. The chat
// watcher applies the same overlays to each reloaded sheet.
func (a *app) readConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	return a.applyOverlays(cfg)
}

// applyOverlays applies --loadout and --offline to a freshly loaded sheet.
func (a *app) applyOverlays(cfg *config.Config) (*config.Config, error) {
	if a.loadout != "" {
		lo, err := config.LoadLoadout(a.loadout)
		if err != nil {
			return nil, err
		}
		if cfg, err = cfg.WithLoadout(lo); err != nil {
			return nil, err
		}
	}
	if a.offline {
		cfg.Cloud.Offline = true
	}
	return cfg, nil
}

// configFile returns the path the character sheet is read from.
func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	return config.ConfigPathTOML()
}

func (a *app) newRouter(cfg *config.Config) *router.Router {
	return router.New(cfg, cfg.Registry(), router.WithObserver(a.metrics), router.WithClock(a.now))
}

func (a *app) newEngine(ctx context.Context, cfg *config.Config) (*executor.Engine, error) {
	reg := cfg.Registry()
	caller, err := a.newCaller(ctx, cfg, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to set up providers: %w", err)
	}
	opts := []executor.Option{
		executor.WithRegistry(reg),
		executor.WithObserver(a.metrics),
		executor.WithClock(a.now),
	}
	if !cfg.FallbackBehavior.DisableLocalLastResort {
		if local := a.newLocal(cfg, reg); local != nil {
			opts = append(opts, executor.WithLocalFallback(local))
		}
	}
	return executor.New(caller, opts...), nil
}

// currentSpend snapshots month-to-date spend. A ledger failure is logged
// and treated as zero spend.
func (a *app) currentSpend(ctx context.Context, ledger *telemetry.Ledger) float64 {
	if ledger == nil {
		return 0
	}
	spend, err := ledger.MonthlySpend(ctx, a.now())
	if err != nil {
		logging.WithComponent("cli").Warn("spend lookup failed", "error", err)
		return 0
	}
	return spend
}

func (a *app) openLedger() (*telemetry.Ledger, error) {
	return telemetry.OpenLedger(a.cfg.Telemetry.LedgerPath)
}

// finish flushes metrics and releases the log file.
func (a *app) finish() error {
	var errs []error
	if a.cfg != nil && a.cfg.Telemetry.MetricsTextfile != "" {
		if err := a.metrics.WriteToTextfile(a.cfg.Telemetry.MetricsTextfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
		a.logCloser = nil
	}
	return errors.Join(errs...)
}

// writeJSON emits the --json envelope.
func (a *app) writeJSON(command string, data interface{}, err error) error {
	if err != nil {
		if werr := NewJSONErrorResponse(command, err).Write(a.out); werr != nil {
			return werr
		}
		return err
	}
	return NewJSONResponse(command, data).Write(a.out)
}
