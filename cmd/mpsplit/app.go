// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/viant/afs"

	"github.com/mpsplit/mpsplit/internal/config"
	"github.com/mpsplit/mpsplit/internal/logging"
)

type (
	// App wires CLI services and shared dependencies. All Cobra command
	// handlers receive an App reference.
	App struct {
		Config config.Provider
		FS     afs.Service
		stdout io.Writer
		stderr io.Writer
		// loadOpts carries the config locations; --config fills
		// ConfigFilePath at parse time.
		loadOpts config.LoadOptions
		verbose  bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config      config.Provider
		FS          afs.Service
		Stdout      io.Writer
		Stderr      io.Writer
		LoadOptions config.LoadOptions
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.FS == nil {
		deps.FS = afs.New()
	}

	return &App{
		Config:   deps.Config,
		FS:       deps.FS,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
		loadOpts: deps.LoadOptions,
	}, nil
}

// loadConfig loads the configuration and folds its verbose setting into
// the --verbose flag.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, a.loadOpts)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		a.verbose = true
	}
	return cfg, nil
}

// logger returns the structured logger for diagnostics, writing to stderr.
func (a *App) logger() *slog.Logger {
	return logging.New(a.stderr, a.verbose)
}
