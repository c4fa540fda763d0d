// Package bootstrap wires configuration, logging, the exchange journal, the
// writer and the App together for the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ibeckermayer/autobip/internal/app"
	"github.com/ibeckermayer/autobip/internal/config"
	"github.com/ibeckermayer/autobip/internal/logging"
	"github.com/ibeckermayer/autobip/internal/scheduler"
	"github.com/ibeckermayer/autobip/internal/server"
	"github.com/ibeckermayer/autobip/internal/store"
	"github.com/ibeckermayer/autobip/internal/writer"
	"github.com/ibeckermayer/autobip/internal/writer/providers"
)

// Env is a fully wired application
type Env struct {
	Config  *config.Config
	App     *app.App
	Journal *store.Store // nil when journaling is disabled

	configPath string
	logger     *logging.Logger
	log        *slog.Logger
}

// Open loads configuration from path (the default location when empty),
// creating a default file on first run, and wires every component.
func Open(ctx context.Context, path string) (*Env, error) {
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return nil, err
		}
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	env := &Env{Config: cfg, configPath: path, logger: logger, log: logging.Component("bootstrap")}

	var journal providers.Journal
	if cfg.Journal.Enabled {
		dbPath, err := cfg.JournalPath()
		if err != nil {
			env.Close()
			return nil, err
		}
		st, err := store.New(dbPath)
		if err != nil {
			env.Close()
			return nil, fmt.Errorf("failed to open journal %s: %w", dbPath, err)
		}
		env.Journal = st
		journal = st
	}

	w, err := writer.New(ctx, cfg.Analysis, journal)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.App = app.New(cfg, w, journal)

	return env, nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, found, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	if !found {
		// First run - create default config
		if err := cfg.SaveTo(path); err != nil {
			slog.Warn("could not save default config", "path", path, "error", err)
		} else {
			slog.Info("created default config", "path", path)
		}
	}
	return cfg, nil
}

// Serve runs the HTTP API and the trend scheduler until ctx is cancelled.
// SIGHUP reloads the configuration.
func (e *Env) Serve(ctx context.Context) error {
	srv, err := server.New(e.App)
	if err != nil {
		return err
	}

	sched, err := scheduler.New("")
	if err != nil {
		return err
	}
	trends := e.Config.Trends
	if err := sched.AddTrendJobs(trends.InitialDelay.Duration, trends.Schedule, func(ctx context.Context) error {
		e.App.DetectTrends(ctx, "")
		return nil
	}); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx, e.Config.Server.Addr)
	})

	g.Go(func() error {
		sched.Start()
		<-ctx.Done()
		<-sched.Stop().Done()
		return nil
	})

	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if err := e.App.ReloadConfig(ctx, e.configPath); err != nil {
					e.log.Error("config reload failed", "error", err)
				}
			}
		}
	})

	e.log.Info("autobip started", "addr", e.Config.Server.Addr, "api_key", e.Config.Analysis.APIKey != "")
	return g.Wait()
}

// Close releases the journal and the log file
func (e *Env) Close() error {
	var result *multierror.Error
	if e.Journal != nil {
		if err := e.Journal.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if e.logger != nil {
		if err := e.logger.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
