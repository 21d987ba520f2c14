package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"social-report/internal/config"
	"social-report/internal/database"
	"social-report/internal/export"
	"social-report/internal/mailer"
	"social-report/internal/monitoring"
	"social-report/internal/reporting"
	"social-report/internal/utils"
)

// environment is what a command needs to run. Tests build one directly.
type environment struct {
	cfg     *config.Config
	logger  *logrus.Logger
	reports *reporting.Service
	monitor *monitoring.Monitor
	mailer  mailer.Sender
	out     io.Writer
	closers []func() error
}

func (e *environment) Close() {
	for _, c := range e.closers {
		if err := c(); err != nil {
			e.logger.Warnf("Failed to close resource: %v", err)
		}
	}
}

type envOptions struct {
	exporter bool
	mailer   bool
}

func newEnvironment(ctx context.Context, globals *GlobalFlags, opts envOptions) (*environment, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, err
	}
	if globals.Verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := utils.SetupLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logger: %w", err)
	}

	clients, err := config.LoadClients(cfg.Data.ClientsFile)
	if err != nil {
		return nil, err
	}

	env := &environment{
		cfg:     cfg,
		logger:  logger,
		monitor: monitoring.NewMonitor(logger, cfg.Monitoring.MetricsFile),
		out:     os.Stdout,
	}

	sources := reporting.FileSources(cfg.Data.Dir)
	if cfg.Database.Enabled {
		db, err := database.NewConnection(ctx, &cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		env.closers = append(env.closers, db.Close)
		sources = reporting.SnapshotSources(db, cfg.Data.Dir)
	}

	var exporter export.Exporter
	if opts.exporter {
		if exporter, err = export.New(cfg.Export, logger); err != nil {
			env.Close()
			return nil, err
		}
	}

	env.reports, err = reporting.NewService(cfg.Report, reporting.Deps{
		Clients:  clients,
		Sources:  sources,
		Exporter: exporter,
		Monitor:  env.monitor,
		Logger:   logger,
	})
	if err != nil {
		env.Close()
		return nil, err
	}

	if opts.mailer {
		if env.mailer, err = mailer.New(cfg.Email, logger); err != nil {
			env.Close()
			return nil, err
		}
	}
	return env, nil
}

// resolve returns the injected environment or builds one from the globals.
func resolve(ctx context.Context, injected *environment, globals *GlobalFlags, opts envOptions) (*environment, func(), error) {
	if injected != nil {
		return injected, func() {}, nil
	}
	env, err := newEnvironment(ctx, globals, opts)
	if err != nil {
		return nil, nil, err
	}
	return env, env.Close, nil
}
