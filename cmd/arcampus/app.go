package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/arcampus/arcampus/internal/catalog"
	"github.com/arcampus/arcampus/internal/config"
	"github.com/arcampus/arcampus/internal/database"
	"github.com/arcampus/arcampus/internal/detection"
	"github.com/arcampus/arcampus/internal/dispatcher"
	"github.com/arcampus/arcampus/internal/history"
	"github.com/arcampus/arcampus/internal/influx"
	"github.com/arcampus/arcampus/internal/logging"
	"github.com/arcampus/arcampus/internal/monitor"
	intOtel "github.com/arcampus/arcampus/internal/otel"
	"github.com/arcampus/arcampus/internal/session"
	"github.com/arcampus/arcampus/internal/sink"
	"github.com/arcampus/arcampus/internal/storage"
	"github.com/arcampus/arcampus/internal/tracking/sim"
	"github.com/arcampus/arcampus/pkg/core"

	"github.com/google/uuid"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const appName = "arcampus"

var shutdownTimeout = 5 * time.Second

// app holds every service of one run, wired the same way for the
// interactive and the headless commands.
type app struct {
	start time.Time

	logFile *os.File
	slogMgr *logging.SlogManager
	logger  *slog.Logger
	otel    *intOtel.Provider

	catalog    *catalog.Catalog
	runtime    *sim.Runtime
	session    *session.Controller
	dispatcher *dispatcher.Dispatcher
	history    *history.Log
	controller *detection.Controller
	// headless is the UI when none was given
	headless *sink.Logged

	db      *database.Manager
	journal storage.Backend
	influx  *influx.Manager
	monitor *monitor.Service

	sessionInfo *core.SessionInfo
}

type appOptions struct {
	ConfigDir string
	// UI and Renderer default to a logging sink.
	UI       sink.UI
	Renderer sink.Renderer
	// Monitor starts the periodic status publisher.
	Monitor bool
}

// newApp loads config and builds all services. The session is not started.
func newApp(opts appOptions) (_ *app, err error) {
	if err := config.Load(opts.ConfigDir); err != nil {
		return nil, err
	}

	a := &app{start: time.Now(), slogMgr: logging.NewSlogManager()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if err := a.setupLogging(); err != nil {
		return nil, err
	}
	if used := config.FileUsed(); used != "" {
		a.logger.Info("Loaded config", "path", used)
	} else {
		a.logger.Warn("No config file found, using defaults", "dir", opts.ConfigDir)
	}

	a.catalog, err = catalog.Load(config.GetString("catalog.path"))
	if err != nil {
		return nil, err
	}

	a.history = history.NewLog(nil)
	a.runtime = sim.New(a.slogMgr.Component("tracking"))
	a.session, err = session.New(a.runtime, a.catalog.ReferenceImages(), a.slogMgr.Component("session"))
	if err != nil {
		return nil, err
	}

	a.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	zl := logging.NewZerolog(a.logFile, config.GetString("logLevel"), "storage")
	a.db = database.NewManager(config.GetDBConfig(), zl)
	a.journal, err = storage.NewBackend(config.GetStorageConfig(), a.db, zl)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := a.journal.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}

	a.sessionInfo = &core.SessionInfo{
		ID:        uuid.Must(uuid.NewV7()).String(),
		StartedAt: a.start,
	}
	for _, img := range a.catalog.ReferenceImages() {
		a.sessionInfo.ReferenceImages = append(a.sessionInfo.ReferenceImages, img.ID)
	}
	if err := a.journal.StartSession(a.sessionInfo); err != nil {
		return nil, fmt.Errorf("failed to start journal session: %w", err)
	}

	if opts.UI == nil || opts.Renderer == nil {
		a.headless = sink.NewLogged(a.slogMgr.Component("ui"))
		if opts.UI == nil {
			opts.UI = a.headless
		}
		if opts.Renderer == nil {
			opts.Renderer = a.headless
		}
	}

	deps := detection.Dependencies{
		Resolver:        a.catalog,
		History:         a.history,
		Session:         a.session,
		Dispatcher:      a.dispatcher,
		Renderer:        opts.Renderer,
		UI:              opts.UI,
		Journal:         a.journal,
		Logger:          a.slogMgr.Component("detection"),
		RecordUnmatched: config.GetBool("history.recordUnmatched"),
		LogEvents:       config.GetBool("dispatcher.logged"),
	}
	a.setupInflux()
	if a.influx != nil {
		deps.Metrics = a.influx
	}
	a.controller, err = detection.New(deps)
	if err != nil {
		return nil, err
	}
	a.runtime.SetDelegate(a.controller)

	if opts.Monitor {
		a.setupMonitor()
	}

	a.logger.Info("Services initialized",
		"session", a.sessionInfo.ID,
		"landmarks", len(a.catalog.Entries()),
		"referenceImages", len(a.sessionInfo.ReferenceImages),
	)
	return a, nil
}

func (a *app) setupLogging() error {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	path := logging.LogFilePath(logsDir, appName, a.start)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	a.logFile = f

	otelCfg := config.GetOTelConfig()
	var provider *sdklog.LoggerProvider
	if otelCfg.Enabled {
		a.otel, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    f,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			// logging still works without OTel
			fmt.Fprintf(f, "failed to initialize OTel provider: %v\n", err)
			a.otel = nil
		} else {
			provider = a.otel.LoggerProvider()
		}
	}

	// session fields are filled in once the services exist
	a.slogMgr.SetSession(func() (string, int, bool) {
		if a.session == nil || a.history == nil {
			return "", 0, false
		}
		return a.session.State().String(), a.history.Len(), true
	})
	a.slogMgr.Setup(f, config.GetString("logLevel"), provider)
	a.logger = a.slogMgr.Logger()
	a.logger.Info("Logging to file", "path", path)
	return nil
}

func (a *app) setupInflux() {
	cfg := config.GetInfluxConfig()
	if !cfg.Enabled {
		return
	}
	backup := filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("%s_influx_%s.lp.gz", appName, a.start.Format("20060102_150405")))
	m := influx.NewManager(cfg, logging.NewZerolog(a.logFile, config.GetString("logLevel"), "influx"), backup)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Connect(ctx); err != nil {
		a.logger.Error("Failed to set up InfluxDB, metrics disabled", "error", err)
		return
	}
	a.influx = m
}

func (a *app) setupMonitor() {
	deps := monitor.Dependencies{
		Logger:     a.slogMgr.Component("monitor"),
		Snapshot:   a.status,
		StatusFile: filepath.Join(config.GetString("logsDir"), appName+".status.txt"),
		Interval:   config.GetDuration("monitor.interval"),
	}
	if a.influx != nil {
		deps.Writer = a.influx
	}
	a.monitor = monitor.NewService(deps)
}

func (a *app) status() monitor.Status {
	st := monitor.Status{
		SessionState: a.session.State().String(),
		Interrupted:  a.session.Interrupted(),
		HistoryLen:   a.history.Len(),
		LanePending:  a.dispatcher.Pending(),
	}
	if err := a.session.LastError(); err != nil {
		st.LastError = err.Error()
	}
	return st
}

// begin starts the monitor and the AR session.
func (a *app) begin() error {
	if a.monitor != nil {
		if err := a.monitor.Start(); err != nil {
			a.logger.Error("Failed to start status monitor", "error", err)
		}
	}
	return a.controller.Start()
}

// shutdown delivers outstanding callbacks, drains the lane and closes the
// journal and exporters.
func (a *app) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if a.runtime != nil {
		a.runtime.Close()
	}
	if a.controller != nil {
		if err := a.controller.Drain(ctx); err != nil {
			errs = append(errs, fmt.Errorf("draining update lane: %w", err))
		}
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.journal != nil && a.sessionInfo != nil {
		if err := a.journal.EndSession(); err != nil {
			errs = append(errs, fmt.Errorf("ending journal session: %w", err))
		}
		if exp, ok := a.journal.(storage.Exportable); ok && exp.ExportedFilePath() != "" {
			a.logger.Info("Journal exported", "path", exp.ExportedFilePath())
		}
	}
	if a.logger != nil {
		a.logger.Info("Shutting down", "detections", a.history.Len(), "uptime", time.Since(a.start).Round(time.Second))
	}
	errs = append(errs, a.close())
	return errors.Join(errs...)
}

// close releases resources without draining; safe on a partially built app.
func (a *app) close() error {
	var errs []error
	if a.runtime != nil {
		a.runtime.Close()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
		a.journal = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.influx != nil {
		errs = append(errs, a.influx.Close())
		a.influx = nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	errs = append(errs, a.slogMgr.Flush(ctx))
	if a.otel != nil {
		errs = append(errs, a.otel.Shutdown(ctx))
		a.otel = nil
	}
	if a.logFile != nil {
		errs = append(errs, a.logFile.Close())
		a.logFile = nil
	}
	return errors.Join(errs...)
}
