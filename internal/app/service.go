// Package app wires the glucose pipeline, chart, calculators and logbook
// into the service bound to the desktop UI
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/wailsapp/wails/v3/pkg/application"

	"github.com/mrcode/control-tray/internal/autostart"
	"github.com/mrcode/control-tray/internal/chart"
	"github.com/mrcode/control-tray/internal/dexcom"
	"github.com/mrcode/control-tray/internal/logbook"
	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/notifications"
	"github.com/mrcode/control-tray/internal/pipeline"
	"github.com/mrcode/control-tray/internal/series"
	"github.com/mrcode/control-tray/internal/tray"
	"github.com/mrcode/control-tray/internal/trend"
)

// Version is set at build time
var Version = "1.0.0"

// Events emitted to the frontend
const (
	EventGlucoseUpdate = "glucose:update"
	EventGlucoseError  = "glucose:error"
	EventSeriesUpdate  = "series:update"
	EventLogsUpdate    = "logs:update"
	EventSyncUpdate    = "sync:update"
)

// staleAfter marks a reading as outdated
const staleAfter = 15 * time.Minute

// Refresh interval bounds in seconds
const (
	minRefreshSeconds = 30
	maxRefreshSeconds = 600
)

var (
	errNotConfigured = errors.New("no glucose source configured")
	errNoLogbook     = errors.New("logbook unavailable")
	errNoSync        = errors.New("cloud sync not configured")
)

// TrayView shows the current reading in the system tray
type TrayView interface {
	Update(label string, icon []byte, tooltip string)
}

type launcher interface {
	Set(enabled bool) error
}

// ControlService owns all application state. Bound methods are safe to call
// concurrently; readers get copies.
type ControlService struct {
	settings *models.Settings
	logger   *slog.Logger
	notifier *notifications.Manager
	iconGen  *tray.IconGenerator

	now        func() time.Time
	save       func(*models.Settings) error
	sourcesFor func(*models.Settings, *slog.Logger) sources
	launcher   launcher

	mu           sync.RWMutex
	window       *chart.Window
	series       []models.Reading
	sourceErrors map[string]string
	lastStatus   *models.GlucoseStatus
	lastBucket   trend.Bucket
	runner       *pipeline.Runner
	logs         *logbook.Controller
	store        logbook.Store
	syncer       *logbook.Syncer
	db           io.Closer
	emit         func(name string, data any)
	trayView     TrayView

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	refresh chan struct{}
	reset   chan time.Duration
}

// NewControlService creates the service around settings
func NewControlService(settings *models.Settings, logger *slog.Logger) *ControlService {
	s := newControlService(settings, logger)
	if l, err := autostart.New(); err != nil {
		s.logger.Warn("autostart unavailable", "error", err)
	} else {
		s.launcher = l
	}
	return s
}

func newControlService(settings *models.Settings, logger *slog.Logger) *ControlService {
	if logger == nil {
		logger = slog.Default()
	}
	zoom := settings.Clone().ChartZoomHours
	if !chart.ValidZoom(zoom) {
		zoom = chart.DefaultZoomHours
	}

	return &ControlService{
		settings:   settings,
		logger:     logger.With("component", "service"),
		notifier:   notifications.NewManager(settings.Clone(), logger),
		iconGen:    tray.NewIconGenerator(),
		now:        time.Now,
		save:       func(s *models.Settings) error { return s.Save() },
		sourcesFor: buildSources,
		window:     chart.NewWindow(zoom),
		emit:       func(string, any) {},
		refresh:    make(chan struct{}, 1),
		reset:      make(chan time.Duration, 1),
	}
}

// SetApp routes events to the running application
func (s *ControlService) SetApp(app *application.App) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emit = func(name string, data any) {
		app.Event.Emit(name, data)
	}
}

// SetTray attaches the tray the current reading is shown in
func (s *ControlService) SetTray(view TrayView) {
	s.mu.Lock()
	s.trayView = view
	s.mu.Unlock()
	s.updateTray()
}

// ServiceStartup opens the logbook and starts the refresh loop
func (s *ControlService) ServiceStartup(ctx context.Context, _ application.ServiceOptions) error {
	return s.start(ctx)
}

// ServiceShutdown stops the refresh loop and closes the logbook
func (s *ControlService) ServiceShutdown() error {
	s.stop()
	return nil
}

func (s *ControlService) start(parent context.Context) error {
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	s.mu.Lock()
	s.ctx, s.cancel = ctx, cancel
	s.mu.Unlock()

	if err := s.openLogbook(ctx); err != nil {
		// The glucose display works without the logbook
		s.logger.Error("opening logbook", "error", err)
	}
	s.configure()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
	return nil
}

func (s *ControlService) stop() {
	s.mu.Lock()
	cancel := s.cancel
	runner := s.runner
	s.mu.Unlock()

	// Drop the cycle in flight before its context is cancelled
	if runner != nil {
		runner.Stop()
	}
	if cancel != nil {
		cancel()
	}

	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing logbook", "error", err)
		}
		s.db = nil
	}
}

// configure (re)builds the sources, runner and syncer from the settings
func (s *ControlService) configure() {
	src := s.sourcesFor(s.settings, s.logger)
	timeout := time.Duration(s.settings.Clone().FetchTimeoutSeconds) * time.Second

	runner := pipeline.NewRunner(pipeline.Options{
		Remote:   src.remote,
		Health:   src.health,
		Timeout:  timeout,
		Logger:   s.logger,
		OnLatest: s.applyLatest,
		OnSeries: s.applySeries,
	})

	s.mu.Lock()
	old := s.runner
	s.runner = runner
	s.syncer = nil
	if s.store != nil && src.pusher != nil {
		s.syncer = logbook.NewSyncer(s.store, src.pusher, s.logger, s.syncDone)
	}
	s.mu.Unlock()

	if old != nil {
		old.Stop()
	}
}

// serviceContext returns the context of the running service, nil before start
func (s *ControlService) serviceContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ctx
}

func (s *ControlService) loop(ctx context.Context) {
	s.startCycle(ctx)

	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.startCycle(ctx)
			s.autoSync(ctx)
		case <-s.refresh:
			s.startCycle(ctx)
		case d := <-s.reset:
			ticker.Reset(d)
		}
	}
}

// startCycle runs a fetch cycle in the background; a newer cycle supersedes it
func (s *ControlService) startCycle(ctx context.Context) {
	s.mu.RLock()
	runner := s.runner
	s.mu.RUnlock()
	if runner == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		runner.Run(ctx)
	}()
}

func (s *ControlService) interval() time.Duration {
	seconds := s.settings.Clone().RefreshInterval
	seconds = min(max(seconds, minRefreshSeconds), maxRefreshSeconds)
	return time.Duration(seconds) * time.Second
}

// applyLatest turns the live value into the displayed status. A failed fetch
// keeps the previous value on screen, marked stale, with a placeholder.
func (s *ControlService) applyLatest(u pipeline.LatestUpdate) {
	now := s.now()

	s.mu.Lock()
	var status *models.GlucoseStatus
	if u.Err != nil {
		status = &models.GlucoseStatus{}
		if s.lastStatus != nil {
			*status = *s.lastStatus
		}
		status.Error = placeholder(u.Err)
		markStale(status, now)
	} else {
		status = s.buildStatus(u.Latest, now)
		s.lastBucket = u.Latest.Trend
	}
	s.lastStatus = status
	emit := s.emit
	s.mu.Unlock()

	if u.Err != nil {
		emit(EventGlucoseError, status.Error)
	} else if err := s.notifier.CheckAndNotify(status); err != nil {
		s.logger.Warn("notification failed", "error", err)
	}

	s.updateTray()
	emit(EventGlucoseUpdate, *status)
}

// buildStatus must be called with s.mu held
func (s *ControlService) buildStatus(l *dexcom.Latest, now time.Time) *models.GlucoseStatus {
	at := l.Time
	if at.IsZero() {
		// The value is still shown when its timestamp could not be read
		at = now
	}

	status := &models.GlucoseStatus{
		Value:      l.Value,
		Trend:      l.Trend.Arrow(),
		TrendLabel: l.Trend.String(),
		Rate:       l.Rate,
		HasTrend:   l.HasTrend(),
		Time:       at,
		Status:     s.settings.GetGlucoseStatus(l.Value),
	}
	if l.TrendErr != nil {
		status.TrendError = l.TrendErr.Error()
	}
	markStale(status, now)
	return status
}

func markStale(status *models.GlucoseStatus, now time.Time) {
	if status.Time.IsZero() {
		return
	}
	age := now.Sub(status.Time)
	status.StaleMinutes = max(0, int(age.Minutes()))
	status.IsStale = age > staleAfter
}

// applySeries stores the merged series. When every source failed the
// previous series stays displayed.
func (s *ControlService) applySeries(u pipeline.SeriesUpdate) {
	s.mu.Lock()
	if !u.Failed() {
		s.series = u.Series
	}
	s.sourceErrors = u.Errors()
	s.iconGen.SetHistory(series.Sparkline(s.series, tray.HistorySize))
	data := s.chartDataLocked()
	emit := s.emit
	s.mu.Unlock()

	s.logger.Debug("series updated",
		"remote", u.Remote, "health", u.Health, "failed", u.Failed())
	s.updateTray()
	emit(EventSeriesUpdate, data)
}

func (s *ControlService) updateTray() {
	s.mu.RLock()
	view := s.trayView
	var status *models.GlucoseStatus
	if s.lastStatus != nil {
		copied := *s.lastStatus
		status = &copied
	}
	bucket := s.lastBucket
	s.mu.RUnlock()

	if view == nil {
		return
	}
	view.Update(tray.Label(status), s.iconGen.GenerateIcon(status, bucket), s.iconGen.Tooltip(status))
}

// placeholder is the text shown instead of a value after a failed fetch
func placeholder(err error) string {
	var (
		authErr  *dexcom.AuthError
		fetchErr *dexcom.FetchError
		timeErr  *dexcom.TimeParseError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "Timed out"
	case errors.As(err, &authErr):
		return "Login failed"
	case errors.As(err, &timeErr):
		return fmt.Sprintf("Bad timestamp %q", timeErr.Value)
	case errors.As(err, &fetchErr):
		return "No data"
	default:
		return "Error"
	}
}
