// Package pipeline runs one glucose fetch cycle: the live value with its
// trend, and the merged remote + health history for the chart
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mrcode/control-tray/internal/dexcom"
	"github.com/mrcode/control-tray/internal/health"
	"github.com/mrcode/control-tray/internal/models"
	"github.com/mrcode/control-tray/internal/series"
)

// DefaultTimeout bounds a cycle when no timeout is configured
const DefaultTimeout = 30 * time.Second

// Source names used in error maps
const (
	SourceRemote = "remote"
	SourceHealth = "health"
)

// RemoteSource is the cloud share service
type RemoteSource interface {
	Latest(ctx context.Context) (*dexcom.Latest, error)
	History(ctx context.Context) ([]models.Reading, error)
}

// LatestUpdate carries the outcome of the live value fetch
type LatestUpdate struct {
	Generation uint64
	Latest     *dexcom.Latest
	Err        error
}

// SeriesUpdate carries the merged series of a cycle
type SeriesUpdate struct {
	Generation uint64
	Series     []models.Reading
	RemoteErr  error
	HealthErr  error
	Remote     int // Readings contributed by the share service
	Health     int // Readings contributed by the health store
}

// Failed reports whether no source produced data because every one failed
func (u SeriesUpdate) Failed() bool {
	return len(u.Series) == 0 && (u.RemoteErr != nil || u.HealthErr != nil)
}

// Errors returns the per-source error texts, nil when all succeeded
func (u SeriesUpdate) Errors() map[string]string {
	var errs map[string]string
	add := func(name string, err error) {
		if err == nil {
			return
		}
		if errs == nil {
			errs = make(map[string]string)
		}
		errs[name] = err.Error()
	}
	add(SourceRemote, u.RemoteErr)
	add(SourceHealth, u.HealthErr)
	return errs
}

// Runner executes fetch cycles. Starting a cycle cancels the one still in
// flight and results of superseded cycles are never delivered.
type Runner struct {
	remote  RemoteSource  // nil when no share account is configured
	health  health.Source // nil when no health source is configured
	timeout time.Duration
	logger  *slog.Logger

	onLatest func(LatestUpdate)
	onSeries func(SeriesUpdate)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc

	authMu     sync.Mutex
	authorized bool
}

// Options configures a Runner. The callbacks run while the runner is locked
// and must not call back into it.
type Options struct {
	Remote   RemoteSource
	Health   health.Source
	Timeout  time.Duration
	Logger   *slog.Logger
	OnLatest func(LatestUpdate)
	OnSeries func(SeriesUpdate)
}

// NewRunner creates a runner
func NewRunner(opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		remote:   opts.Remote,
		health:   opts.Health,
		timeout:  opts.Timeout,
		logger:   opts.Logger.With("component", "pipeline"),
		onLatest: opts.OnLatest,
		onSeries: opts.OnSeries,
	}
}

// Generation returns the number of the most recently started cycle
func (r *Runner) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// Run performs one cycle and blocks until it has finished. The live value is
// delivered as soon as it arrives; the series is merged and delivered only
// after both history fetches have completed, successfully or not.
func (r *Runner) Run(parent context.Context) {
	ctx, gen := r.begin(parent)
	defer r.finish(gen)

	logger := r.logger.With("generation", gen)
	logger.Debug("fetch cycle started")

	var cycle errgroup.Group

	if r.remote != nil {
		cycle.Go(func() error {
			latest, err := r.remote.Latest(ctx)
			if err != nil {
				logger.Warn("latest fetch failed", "error", err)
			}
			r.deliverLatest(LatestUpdate{Generation: gen, Latest: latest, Err: err})
			return nil
		})
	}

	cycle.Go(func() error {
		update := r.fetchHistory(ctx, logger)
		update.Generation = gen
		r.deliverSeries(update)
		return nil
	})

	_ = cycle.Wait()
	logger.Debug("fetch cycle finished")
}

// fetchHistory is the merge gate: both fetches run concurrently and the
// merge waits for both
func (r *Runner) fetchHistory(ctx context.Context, logger *slog.Logger) SeriesUpdate {
	var (
		gate             errgroup.Group
		remote, local    []models.Reading
		remoteErr, hlErr error
	)

	if r.remote != nil {
		gate.Go(func() error {
			remote, remoteErr = r.remote.History(ctx)
			return nil
		})
	}
	if r.health != nil {
		gate.Go(func() error {
			if hlErr = r.authorizeHealth(ctx); hlErr != nil {
				return nil
			}
			local, hlErr = r.health.FetchGlucoseData(ctx)
			return nil
		})
	}
	_ = gate.Wait()

	if remoteErr != nil {
		logger.Warn("remote history failed", "error", remoteErr)
		remote = nil
	}
	if hlErr != nil {
		logger.Warn("health history failed", "error", hlErr)
		local = nil
	}

	return SeriesUpdate{
		Series:    series.Merge(local, remote),
		RemoteErr: remoteErr,
		HealthErr: hlErr,
		Remote:    len(remote),
		Health:    len(local),
	}
}

// authorizeHealth asks the health source for read access until it is granted
func (r *Runner) authorizeHealth(ctx context.Context) error {
	r.authMu.Lock()
	defer r.authMu.Unlock()

	if r.authorized {
		return nil
	}
	granted, err := r.health.RequestAuthorization(ctx)
	if err != nil {
		return fmt.Errorf("requesting health authorization: %w", err)
	}
	if !granted {
		return health.ErrNotAuthorized
	}
	r.authorized = true
	return nil
}

func (r *Runner) begin(parent context.Context) (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
	}
	r.gen++

	ctx, cancel := context.WithTimeout(parent, r.timeout)
	r.cancel = cancel
	return ctx, r.gen
}

func (r *Runner) finish(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.gen == gen && r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Stop cancels the cycle in flight, if any. Results it still produces are
// dropped like those of a superseded cycle.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.gen++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// current reports whether gen is still the newest cycle. The lock is held
// by the caller through delivery so a newer cycle cannot interleave.
func (r *Runner) current(gen uint64) bool {
	return r.gen == gen
}

func (r *Runner) deliverLatest(update LatestUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.current(update.Generation) {
		r.logger.Debug("dropping stale latest", "generation", update.Generation, "current", r.gen)
		return
	}
	if r.onLatest != nil {
		r.onLatest(update)
	}
}

func (r *Runner) deliverSeries(update SeriesUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.current(update.Generation) {
		r.logger.Debug("dropping stale series", "generation", update.Generation, "current", r.gen)
		return
	}
	if r.onSeries != nil {
		r.onSeries(update)
	}
}
