package logbook

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/mrcode/control-tray/internal/calc"
	"github.com/mrcode/control-tray/internal/models"
)

// Controller is the logbook used by the UI. It remembers the last list it
// returned so entries can be deleted by their offset in that list, and
// notifies subscribers whenever the stored entries change.
type Controller struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	listed []models.Log
	subs   map[int]chan struct{}
	nextID int
}

// NewController creates a controller over store
func NewController(store Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  store,
		logger: logger.With("component", "logbook"),
		now:    time.Now,
		subs:   make(map[int]chan struct{}),
	}
}

// NewForm returns the defaults for a fresh entry
func (c *Controller) NewForm() models.LogForm {
	return models.DefaultLogForm(c.now())
}

// Create validates the form and stores a new entry
func (c *Controller) Create(ctx context.Context, form models.LogForm) (models.Log, error) {
	log, err := fromForm(form, c.now())
	if err != nil {
		return models.Log{}, err
	}
	if err := c.store.Create(ctx, log); err != nil {
		return models.Log{}, err
	}

	c.logger.Info("log created", "id", log.ID)
	c.notify()
	return log, nil
}

// Update replaces the entry id with the form values
func (c *Controller) Update(ctx context.Context, id string, form models.LogForm) (models.Log, error) {
	log, err := fromForm(form, c.now())
	if err != nil {
		return models.Log{}, err
	}
	log.ID = id

	if err := c.store.Update(ctx, log); err != nil {
		return models.Log{}, err
	}

	c.notify()
	return log, nil
}

// Recent returns the newest entries and remembers them for DeleteAt
func (c *Controller) Recent(ctx context.Context) ([]models.Log, error) {
	logs, err := c.store.Recent(ctx, DefaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("fetching logs: %w", err)
	}

	c.mu.Lock()
	c.listed = logs
	c.mu.Unlock()

	return slices.Clone(logs), nil
}

// DeleteAt removes the entries at the given offsets of the last Recent list
func (c *Controller) DeleteAt(ctx context.Context, offsets []int) error {
	c.mu.Lock()
	ids := make([]string, 0, len(offsets))
	for _, off := range offsets {
		if off < 0 || off >= len(c.listed) {
			c.mu.Unlock()
			return fmt.Errorf("offset %d out of range (%d entries)", off, len(c.listed))
		}
		ids = append(ids, c.listed[off].ID)
	}
	c.mu.Unlock()

	slices.Sort(ids)
	ids = slices.Compact(ids)

	if err := c.store.Delete(ctx, ids...); err != nil {
		return err
	}

	c.logger.Info("logs deleted", "count", len(ids))
	c.notify()
	return nil
}

// Subscribe returns a channel that receives a signal after every change,
// and a function that cancels the subscription. Signals are coalesced.
func (c *Controller) Subscribe() (<-chan struct{}, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan struct{}, 1)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

// Changed signals subscribers about a change made outside the controller,
// such as a completed sync
func (c *Controller) Changed() {
	c.notify()
}

func (c *Controller) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// fromForm validates form. An unset start becomes now.
func fromForm(form models.LogForm, now time.Time) (models.Log, error) {
	bg, err := calc.Parse(form.BG)
	if err != nil {
		return models.Log{}, fmt.Errorf("bg: %w", err)
	}
	bolus, err := calc.Parse(form.Bolus)
	if err != nil {
		return models.Log{}, fmt.Errorf("bolus: %w", err)
	}
	netCarbs, err := calc.Parse(form.NetCarbs)
	if err != nil {
		return models.Log{}, fmt.Errorf("net carbs: %w", err)
	}
	if bg.IsNegative() || bolus.IsNegative() || netCarbs.IsNegative() {
		return models.Log{}, fmt.Errorf("%w: negative value", calc.ErrInvalidNumber)
	}

	start := form.Start
	if start.IsZero() {
		start = now
	}

	return models.NewLog(start, form.Notes, bg, bolus, netCarbs), nil
}
