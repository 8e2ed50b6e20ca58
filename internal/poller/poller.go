// Package poller drives the dashboard refresh cadence.
package poller

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/Dan9191/edge-dashboard/internal/metrics"
	"github.com/Dan9191/edge-dashboard/internal/models"
	"github.com/Dan9191/edge-dashboard/internal/repository"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultInterval is the refresh interval in seconds when none is stored.
const DefaultInterval = 10

type State string

const (
	StateRunning State = "running"
	StatePaused  State = "paused"
	StateManual  State = "manual"
)

// Refresher performs one refresh and handles its failure.
type Refresher interface {
	Refresh(ctx context.Context) error
	Escalate(ctx context.Context, cause error) string
}

// Options configures a Poller
type Options struct {
	Refresher   Refresher
	Prefs       repository.PreferenceStore
	Metrics     *metrics.Recorder
	Interval    int
	SkipOverlap bool
}

// Poller schedules refreshes on a cron entry. Pausing or switching the interval
// removes the current entry before a new one is added, so at most one entry
// exists at any time.
type Poller struct {
	refresher Refresher
	prefs     repository.PreferenceStore
	metrics   *metrics.Recorder
	log       *logrus.Logger
	cron      *cron.Cron
	job       cron.Job
	nowFn     func() time.Time

	mu       sync.Mutex
	ctx      context.Context
	entry    cron.EntryID
	interval int
	paused   bool
	started  bool
}

// NewPoller creates a stopped poller
func NewPoller(opts Options, log *logrus.Logger) *Poller {
	interval := opts.Interval
	if _, err := every(interval); err != nil {
		interval = DefaultInterval
	}
	prefs := opts.Prefs
	if prefs == nil {
		prefs = repository.NewMemoryStore()
	}
	p := &Poller{
		refresher: opts.Refresher,
		prefs:     prefs,
		metrics:   opts.Metrics,
		log:       log,
		cron:      cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		nowFn:     time.Now,
		ctx:       context.Background(),
		interval:  interval,
	}
	p.job = cron.FuncJob(p.tick)
	if opts.SkipOverlap {
		p.job = cron.NewChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))).Then(p.job)
	}
	return p
}

// Start restores the persisted interval and pause flag, refreshes once and
// begins scheduling. ctx is passed to every refresh.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return fmt.Errorf("poller already started")
	}
	p.started = true
	p.ctx = ctx
	if err := p.restore(ctx); err != nil {
		p.log.WithError(err).Warn("Failed to restore refresh preferences")
	}
	p.mu.Unlock()

	p.tick()

	p.mu.Lock()
	err := p.reschedule()
	p.mu.Unlock()
	if err != nil {
		return err
	}
	p.cron.Start()
	p.log.WithFields(logrus.Fields{"interval": p.Interval(), "state": p.State()}).Info("Poller started")
	return nil
}

// Stop removes the schedule and waits for running refreshes to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

// restore reads the stored preferences. Callers hold p.mu.
func (p *Poller) restore(ctx context.Context) error {
	raw, ok, err := p.prefs.Get(ctx, models.PrefRefreshInterval)
	if err != nil {
		return err
	}
	if ok {
		n, perr := strconv.Atoi(raw)
		if perr == nil {
			_, perr = every(n)
		}
		if perr != nil {
			p.log.WithField("stored", raw).Warn("Ignoring stored refresh interval")
			n = DefaultInterval
			if err := p.prefs.Set(ctx, models.PrefRefreshInterval, strconv.Itoa(n)); err != nil {
				return err
			}
		}
		p.interval = n
	} else if err := p.prefs.Set(ctx, models.PrefRefreshInterval, strconv.Itoa(p.interval)); err != nil {
		return err
	}

	raw, ok, err = p.prefs.Get(ctx, models.PrefRefreshPaused)
	if err != nil {
		return err
	}
	if ok {
		p.paused, _ = strconv.ParseBool(raw)
	}
	return nil
}

// reschedule replaces the cron entry to match the current state. Callers hold
// p.mu.
func (p *Poller) reschedule() error {
	if p.entry != 0 {
		p.cron.Remove(p.entry)
		p.entry = 0
	}
	if p.paused || p.interval == 0 {
		return nil
	}
	sched, err := every(p.interval)
	if err != nil {
		return err
	}
	p.entry = p.cron.Schedule(sched, p.job)
	return nil
}

// every parses the cron schedule for an interval in seconds. Zero means manual
// and yields a nil schedule.
func every(seconds int) (cron.Schedule, error) {
	if seconds < 0 {
		return nil, fmt.Errorf("invalid refresh interval %d", seconds)
	}
	if seconds == 0 {
		return nil, nil
	}
	sched, err := cron.ParseStandard(fmt.Sprintf("@every %ds", seconds))
	if err != nil {
		return nil, fmt.Errorf("invalid refresh interval %d: %w", seconds, err)
	}
	return sched, nil
}

func (p *Poller) tick() {
	p.mu.Lock()
	ctx := p.ctx
	p.mu.Unlock()
	p.run(ctx, "scheduled")
}

func (p *Poller) run(ctx context.Context, trigger string) error {
	entry := p.log.WithFields(logrus.Fields{
		"cycle":   uuid.NewString(),
		"trigger": trigger,
	})
	start := p.nowFn()
	err := p.refresher.Refresh(ctx)
	if err != nil {
		if p.metrics != nil {
			p.metrics.Failure()
		}
		target := p.refresher.Escalate(ctx, err)
		entry.WithError(err).WithField("reload", target).Warn("Refresh cycle failed")
		return err
	}
	if p.metrics != nil {
		p.metrics.Success(p.nowFn())
	}
	entry.WithField("duration", p.nowFn().Sub(start).String()).Debug("Refresh cycle finished")
	return nil
}

// RefreshNow runs one refresh immediately in any state.
func (p *Poller) RefreshNow(ctx context.Context) error {
	return p.run(ctx, "manual")
}

// Pause stops scheduled refreshes until Resume.
func (p *Poller) Pause(ctx context.Context) error {
	return p.setPaused(ctx, true)
}

// Resume restarts scheduled refreshes at the current interval.
func (p *Poller) Resume(ctx context.Context) error {
	return p.setPaused(ctx, false)
}

// TogglePause flips the paused flag and returns the new value.
func (p *Poller) TogglePause(ctx context.Context) (bool, error) {
	return p.updatePaused(ctx, func(paused bool) bool { return !paused })
}

func (p *Poller) setPaused(ctx context.Context, paused bool) error {
	_, err := p.updatePaused(ctx, func(bool) bool { return paused })
	return err
}

func (p *Poller) updatePaused(ctx context.Context, next func(bool) bool) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = next(p.paused)
	if err := p.prefs.Set(ctx, models.PrefRefreshPaused, strconv.FormatBool(p.paused)); err != nil {
		p.log.WithError(err).Warn("Failed to persist pause flag")
	}
	return p.paused, p.reschedule()
}

// SetInterval switches the cadence. Zero selects manual refresh. An interval
// cron cannot schedule is rejected before any state changes.
func (p *Poller) SetInterval(ctx context.Context, seconds int) error {
	if _, err := every(seconds); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.interval = seconds
	if err := p.prefs.Set(ctx, models.PrefRefreshInterval, strconv.Itoa(seconds)); err != nil {
		p.log.WithError(err).Warn("Failed to persist refresh interval")
	}
	return p.reschedule()
}

// Interval returns the interval in seconds
func (p *Poller) Interval() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// State reports Paused, Manual or Running.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state()
}

func (p *Poller) state() State {
	switch {
	case p.paused:
		return StatePaused
	case p.interval == 0:
		return StateManual
	default:
		return StateRunning
	}
}

// Status returns the state with a countdown to the next scheduled refresh.
func (p *Poller) Status() models.RefreshStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := models.RefreshStatus{State: string(p.state()), Interval: p.interval}
	switch {
	case p.interval == 0:
		st.Countdown = "Manual"
	case p.paused:
		st.Countdown = "Paused"
	default:
		remaining := p.interval
		if p.entry != 0 {
			if next := p.cron.Entry(p.entry).Next; !next.IsZero() {
				remaining = int(math.Ceil(next.Sub(p.nowFn()).Seconds()))
				if remaining < 0 {
					remaining = 0
				}
			}
		}
		st.Countdown = strconv.Itoa(remaining)
	}
	return st
}
