package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

type State string

const (
	Stopped  State = "stopped"
	Idle     State = "idle"
	Sweeping State = "sweeping"
)

// Scheduler runs tickFn once per interval on a single goroutine, so ticks
// never overlap. A panicking tick is logged and the loop keeps going.
type Scheduler struct {
	interval time.Duration
	tickFn   func(context.Context)

	immediate bool
	ready     <-chan struct{}

	running  atomic.Bool
	sweeping atomic.Bool
	ticks    atomic.Int64
	lastTick atomic.Int64 // unix nanos

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Scheduler)

// WithReady delays the first tick until ready is closed.
func WithReady(ready <-chan struct{}) Option {
	return func(s *Scheduler) { s.ready = ready }
}

// WithImmediateTick controls whether a tick runs as soon as the loop starts
// instead of after the first interval. Enabled by default.
func WithImmediateTick(on bool) Option {
	return func(s *Scheduler) { s.immediate = on }
}

func New(interval time.Duration, tickFn func(context.Context), opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if tickFn == nil {
		return nil, errors.New("tickFn must not be nil")
	}
	s := &Scheduler{
		interval:  interval,
		tickFn:    tickFn,
		immediate: true,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running.Store(true)

	go s.loop(ctx)

	return true
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	if s.ready != nil {
		select {
		case <-ctx.Done():
			return
		case <-s.ready:
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("scheduler started", "interval", s.interval.String())

	if s.immediate {
		s.safeTick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopping")
			return
		case <-ticker.C:
			s.safeTick(ctx)
		}
	}
}

// Stop cancels the loop and waits for an in-flight tick to return.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	slog.Info("scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

func (s *Scheduler) State() State {
	switch {
	case !s.running.Load():
		return Stopped
	case s.sweeping.Load():
		return Sweeping
	default:
		return Idle
	}
}

type Status struct {
	Running  bool      `json:"running"`
	State    State     `json:"state"`
	Interval string    `json:"interval"`
	Ticks    int64     `json:"ticks"`
	LastTick time.Time `json:"lastTick,omitempty"`
}

func (s *Scheduler) Status() Status {
	st := Status{
		Running:  s.running.Load(),
		State:    s.State(),
		Interval: s.interval.String(),
		Ticks:    s.ticks.Load(),
	}
	if ns := s.lastTick.Load(); ns != 0 {
		st.LastTick = time.Unix(0, ns).UTC()
	}
	return st
}

func (s *Scheduler) safeTick(ctx context.Context) {
	s.sweeping.Store(true)
	defer s.sweeping.Store(false)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler tick panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	s.ticks.Add(1)
	s.lastTick.Store(start.UnixNano())

	s.tickFn(ctx)
	slog.Info("scheduler tick completed", "duration_ms", time.Since(start).Milliseconds())
}
