package heartbeat

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loykin/folio/internal/history"
	"github.com/loykin/folio/internal/metrics"
)

const (
	DefaultThreshold = 10 * time.Second
	DefaultInterval  = 2 * time.Second

	// shutdownSendTimeout bounds how long the shutdown event may delay exit.
	shutdownSendTimeout = 100 * time.Millisecond
)

// State of a Monitor. Terminated is final.
type State int32

const (
	Alive State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case Alive:
		return "alive"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Ticker is the part of time.Ticker the monitor needs; tests substitute a
// manual ticker to step time deterministically.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker { return realTicker{t: time.NewTicker(d)} }

// MonitorConfig configures a Monitor. Zero values take the defaults.
type MonitorConfig struct {
	Threshold time.Duration
	Interval  time.Duration
	Now       func() time.Time
	NewTicker func(time.Duration) Ticker
	// Exit ends the process. Defaults to os.Exit.
	Exit   func(code int)
	Sink   history.Sink
	Logger *slog.Logger
}

// Monitor polls a Registrar and ends the process once the client has been
// silent for longer than the threshold.
type Monitor struct {
	reg       *Registrar
	threshold time.Duration
	interval  time.Duration
	now       func() time.Time
	newTicker func(time.Duration) Ticker
	exit      func(int)
	sink      history.Sink
	logger    *slog.Logger

	state    atomic.Int32
	started  atomic.Bool
	quit     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewMonitor(reg *Registrar, cfg MonitorConfig) *Monitor {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = NewRealTicker
	}
	if cfg.Exit == nil {
		cfg.Exit = os.Exit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Monitor{
		reg:       reg,
		threshold: cfg.Threshold,
		interval:  cfg.Interval,
		now:       cfg.Now,
		newTicker: cfg.NewTicker,
		exit:      cfg.Exit,
		sink:      history.OrNop(cfg.Sink),
		logger:    cfg.Logger,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// State returns the current state.
func (m *Monitor) State() State { return State(m.state.Load()) }

// Start launches the polling loop in a goroutine.
func (m *Monitor) Start() error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("monitor already started")
	}
	go m.run()
	return nil
}

// Stop cancels the polling loop and waits for it to return.
// It does not change the state.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
	if m.started.Load() {
		<-m.done
	}
}

// Done is closed when the loop has returned.
func (m *Monitor) Done() <-chan struct{} { return m.done }

func (m *Monitor) run() {
	defer close(m.done)
	t := m.newTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-m.quit:
			return
		case <-t.C():
			if m.Check() {
				return
			}
		}
	}
}

// Check runs one poll. It reports true when the monitor terminated.
func (m *Monitor) Check() bool {
	if m.State() == Terminated {
		return true
	}
	now := m.now()
	idle := m.reg.Idle(now)
	metrics.SetIdleSeconds(idle.Seconds())
	if idle <= m.threshold {
		return false
	}
	if !m.state.CompareAndSwap(int32(Alive), int32(Terminated)) {
		return true
	}
	m.logger.Info("no heartbeat detected, shutting down", "idle", idle.Round(time.Millisecond), "threshold", m.threshold)

	e := history.NewEvent(history.EventShutdown, now)
	e.Detail = "idle " + idle.Round(time.Millisecond).String()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownSendTimeout)
	if err := m.sink.Send(ctx, e); err != nil {
		m.logger.Warn("history sink send failed", "event", e.Type, "error", err)
	}
	cancel()

	m.exit(0)
	return true
}
