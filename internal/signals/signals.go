// Package signals turns OS signals into run control.
//
// A [Monitor] listens for two classes of signals on its own goroutine:
// terminate signals (SIGINT, SIGTERM) kill the run, and status signals
// (SIGUSR1 where the platform has it) request an interim report. Handling
// never blocks the dispatcher or the workers; the signal channel is buffered
// and callbacks run on the monitor goroutine.
package signals

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
)

// signalBuffer is the capacity of the subscription channel.
const signalBuffer = 4

// NotifyFunc subscribes c to sigs. signal.Notify by default.
type NotifyFunc func(c chan<- os.Signal, sigs ...os.Signal)

// StopFunc undoes a NotifyFunc subscription. signal.Stop by default.
type StopFunc func(c chan<- os.Signal)

// Monitor dispatches terminate and status signals to callbacks.
type Monitor struct {
	onTerminate func()
	onStatus    func()

	terminate []os.Signal
	status    []os.Signal

	notify NotifyFunc
	unsub  StopFunc
	logger *slog.Logger

	ch   chan os.Signal
	quit chan struct{}
	done chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// Option configures a [Monitor].
type Option func(*Monitor)

// WithLogger sets the logger for signal events.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotify replaces signal.Notify and signal.Stop. Tests use it to feed
// signals into the monitor without touching the process.
func WithNotify(notify NotifyFunc, stop StopFunc) Option {
	return func(m *Monitor) {
		if notify != nil {
			m.notify = notify
		}
		if stop != nil {
			m.unsub = stop
		}
	}
}

// WithTerminateSignals overrides the signals that kill the run.
func WithTerminateSignals(sigs ...os.Signal) Option {
	return func(m *Monitor) {
		m.terminate = sigs
	}
}

// WithStatusSignals overrides the signals that request an interim report.
func WithStatusSignals(sigs ...os.Signal) Option {
	return func(m *Monitor) {
		m.status = sigs
	}
}

// NewMonitor creates a [Monitor]. onTerminate is called for every terminate
// signal and must be idempotent; onStatus is called for every status signal.
// Either may be nil.
func NewMonitor(onTerminate, onStatus func(), opts ...Option) *Monitor {
	m := &Monitor{
		onTerminate: onTerminate,
		onStatus:    onStatus,
		terminate:   DefaultTerminateSignals(),
		status:      DefaultStatusSignals(),
		notify:      signal.Notify,
		unsub:       signal.Stop,
		logger:      slog.Default(),
		ch:          make(chan os.Signal, signalBuffer),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start subscribes to the configured signals and begins handling them in a
// background goroutine. It returns immediately. The monitor runs until ctx
// is cancelled or [Monitor.Stop] is called. Later calls are no-ops.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true

	sigs := slices.Concat(m.terminate, m.status)
	if len(sigs) > 0 {
		m.notify(m.ch, sigs...)
	}

	go m.loop(ctx)
}

// Stop unsubscribes and waits for the monitor goroutine to exit.
// Safe to call multiple times and before Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	started := m.started
	m.mu.Unlock()

	if !started {
		return
	}
	m.unsub(m.ch)
	close(m.quit)
	<-m.done
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.quit:
			return
		case sig := <-m.ch:
			m.handle(sig)
		}
	}
}

func (m *Monitor) handle(sig os.Signal) {
	switch {
	case slices.Contains(m.terminate, sig):
		m.logger.Warn("terminate signal received, stopping run", "signal", sig.String())
		if m.onTerminate != nil {
			m.onTerminate()
		}
	case slices.Contains(m.status, sig):
		m.logger.Debug("status signal received", "signal", sig.String())
		if m.onStatus != nil {
			m.onStatus()
		}
	default:
		m.logger.Debug("ignoring signal", "signal", sig.String())
	}
}
