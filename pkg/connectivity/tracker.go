package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for connectivity tracking.
var (
	connectivityOnline = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "flix_connectivity_online",
		Help: "1 when the network is considered reachable, 0 when offline",
	})

	connectivityTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flix_connectivity_transitions_total",
		Help: "Total online/offline transitions by target state",
	}, []string{"to"})

	connectivityProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flix_connectivity_probes_total",
		Help: "Total connectivity probes by result",
	}, []string{"result"})
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithOfflineThreshold sets how many consecutive failures mean offline.
func WithOfflineThreshold(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.threshold = n
		}
	}
}

// WithClock sets the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker records network outcomes and derives connectivity.
// It satisfies strategy.NetworkObserver.
type Tracker struct {
	mu        sync.Mutex
	state     State
	threshold int
	restore   []func()
	now       func() time.Time
	logger    zerolog.Logger
}

// NewTracker creates a tracker that starts online.
func NewTracker(logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		threshold: DefaultOfflineThreshold,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(t)
	}

	now := t.now()
	t.state = State{Online: true, LastChange: now, LastUpdate: now}
	connectivityOnline.Set(1)

	return t
}

// State returns a copy of the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Online reports whether the network is considered reachable.
func (t *Tracker) Online() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Online
}

// OnRestore registers fn to run on every offline → online transition.
// Callbacks run synchronously on the goroutine that recorded the success
// and must not block.
func (t *Tracker) OnRestore(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restore = append(t.restore, fn)
}

// NetworkSucceeded records a completed network round trip.
func (t *Tracker) NetworkSucceeded() {
	t.mu.Lock()
	now := t.now()
	wasOffline := !t.state.Online
	t.state.ConsecutiveFailures = 0
	t.state.LastError = ""
	t.state.LastUpdate = now

	var callbacks []func()
	if wasOffline {
		t.state.Online = true
		t.state.LastChange = now
		callbacks = append(callbacks, t.restore...)
	}
	t.mu.Unlock()

	if !wasOffline {
		return
	}

	connectivityOnline.Set(1)
	connectivityTransitionsTotal.WithLabelValues(stateLabel(true)).Inc()
	t.logger.Info().Int("callbacks", len(callbacks)).Msg("Connectivity restored")

	for _, fn := range callbacks {
		fn()
	}
}

// NetworkFailed records a network attempt that produced no response.
func (t *Tracker) NetworkFailed(err error) {
	t.mu.Lock()
	now := t.now()
	t.state.ConsecutiveFailures++
	t.state.LastUpdate = now
	if err != nil {
		t.state.LastError = err.Error()
	}

	wentOffline := t.state.Online && t.state.ConsecutiveFailures >= t.threshold
	if wentOffline {
		t.state.Online = false
		t.state.LastChange = now
	}
	failures := t.state.ConsecutiveFailures
	t.mu.Unlock()

	if !wentOffline {
		t.logger.Debug().Err(err).Int("consecutive_failures", failures).Msg("Network failure recorded")
		return
	}

	connectivityOnline.Set(0)
	connectivityTransitionsTotal.WithLabelValues(stateLabel(false)).Inc()
	t.logger.Warn().Err(err).Int("consecutive_failures", failures).Msg("Connectivity lost")
}

// StartProbe runs probe every interval while the tracker is offline and
// records its outcome, so restoration is noticed without user traffic.
// The returned channel closes when ctx is done.
func (t *Tracker) StartProbe(ctx context.Context, interval time.Duration, probe func(context.Context) error) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if t.Online() {
					continue
				}
				if err := probe(ctx); err != nil {
					connectivityProbesTotal.WithLabelValues("error").Inc()
					t.NetworkFailed(err)
					continue
				}
				connectivityProbesTotal.WithLabelValues("ok").Inc()
				t.NetworkSucceeded()
			}
		}
	}()

	return done
}
