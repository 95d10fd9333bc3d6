package connectivity

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var errUnreachable = errors.New("dial tcp: network is unreachable")

func newTestTracker(opts ...Option) *Tracker {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return NewTracker(logger, opts...)
}

func TestTracker_StartsOnline(t *testing.T) {
	tracker := newTestTracker()

	state := tracker.State()
	if !state.Online || state.ConsecutiveFailures != 0 {
		t.Errorf("initial state = %+v, want online with no failures", state)
	}
}

func TestTracker_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		threshold  int
		outcomes   []bool // true = success
		wantOnline bool
		wantFails  int
		wantFired  int
	}{
		{
			name:       "single failure goes offline by default",
			outcomes:   []bool{false},
			wantOnline: false,
			wantFails:  1,
		},
		{
			name:       "success after failure restores",
			outcomes:   []bool{false, true},
			wantOnline: true,
			wantFired:  1,
		},
		{
			name:       "successes while online fire nothing",
			outcomes:   []bool{true, true, true},
			wantOnline: true,
		},
		{
			name:       "repeated outages fire once per restoration",
			outcomes:   []bool{false, false, true, true, false, true},
			wantOnline: true,
			wantFired:  2,
		},
		{
			name:       "below threshold stays online",
			threshold:  3,
			outcomes:   []bool{false, false},
			wantOnline: true,
			wantFails:  2,
		},
		{
			name:       "threshold reached goes offline",
			threshold:  3,
			outcomes:   []bool{false, false, false},
			wantOnline: false,
			wantFails:  3,
		},
		{
			name:       "success below threshold is not a restoration",
			threshold:  3,
			outcomes:   []bool{false, false, true},
			wantOnline: true,
			wantFired:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(WithOfflineThreshold(tt.threshold))
			var fired int32
			tracker.OnRestore(func() { atomic.AddInt32(&fired, 1) })

			for _, ok := range tt.outcomes {
				if ok {
					tracker.NetworkSucceeded()
				} else {
					tracker.NetworkFailed(errUnreachable)
				}
			}

			state := tracker.State()
			if state.Online != tt.wantOnline {
				t.Errorf("Online = %v, want %v", state.Online, tt.wantOnline)
			}
			if state.ConsecutiveFailures != tt.wantFails {
				t.Errorf("ConsecutiveFailures = %d, want %d", state.ConsecutiveFailures, tt.wantFails)
			}
			if int(fired) != tt.wantFired {
				t.Errorf("restore callbacks fired %d times, want %d", fired, tt.wantFired)
			}
		})
	}
}

func TestTracker_RecordsErrorAndTimes(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tracker := newTestTracker(WithClock(func() time.Time { return now }))

	now = now.Add(time.Minute)
	tracker.NetworkFailed(errUnreachable)

	state := tracker.State()
	if state.LastError != errUnreachable.Error() {
		t.Errorf("LastError = %q", state.LastError)
	}
	if !state.LastChange.Equal(now) || !state.LastUpdate.Equal(now) {
		t.Errorf("LastChange = %v LastUpdate = %v, want %v", state.LastChange, state.LastUpdate, now)
	}

	now = now.Add(time.Minute)
	tracker.NetworkSucceeded()
	state = tracker.State()
	if state.LastError != "" {
		t.Errorf("LastError = %q after success, want cleared", state.LastError)
	}
	if !state.LastChange.Equal(now) {
		t.Errorf("LastChange = %v, want %v", state.LastChange, now)
	}
}

func TestTracker_MultipleCallbacks(t *testing.T) {
	tracker := newTestTracker()
	var order []string
	tracker.OnRestore(func() { order = append(order, "sync") })
	tracker.OnRestore(func() { order = append(order, "notify") })

	tracker.NetworkFailed(errUnreachable)
	tracker.NetworkSucceeded()

	if len(order) != 2 || order[0] != "sync" || order[1] != "notify" {
		t.Errorf("callback order = %v, want [sync notify]", order)
	}
}

func TestTracker_StartProbe(t *testing.T) {
	tracker := newTestTracker()
	restored := make(chan struct{})
	tracker.OnRestore(func() { close(restored) })

	var probes int32
	probe := func(ctx context.Context) error {
		if atomic.AddInt32(&probes, 1) < 3 {
			return errUnreachable
		}
		return nil
	}

	tracker.NetworkFailed(errUnreachable)

	ctx, cancel := context.WithCancel(context.Background())
	done := tracker.StartProbe(ctx, 5*time.Millisecond, probe)

	select {
	case <-restored:
	case <-time.After(2 * time.Second):
		t.Fatal("probe never restored connectivity")
	}

	cancel()
	<-done

	if !tracker.Online() {
		t.Error("tracker offline after successful probe")
	}
	if got := atomic.LoadInt32(&probes); got < 3 {
		t.Errorf("probes = %d, want >= 3", got)
	}
}

func TestTracker_ProbeIdleWhileOnline(t *testing.T) {
	tracker := newTestTracker()
	var probes int32

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	<-tracker.StartProbe(ctx, time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&probes, 1)
		return nil
	})

	if probes != 0 {
		t.Errorf("probes = %d while online, want 0", probes)
	}
}
