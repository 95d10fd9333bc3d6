package lifecycle

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/flix-app/flix-cache/pkg/partition"
)

func newTestController(t *testing.T, autoSkip bool) (*Controller, *partition.MemoryStore) {
	t.Helper()
	srv, _ := newOrigin(t)
	store := partition.NewMemoryStore()
	store.Open(context.Background(), "static-v0")
	store.Open(context.Background(), "images-v0")

	ctrl := NewController(ControllerConfig{
		Store:           store,
		Fetcher:         srv.Client(),
		Origin:          srv.URL,
		Version:         "1",
		AutoSkipWaiting: autoSkip,
		Logger:          &quiet,
	})
	return ctrl, store
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateParsed, "parsed"},
		{StateInstalling, "installing"},
		{StateInstalled, "installed"},
		{StateActivating, "activating"},
		{StateActivated, "activated"},
		{State(42), "state(42)"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestController_InstallWaitsForActivation(t *testing.T) {
	ctx := context.Background()
	ctrl, store := newTestController(t, false)

	if ctrl.State() != StateParsed {
		t.Fatalf("initial state = %v", ctrl.State())
	}
	if _, err := ctrl.Install(ctx); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if ctrl.State() != StateInstalled {
		t.Errorf("state after install = %v, want installed", ctrl.State())
	}
	if ctrl.Claimed() {
		t.Error("Claimed() = true before activation")
	}

	// old partitions survive until activation
	names, _ := store.Names(ctx)
	if !reflect.DeepEqual(names, []string{"images-v0", "static-v0", "static-v1"}) {
		t.Errorf("partitions = %v", names)
	}

	deleted, err := ctrl.ClientsReleased(ctx)
	if err != nil {
		t.Fatalf("ClientsReleased() error = %v", err)
	}
	if !reflect.DeepEqual(deleted, []string{"images-v0", "static-v0"}) {
		t.Errorf("deleted = %v", deleted)
	}
	if ctrl.State() != StateActivated || !ctrl.Claimed() {
		t.Errorf("state = %v claimed = %v, want activated and claimed", ctrl.State(), ctrl.Claimed())
	}
}

func TestController_SkipWaiting(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newTestController(t, false)

	if _, err := ctrl.Install(ctx); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	deleted, err := ctrl.SkipWaiting(ctx)
	if err != nil {
		t.Fatalf("SkipWaiting() error = %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("deleted = %v, want 2 partitions", deleted)
	}
	if ctrl.State() != StateActivated {
		t.Errorf("state = %v, want activated", ctrl.State())
	}

	// repeated activation is a no-op
	deleted, err = ctrl.Activate(ctx)
	if err != nil || deleted != nil {
		t.Errorf("second Activate() = %v, %v; want nil, nil", deleted, err)
	}
}

func TestController_SkipWaitingBeforeInstall(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newTestController(t, false)

	if _, err := ctrl.SkipWaiting(ctx); err != nil {
		t.Fatalf("SkipWaiting() error = %v", err)
	}
	if ctrl.State() != StateParsed {
		t.Errorf("state = %v, want parsed", ctrl.State())
	}

	if _, err := ctrl.Install(ctx); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if ctrl.State() != StateActivated {
		t.Errorf("state = %v, want activated after recorded skip", ctrl.State())
	}
}

func TestController_AutoSkipWaiting(t *testing.T) {
	ctx := context.Background()
	ctrl, store := newTestController(t, true)

	if _, err := ctrl.Install(ctx); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if ctrl.State() != StateActivated {
		t.Errorf("state = %v, want activated", ctrl.State())
	}

	names, _ := store.Names(ctx)
	if !reflect.DeepEqual(names, []string{"static-v1"}) {
		t.Errorf("partitions = %v, want [static-v1]", names)
	}
}

func TestController_ActivateBeforeInstall(t *testing.T) {
	ctrl, _ := newTestController(t, false)

	if _, err := ctrl.Activate(context.Background()); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Activate() error = %v, want ErrNotInstalled", err)
	}
	if deleted, err := ctrl.ClientsReleased(context.Background()); err != nil || deleted != nil {
		t.Errorf("ClientsReleased() = %v, %v; want nil, nil", deleted, err)
	}
}

func TestController_InstallTwice(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newTestController(t, false)

	if _, err := ctrl.Install(ctx); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if _, err := ctrl.Install(ctx); !errors.Is(err, ErrAlreadyInstalled) {
		t.Errorf("second Install() error = %v, want ErrAlreadyInstalled", err)
	}
}

func TestNewController_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewController should panic with nil store")
		}
	}()
	NewController(ControllerConfig{Version: "1"})
}
