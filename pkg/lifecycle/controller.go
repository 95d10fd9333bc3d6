package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/flix-app/flix-cache/pkg/partition"
	"github.com/rs/zerolog"
)

var (
	// ErrNotInstalled indicates activation was requested before install finished
	ErrNotInstalled = errors.New("version not installed")

	// ErrAlreadyInstalled indicates Install was called more than once
	ErrAlreadyInstalled = errors.New("version already installed")
)

// State is the lifecycle position of one deployed version.
type State int

const (
	StateParsed State = iota
	StateInstalling
	StateInstalled // waiting for activation
	StateActivating
	StateActivated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateParsed:
		return "parsed"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	Store   partition.Store
	Fetcher Fetcher
	Origin  string
	Version string

	// Manifest defaults to DefaultManifest.
	Manifest []string

	// AutoSkipWaiting activates immediately after install instead of
	// waiting for clients of the previous version to be released.
	AutoSkipWaiting bool

	Logger *zerolog.Logger
}

// Controller drives one version through install and activation.
//
// State machine:
//
//	parsed → installing → installed → activating → activated
//
// An installed version waits until SkipWaiting or ClientsReleased is called
// (or AutoSkipWaiting is set) before it activates.
type Controller struct {
	mu            sync.Mutex
	cfg           ControllerConfig
	names         Names
	state         State
	skipRequested bool
	claimed       bool
	logger        zerolog.Logger
}

// NewController creates a controller for cfg.Version.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.Store == nil {
		panic("partition store cannot be nil")
	}
	CurrentState.Set(float64(StateParsed))

	return &Controller{
		cfg:    cfg,
		names:  NamesFor(cfg.Version),
		state:  StateParsed,
		logger: componentLogger(cfg.Logger).With().Str("version", cfg.Version).Logger(),
	}
}

// Names returns the partition names of the controlled version.
func (c *Controller) Names() Names {
	return c.names
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Claimed reports whether the activated version has taken control of
// existing clients.
func (c *Controller) Claimed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.claimed
}

func (c *Controller) setState(s State) {
	c.state = s
	CurrentState.Set(float64(s))
	c.logger.Info().Str("state", s.String()).Msg("Lifecycle transition")
}

// Install pre-caches the manifest into the static partition.
// With AutoSkipWaiting, or when SkipWaiting was requested during install,
// activation follows immediately and its deleted partitions are logged.
func (c *Controller) Install(ctx context.Context) (InstallReport, error) {
	c.mu.Lock()
	if c.state != StateParsed {
		state := c.state
		c.mu.Unlock()
		return InstallReport{}, fmt.Errorf("%w (state %s)", ErrAlreadyInstalled, state)
	}
	c.setState(StateInstalling)
	if c.cfg.AutoSkipWaiting {
		c.skipRequested = true
	}
	c.mu.Unlock()

	report, err := Install(ctx, InstallParams{
		Store:    c.cfg.Store,
		Fetcher:  c.cfg.Fetcher,
		Origin:   c.cfg.Origin,
		Manifest: c.cfg.Manifest,
		Names:    c.names,
		Logger:   &c.logger,
	})
	if err != nil {
		// Pre-caching is best effort: the version still installs.
		c.logger.Warn().Err(err).Msg("Install finished without pre-cache")
	}

	c.mu.Lock()
	c.setState(StateInstalled)
	skip := c.skipRequested
	c.mu.Unlock()

	if skip {
		if _, aerr := c.activate(ctx); aerr != nil {
			return report, errors.Join(err, aerr)
		}
	}

	return report, err
}

// Activate removes partitions of other versions and marks this version active.
// Calling it on an already active version is a no-op.
func (c *Controller) Activate(ctx context.Context) ([]string, error) {
	return c.activate(ctx)
}

// SkipWaiting forces an installed version to activate now. When install is
// still running the request is remembered and honoured once it finishes.
func (c *Controller) SkipWaiting(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	c.skipRequested = true
	state := c.state
	c.mu.Unlock()

	if state != StateInstalled {
		c.logger.Debug().Str("state", state.String()).Msg("Skip waiting recorded")
		return nil, nil
	}
	return c.activate(ctx)
}

// ClientsReleased signals that no client still uses the previous version.
// A waiting version activates; otherwise nothing happens.
func (c *Controller) ClientsReleased(ctx context.Context) ([]string, error) {
	if c.State() != StateInstalled {
		return nil, nil
	}
	return c.activate(ctx)
}

func (c *Controller) activate(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	switch c.state {
	case StateActivated, StateActivating:
		c.mu.Unlock()
		return nil, nil
	case StateInstalled:
	default:
		state := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w (state %s)", ErrNotInstalled, state)
	}
	c.setState(StateActivating)
	c.mu.Unlock()

	deleted, err := Activate(ctx, c.cfg.Store, c.names, &c.logger)

	c.mu.Lock()
	c.setState(StateActivated)
	c.claimed = true
	c.mu.Unlock()

	return deleted, err
}
