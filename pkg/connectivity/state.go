// Package connectivity tracks whether the network is reachable, based on
// the outcome of real network attempts, and fires callbacks when it comes
// back after an outage.
package connectivity

import (
	"time"
)

// DefaultOfflineThreshold is the number of consecutive failed network
// attempts after which the tracker reports offline. One rejected fetch is
// enough, matching browser semantics.
const DefaultOfflineThreshold = 1

// State represents the current connectivity state.
type State struct {
	// Online is false once ConsecutiveFailures reached the offline threshold.
	Online bool `json:"online"`

	// ConsecutiveFailures counts failed attempts since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// LastError is the most recent network error, if any.
	LastError string `json:"last_error,omitempty"`

	// LastChange is when Online last flipped.
	LastChange time.Time `json:"last_change"`

	// LastUpdate is when any network outcome was last recorded.
	LastUpdate time.Time `json:"last_update"`
}

// SinceChange returns how long the current online/offline state has held at now.
func (s *State) SinceChange(now time.Time) time.Duration {
	return now.Sub(s.LastChange)
}

func stateLabel(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
