// Package notify builds push notifications and routes notification clicks.
//
// Displaying a notification, opening a window and managing the push
// subscription are capabilities of the host; this package only decides
// what to show and where a click leads.
package notify

import (
	"time"
)

// Fixed notification actions.
const (
	ActionExplore = "explore"
	ActionClose   = "close"
)

// Click destinations.
const (
	TrendingPath = "/trending"
	HomePath     = "/"
)

const (
	DefaultTitle = "FLIX - Movie Discovery"
	DefaultBody  = "New movies are trending! Check them out."

	IconPath  = "/icons/icon-192x192.png"
	BadgePath = "/icons/badge-72x72.png"
)

// Action is a button shown on a notification.
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
	Icon   string `json:"icon,omitempty"`
}

// Notification is what the host displays.
type Notification struct {
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Icon    string         `json:"icon,omitempty"`
	Badge   string         `json:"badge,omitempty"`
	Vibrate []int          `json:"vibrate,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Actions []Action       `json:"actions,omitempty"`
}

// NewTrendingNotification returns the trending-movies notification.
// Data carries the arrival time in Unix milliseconds and a primary key.
func NewTrendingNotification(now time.Time) Notification {
	return Notification{
		Title:   DefaultTitle,
		Body:    DefaultBody,
		Icon:    IconPath,
		Badge:   BadgePath,
		Vibrate: []int{100, 50, 100},
		Data: map[string]any{
			"dateOfArrival": now.UnixMilli(),
			"primaryKey":    1,
		},
		Actions: []Action{
			{Action: ActionExplore, Title: "Explore", Icon: "/icons/explore-action.png"},
			{Action: ActionClose, Title: "Close", Icon: "/icons/close-action.png"},
		},
	}
}

// HasAction reports whether n offers the named action.
func (n Notification) HasAction(action string) bool {
	for _, a := range n.Actions {
		if a.Action == action {
			return true
		}
	}
	return false
}
