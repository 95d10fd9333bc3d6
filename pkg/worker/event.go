package worker

import (
	"net/http"

	"github.com/flix-app/flix-cache/pkg/notify"
)

// Event is one of the descriptors below.
type Event interface {
	Kind() string
}

// InstallEvent starts installing the configured version.
type InstallEvent struct{}

// ActivateEvent activates the installed version.
type ActivateEvent struct{}

// FetchEvent is an intercepted request. RespondWith receives the response
// exactly once.
type FetchEvent struct {
	Request     *http.Request
	RespondWith func(*http.Response)
}

// SyncEvent is a background sync request.
type SyncEvent struct {
	Tag string
}

// PushEvent is a received push message.
type PushEvent struct {
	Data []byte
}

// NotificationClickEvent is a click on a shown notification.
type NotificationClickEvent struct {
	Action       string
	Notification notify.Notification
}

// MessageEvent is a control message posted by the running application.
type MessageEvent struct {
	Type string `json:"type"`
}

func (InstallEvent) Kind() string           { return "install" }
func (ActivateEvent) Kind() string          { return "activate" }
func (FetchEvent) Kind() string             { return "fetch" }
func (SyncEvent) Kind() string              { return "sync" }
func (PushEvent) Kind() string              { return "push" }
func (NotificationClickEvent) Kind() string { return "notificationclick" }
func (MessageEvent) Kind() string           { return "message" }
