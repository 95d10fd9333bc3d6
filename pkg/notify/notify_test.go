package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recorder struct {
	shown   []Notification
	closed  int
	opened  []string
	showErr error
}

func (r *recorder) Show(ctx context.Context, n Notification) error {
	if r.showErr != nil {
		return r.showErr
	}
	r.shown = append(r.shown, n)
	return nil
}

func (r *recorder) Close(ctx context.Context, n Notification) error {
	r.closed++
	return nil
}

func (r *recorder) OpenWindow(ctx context.Context, path string) error {
	r.opened = append(r.opened, path)
	return nil
}

func TestNewTrendingNotification(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	n := NewTrendingNotification(now)

	if n.Title != DefaultTitle || n.Body != DefaultBody {
		t.Errorf("title/body = %q / %q", n.Title, n.Body)
	}
	if n.Icon != IconPath || n.Badge != BadgePath {
		t.Errorf("icon/badge = %q / %q", n.Icon, n.Badge)
	}
	if len(n.Vibrate) != 3 || n.Vibrate[0] != 100 || n.Vibrate[1] != 50 {
		t.Errorf("Vibrate = %v", n.Vibrate)
	}
	if n.Data["dateOfArrival"] != now.UnixMilli() || n.Data["primaryKey"] != 1 {
		t.Errorf("Data = %v", n.Data)
	}
	if !n.HasAction(ActionExplore) || !n.HasAction(ActionClose) || n.HasAction("share") {
		t.Errorf("Actions = %+v", n.Actions)
	}
}

func TestHandlePush(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantBody string
	}{
		{"no payload", "", DefaultBody},
		{"whitespace payload", "  \n", DefaultBody},
		{"payload text", "Dune: Part Two is trending", "Dune: Part Two is trending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			h := &Handler{Notifier: rec, Logger: zerolog.Nop()}

			n, err := h.HandlePush(context.Background(), PushEvent{Data: []byte(tt.data)})
			if err != nil {
				t.Fatalf("HandlePush() error = %v", err)
			}
			if n.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", n.Body, tt.wantBody)
			}
			if len(rec.shown) != 1 || rec.shown[0].Body != tt.wantBody {
				t.Errorf("shown = %+v", rec.shown)
			}
		})
	}
}

func TestHandlePush_ShowError(t *testing.T) {
	h := &Handler{Notifier: &recorder{showErr: errors.New("permission denied")}, Logger: zerolog.Nop()}

	if _, err := h.HandlePush(context.Background(), PushEvent{}); err == nil {
		t.Error("HandlePush() error = nil, want show failure")
	}
}

func TestHandleClick(t *testing.T) {
	tests := []struct {
		action   string
		wantPath string
	}{
		{ActionExplore, TrendingPath},
		{ActionClose, ""},
		{"", HomePath},
		{"unknown", HomePath},
	}

	for _, tt := range tests {
		t.Run("action="+tt.action, func(t *testing.T) {
			rec := &recorder{}
			h := &Handler{Notifier: rec, Navigator: rec, Logger: zerolog.Nop()}

			path, err := h.HandleClick(context.Background(), ClickEvent{Action: tt.action})
			if err != nil {
				t.Fatalf("HandleClick() error = %v", err)
			}
			if path != tt.wantPath {
				t.Errorf("path = %q, want %q", path, tt.wantPath)
			}
			if rec.closed != 1 {
				t.Errorf("closed = %d, want 1", rec.closed)
			}

			wantOpened := 1
			if tt.wantPath == "" {
				wantOpened = 0
			}
			if len(rec.opened) != wantOpened {
				t.Errorf("opened = %v", rec.opened)
			}
		})
	}
}

func TestHandler_Subscriptions(t *testing.T) {
	ctx := context.Background()

	bare := &Handler{}
	if _, err := bare.Subscribe(ctx); !errors.Is(err, ErrNoSubscriptions) {
		t.Errorf("Subscribe() without capability error = %v", err)
	}

	subs := &MemorySubscriptions{}
	h := &Handler{Subscriptions: subs}

	if _, err := h.Subscribe(ctx); err == nil {
		t.Error("Subscribe() with nothing offered should fail")
	}

	subs.Offer(Subscription(`{"endpoint":"https://push.example/abc"}`))
	sub, err := h.Subscribe(ctx)
	if err != nil || string(sub) != `{"endpoint":"https://push.example/abc"}` {
		t.Fatalf("Subscribe() = %s, %v", sub, err)
	}
	if cur, _ := h.CurrentSubscription(ctx); string(cur) != string(sub) {
		t.Errorf("CurrentSubscription() = %s", cur)
	}

	if ok, _ := h.Unsubscribe(ctx); !ok {
		t.Error("Unsubscribe() = false, want true")
	}
	if ok, _ := h.Unsubscribe(ctx); ok {
		t.Error("second Unsubscribe() = true, want false")
	}
}

func TestInbox_KeepsMostRecent(t *testing.T) {
	inbox := NewInbox(2)
	ctx := context.Background()
	for _, body := range []string{"a", "b", "c"} {
		inbox.Show(ctx, Notification{Body: body})
	}

	got := inbox.List()
	if len(got) != 2 || got[0].Body != "b" || got[1].Body != "c" {
		t.Errorf("List() = %+v", got)
	}
}
