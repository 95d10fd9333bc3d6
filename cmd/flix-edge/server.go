package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/flix-app/flix-cache/pkg/bgsync"
	"github.com/flix-app/flix-cache/pkg/lifecycle"
	"github.com/flix-app/flix-cache/pkg/metrics"
	"github.com/flix-app/flix-cache/pkg/notify"
	"github.com/flix-app/flix-cache/pkg/strategy"
	"github.com/flix-app/flix-cache/pkg/worker"
)

// controlPrefix namespaces the control API so it never shadows app routes.
const controlPrefix = "/_flix"

// maxControlBody bounds control request bodies.
const maxControlBody = 64 << 10

// routes builds the edge handler: health, metrics, the control API, and
// everything else through the strategy router.
func (a *app) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", a.handleHealth)
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET "+controlPrefix+"/state", a.handleState)
	mux.HandleFunc("GET "+controlPrefix+"/partitions", a.handlePartitions)
	mux.HandleFunc("POST "+controlPrefix+"/message", a.handleMessage)
	mux.HandleFunc("POST "+controlPrefix+"/push", a.handlePush)
	mux.HandleFunc("POST "+controlPrefix+"/notificationclick", a.handleNotificationClick)
	mux.HandleFunc("GET "+controlPrefix+"/notifications", a.handleNotifications)
	mux.HandleFunc("PUT "+controlPrefix+"/subscription/offer", a.handleOfferSubscription)
	mux.HandleFunc("GET "+controlPrefix+"/subscription", a.handleCurrentSubscription)
	mux.HandleFunc("POST "+controlPrefix+"/subscription", a.handleSubscribe)
	mux.HandleFunc("DELETE "+controlPrefix+"/subscription", a.handleUnsubscribe)
	mux.HandleFunc("POST "+controlPrefix+"/watchlist", a.handleEnqueue)
	mux.HandleFunc("POST "+controlPrefix+"/sync", a.handleSync)
	mux.HandleFunc("GET "+controlPrefix+"/trending", a.handleTrending)

	mux.Handle("/", strategy.NewHandler(a.router, a.origin))

	return mux
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"online":  a.tracker.Online(),
		"version": a.cfg.Version,
		"state":   a.controller.State().String(),
	})
}

type stateResponse struct {
	Version          string   `json:"version"`
	State            string   `json:"state"`
	Claimed          bool     `json:"claimed"`
	Partitions       []string `json:"partitions"`
	Online           bool     `json:"online"`
	OnlineStateFor   string   `json:"online_state_for"`
	PendingMutations int      `json:"pending_mutations"`
	CachedResponses  int      `json:"cached_responses"`
}

func (a *app) handleState(w http.ResponseWriter, r *http.Request) {
	names, err := a.store.Names(r.Context())
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	pending, err := a.queue.Len(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	conn := a.tracker.State()
	writeJSONResponse(w, http.StatusOK, stateResponse{
		Version:          a.cfg.Version,
		State:            a.controller.State().String(),
		Claimed:          a.controller.Claimed(),
		Partitions:       names,
		Online:           conn.Online,
		OnlineStateFor:   conn.SinceChange(time.Now()).Round(time.Second).String(),
		PendingMutations: pending,
		CachedResponses:  a.responses.Len(),
	})
}

func (a *app) handlePartitions(w http.ResponseWriter, r *http.Request) {
	names, err := a.store.Names(r.Context())
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, names)
}

func (a *app) handleMessage(w http.ResponseWriter, r *http.Request) {
	var msg worker.MessageEvent
	if err := decodeBody(r, &msg); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.dispatch(w, r, msg)
}

func (a *app) handlePush(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxControlBody))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.dispatch(w, r, worker.PushEvent{Data: data})
}

type clickRequest struct {
	Action       string              `json:"action"`
	Notification notify.Notification `json:"notification"`
}

func (a *app) handleNotificationClick(w http.ResponseWriter, r *http.Request) {
	var click clickRequest
	if err := decodeBody(r, &click); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.dispatch(w, r, worker.NotificationClickEvent{Action: click.Action, Notification: click.Notification})
}

func (a *app) handleNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, a.inbox.List())
}

func (a *app) handleOfferSubscription(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeBody(r, &raw); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	a.subs.Offer(notify.Subscription(raw))
	w.WriteHeader(http.StatusNoContent)
}

func (a *app) handleCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := a.notify.CurrentSubscription(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	if sub == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSONResponse(w, http.StatusOK, json.RawMessage(sub))
}

func (a *app) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	sub, err := a.notify.Subscribe(r.Context())
	if err != nil {
		a.writeError(w, http.StatusConflict, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, json.RawMessage(sub))
}

func (a *app) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	removed, err := a.notify.Unsubscribe(r.Context())
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]bool{"unsubscribed": removed})
}

type enqueueRequest struct {
	Kind      bgsync.Kind     `json:"kind"`
	MediaType string          `json:"media_type"`
	ItemID    int64           `json:"item_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// handleEnqueue records a watchlist change and drains right away when the
// network is up; offline changes wait for the restore sync.
func (a *app) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	m, err := a.queue.Enqueue(r.Context(), bgsync.NewMutation(req.Kind, req.MediaType, req.ItemID, req.Payload))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	if a.tracker.Online() {
		_ = a.worker.Dispatch(r.Context(), worker.SyncEvent{Tag: bgsync.TagWatchlist})
	}
	writeJSONResponse(w, http.StatusAccepted, m)
}

func (a *app) handleSync(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		tag = bgsync.TagWatchlist
	}
	a.dispatch(w, r, worker.SyncEvent{Tag: tag})
}

func (a *app) handleTrending(w http.ResponseWriter, r *http.Request) {
	api, err := a.requireAPI()
	if err != nil {
		a.writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			a.writeError(w, http.StatusBadRequest, errors.New("page must be a positive integer"))
			return
		}
	}
	window := r.URL.Query().Get("window")
	if window == "" {
		window = "week"
	}

	result, err := api.Trending(r.Context(), "all", window, page)
	if err != nil {
		a.writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// dispatch runs ev through the worker and maps its error to a status.
func (a *app) dispatch(w http.ResponseWriter, r *http.Request, ev worker.Event) {
	err := a.worker.Dispatch(r.Context(), ev)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, worker.ErrNoHandler):
		a.writeError(w, http.StatusNotImplemented, err)
	case errors.Is(err, lifecycle.ErrNotInstalled), errors.Is(err, lifecycle.ErrAlreadyInstalled):
		a.writeError(w, http.StatusConflict, err)
	default:
		a.writeError(w, http.StatusBadGateway, err)
	}
}

func (a *app) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		a.logger.Warn().Err(err).Int("status", status).Msg("Control request failed")
	}
	writeJSONResponse(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxControlBody))
	return dec.Decode(v)
}

func writeJSONResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
