package strategy

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/flix-app/flix-cache/pkg/partition"
)

func TestTransport_OfflineIsNotAnError(t *testing.T) {
	router := newTestRouter(t, partition.NewMemoryStore(), &fakeNetwork{offline: true})
	client := &http.Client{Transport: &Transport{Router: router}}

	resp, err := client.Get(popularURL)
	if err != nil {
		t.Fatalf("Get() error = %v, want synthesized response", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", resp.StatusCode)
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["offline"] != true {
		t.Errorf("payload = %v, want offline:true", payload)
	}
}

func TestTransport_StoresThroughRouter(t *testing.T) {
	store := partition.NewMemoryStore()
	network := &fakeNetwork{body: `{"genres":[]}`}
	client := &http.Client{Transport: &Transport{Router: newTestRouter(t, store, network)}}

	resp, err := client.Get("https://api.themoviedb.org/3/genre/movie/list")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if _, ok := stored(t, store, names.Dynamic, "https://api.themoviedb.org/3/genre/movie/list"); !ok {
		t.Error("response routed through transport was not stored")
	}
}

func TestHandler_ProxiesToUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("Connection", "keep-alive")
		w.Write([]byte("<html>" + r.URL.Path + "?" + r.URL.RawQuery + "</html>"))
	}))
	defer upstream.Close()

	upstreamURL, _ := url.Parse(upstream.URL)
	store := partition.NewMemoryStore()
	router := NewRouter(Config{
		Store:   store,
		Fetcher: upstream.Client(),
		Names:   names,
		Logger:  &quiet,
	})
	edge := httptest.NewServer(NewHandler(router, upstreamURL))
	defer edge.Close()

	resp, err := http.Get(edge.URL + "/static/js/app.js?v=2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if string(body) != "<html>/static/js/app.js?v=2</html>" {
		t.Errorf("body = %q", body)
	}
	if got := resp.Header.Get(HeaderSource); got != SourceNetwork {
		t.Errorf("%s = %q, want network", HeaderSource, got)
	}

	// other assets write through to dynamic under the upstream URL
	if _, ok := stored(t, store, names.Dynamic, upstream.URL+"/static/js/app.js?v=2"); !ok {
		t.Error("proxied asset not written through")
	}
}

func TestHandler_OfflineNavigationServesShell(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstreamURL, _ := url.Parse(upstream.URL)
	upstream.Close() // every fetch now fails

	store := partition.NewMemoryStore()
	seed(t, store, names.Static, upstream.URL+"/", "<html>shell</html>")

	router := NewRouter(Config{
		Store:   store,
		Fetcher: &http.Client{},
		Names:   names,
		Logger:  &quiet,
	})
	edge := httptest.NewServer(NewHandler(router, upstreamURL))
	defer edge.Close()

	req, _ := http.NewRequest(http.MethodGet, edge.URL+"/movie/550", nil)
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK || string(body) != "<html>shell</html>" {
		t.Errorf("got %d %q, want cached shell", resp.StatusCode, body)
	}
}

func TestHandler_NoUpstream(t *testing.T) {
	router := newTestRouter(t, partition.NewMemoryStore(), &fakeNetwork{})
	rec := httptest.NewRecorder()

	NewHandler(router, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/js/bundle.js", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no upstream") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHandler_AbsoluteFormIsFetchedAsIs(t *testing.T) {
	network := &fakeNetwork{body: `{"page":1}`}
	router := newTestRouter(t, partition.NewMemoryStore(), network)
	rec := httptest.NewRecorder()

	NewHandler(router, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, popularURL, nil))

	if rec.Code != http.StatusOK || rec.Body.String() != `{"page":1}` {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
	if network.Calls() != 1 {
		t.Errorf("network calls = %d, want 1", network.Calls())
	}
}
