package partition

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

// testStoreContract runs the behaviour every Store backend must share.
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("match miss", func(t *testing.T) {
		p, err := store.Open(ctx, "dynamic-v1")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		req, _ := http.NewRequest("GET", "https://api.themoviedb.org/3/nothing", nil)
		if _, err := p.Match(ctx, req); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Match() error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("put then match", func(t *testing.T) {
		p, _ := store.Open(ctx, "dynamic-v1")
		req, _ := http.NewRequest("GET", "https://api.themoviedb.org/3/movie/popular?page=1", nil)

		resp := newResponse(200, `{"page":1}`)
		if err := p.Put(ctx, req, resp); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if got := readBody(t, resp); got != `{"page":1}` {
			t.Errorf("Put() consumed the caller's body: %q", got)
		}

		matched, err := p.Match(ctx, req)
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if matched.StatusCode != 200 {
			t.Errorf("StatusCode = %d, want 200", matched.StatusCode)
		}
		if got := matched.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q, want application/json", got)
		}
		if got := readBody(t, matched); got != `{"page":1}` {
			t.Errorf("body = %q, want %q", got, `{"page":1}`)
		}

		byKey, err := p.MatchKey(ctx, "GET", "https://api.themoviedb.org/3/movie/popular?page=1")
		if err != nil {
			t.Fatalf("MatchKey() error = %v", err)
		}
		if got := readBody(t, byKey); got != `{"page":1}` {
			t.Errorf("MatchKey() body = %q", got)
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		p, _ := store.Open(ctx, "images-v1")
		req, _ := http.NewRequest("GET", "https://image.tmdb.org/t/p/w500/poster.jpg", nil)

		if err := p.Put(ctx, req, newResponse(200, "first")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if err := p.Put(ctx, req, newResponse(200, "second")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		matched, err := p.Match(ctx, req)
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		if got := readBody(t, matched); got != "second" {
			t.Errorf("body = %q, want %q", got, "second")
		}
	})

	t.Run("partitions are independent", func(t *testing.T) {
		staticP, _ := store.Open(ctx, "static-v1")
		dynamicP, _ := store.Open(ctx, "dynamic-v1")
		req, _ := http.NewRequest("GET", "http://localhost:8080/static/css/main.css", nil)

		if err := staticP.Put(ctx, req, newResponse(200, "body{}")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if _, err := dynamicP.Match(ctx, req); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("dynamic Match() error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		p, _ := store.Open(ctx, "dynamic-v1")
		req, _ := http.NewRequest("GET", "https://api.themoviedb.org/3/genre/movie/list", nil)

		if err := p.Put(ctx, req, newResponse(200, `{"genres":[]}`)); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		deleted, err := p.Delete(ctx, req)
		if err != nil || !deleted {
			t.Fatalf("Delete() = %v, %v; want true, nil", deleted, err)
		}
		deleted, err = p.Delete(ctx, req)
		if err != nil || deleted {
			t.Errorf("second Delete() = %v, %v; want false, nil", deleted, err)
		}
		if _, err := p.Match(ctx, req); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Match() after Delete error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("names and remove", func(t *testing.T) {
		if _, err := store.Open(ctx, "static-v0"); err != nil {
			t.Fatalf("Open() error = %v", err)
		}

		names, err := store.Names(ctx)
		if err != nil {
			t.Fatalf("Names() error = %v", err)
		}
		want := []string{"dynamic-v1", "images-v1", "static-v0", "static-v1"}
		if len(names) != len(want) {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
			}
		}

		removed, err := store.Remove(ctx, "static-v0")
		if err != nil || !removed {
			t.Fatalf("Remove() = %v, %v; want true, nil", removed, err)
		}
		removed, err = store.Remove(ctx, "static-v0")
		if err != nil || removed {
			t.Errorf("second Remove() = %v, %v; want false, nil", removed, err)
		}
	})

	t.Run("remove drops entries", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "https://image.tmdb.org/t/p/w500/poster.jpg", nil)

		if _, err := store.Remove(ctx, "images-v1"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		reopened, _ := store.Open(ctx, "images-v1")
		if _, err := reopened.Match(ctx, req); !errors.Is(err, ErrCacheMiss) {
			t.Errorf("Match() after Remove error = %v, want ErrCacheMiss", err)
		}
	})

	t.Run("binary body round trip", func(t *testing.T) {
		p, _ := store.Open(ctx, "images-v1")
		req, _ := http.NewRequest("GET", "https://image.tmdb.org/t/p/w92/logo.png", nil)
		payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}

		resp := &http.Response{
			StatusCode: 200,
			Header:     http.Header{"Content-Type": []string{"image/png"}},
			Body:       io.NopCloser(bytes.NewReader(payload)),
		}
		if err := p.Put(ctx, req, resp); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		matched, err := p.Match(ctx, req)
		if err != nil {
			t.Fatalf("Match() error = %v", err)
		}
		got, _ := io.ReadAll(matched.Body)
		if !bytes.Equal(got, payload) {
			t.Errorf("body = %v, want %v", got, payload)
		}
	})

	t.Run("put after remove registers the partition again", func(t *testing.T) {
		p, _ := store.Open(ctx, "dynamic-v0")
		if _, err := store.Remove(ctx, "dynamic-v0"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		req, _ := http.NewRequest("GET", "https://api.themoviedb.org/3/movie/1", nil)
		if err := p.Put(ctx, req, newResponse(200, "{}")); err != nil {
			t.Fatalf("Put() error = %v", err)
		}

		names, err := store.Names(ctx)
		if err != nil {
			t.Fatalf("Names() error = %v", err)
		}
		found := false
		for _, name := range names {
			if name == "dynamic-v0" {
				found = true
			}
		}
		if !found {
			t.Fatalf("Names() = %v, want dynamic-v0 listed so activation can delete it", names)
		}

		if _, err := p.Match(ctx, req); err != nil {
			t.Errorf("Match() error = %v", err)
		}

		removed, err := store.Remove(ctx, "dynamic-v0")
		if err != nil || !removed {
			t.Errorf("Remove() = %v, %v; want true, nil", removed, err)
		}
	})
}
