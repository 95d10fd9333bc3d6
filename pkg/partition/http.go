package partition

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// ResponseToEntry converts an HTTP response to an Entry.
// The response body is restored after reading.
func ResponseToEntry(req *http.Request, resp *http.Response) (*Entry, error) {
	if resp == nil {
		return nil, fmt.Errorf("response cannot be nil")
	}

	var body []byte
	if resp.Body != nil {
		var err error
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			// Hand the caller back what was consumed, followed by the rest
			// of the original stream and its error.
			resp.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(body), resp.Body), resp.Body}
			return nil, fmt.Errorf("read response body: %w", err)
		}
		resp.Body.Close()
	}

	// Restore body for caller
	resp.Body = io.NopCloser(bytes.NewReader(body))

	entry := &Entry{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		StoredAt:   time.Now(),
	}
	if entry.Header == nil {
		entry.Header = http.Header{}
	}
	if req != nil && req.URL != nil {
		entry.URL = req.URL.String()
	}

	return entry, nil
}

// EntryToResponse builds a fresh HTTP response from an Entry.
// Every call returns an independent body reader and header map.
func EntryToResponse(req *http.Request, entry *Entry) *http.Response {
	header := entry.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Set("Content-Length", strconv.Itoa(len(entry.Body)))
	if !entry.StoredAt.IsZero() {
		header.Set("Age", strconv.Itoa(int(entry.Age().Seconds())))
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", entry.StatusCode, http.StatusText(entry.StatusCode)),
		StatusCode:    entry.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(entry.Body)),
		ContentLength: int64(len(entry.Body)),
		Request:       req,
	}
}
