package strategy

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
)

const (
	// HeaderSynthesized marks responses built locally rather than fetched or stored
	HeaderSynthesized = "X-Flix-Synthesized"

	// HeaderSource reports where a routed response came from
	HeaderSource = "X-Flix-Source"
)

// Source values carried in HeaderSource.
const (
	SourceCache       = "cache"
	SourceNetwork     = "network"
	SourceSynthesized = "synthesized"
)

// PlaceholderSVG is served for images that are neither stored nor reachable.
const PlaceholderSVG = `<svg width="300" height="450" xmlns="http://www.w3.org/2000/svg"><rect width="100%" height="100%" fill="#f3f4f6"/><text x="50%" y="50%" text-anchor="middle" fill="#9ca3af">No Image</text></svg>`

// OfflineJSON is served for API requests with no network and no stored copy.
const OfflineJSON = `{"error":"Offline","message":"You are currently offline. Some content may not be available.","offline":true}`

func synthesize(req *http.Request, status int, contentType, body string) *http.Response {
	header := http.Header{}
	header.Set("Content-Type", contentType)
	header.Set("Content-Length", strconv.Itoa(len(body)))
	header.Set(HeaderSynthesized, "true")

	return &http.Response{
		Status:        strconv.Itoa(status) + " " + http.StatusText(status),
		StatusCode:    status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader([]byte(body))),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}

// PlaceholderImage returns the neutral "No Image" SVG.
func PlaceholderImage(req *http.Request) *http.Response {
	return synthesize(req, http.StatusOK, "image/svg+xml", PlaceholderSVG)
}

// OfflineAPI returns the structured offline payload with status 503.
func OfflineAPI(req *http.Request) *http.Response {
	return synthesize(req, http.StatusServiceUnavailable, "application/json", OfflineJSON)
}

// OfflineText returns a plain-text 503 with the given body.
func OfflineText(req *http.Request, body string) *http.Response {
	return synthesize(req, http.StatusServiceUnavailable, "text/plain; charset=utf-8", body)
}
