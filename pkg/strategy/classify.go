package strategy

import (
	"net/http"
	"regexp"
	"strings"
)

// Class is the closed set of request classes the router resolves.
type Class int

const (
	ClassImage Class = iota
	ClassAPI
	ClassNavigation
	ClassOther
)

// String returns the class name used in logs and metric labels.
func (c Class) String() string {
	switch c {
	case ClassImage:
		return "image"
	case ClassAPI:
		return "api"
	case ClassNavigation:
		return "navigation"
	default:
		return "other"
	}
}

// DefaultImagePathMarker identifies image URLs by path.
const DefaultImagePathMarker = "/t/p/"

// DefaultAPIPatterns is the allowlist of API URLs.
var DefaultAPIPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https://api\.themoviedb\.org/3/`),
	regexp.MustCompile(`^https://image\.tmdb\.org/t/p/`),
}

// Classifier maps a request to exactly one Class.
type Classifier struct {
	APIPatterns     []*regexp.Regexp
	ImagePathMarker string
}

// DefaultClassifier returns a classifier with the default allowlist and marker.
func DefaultClassifier() Classifier {
	return Classifier{
		APIPatterns:     DefaultAPIPatterns,
		ImagePathMarker: DefaultImagePathMarker,
	}
}

// Classify evaluates, in order, first match wins:
//  1. Sec-Fetch-Dest is "image", or the path contains the image marker → image
//  2. the URL matches an API pattern → api
//  3. Sec-Fetch-Mode is "navigate" → navigation
//  4. anything else → other
func (c Classifier) Classify(req *http.Request) Class {
	if req.Header.Get("Sec-Fetch-Dest") == "image" {
		return ClassImage
	}
	if c.ImagePathMarker != "" && strings.Contains(req.URL.Path, c.ImagePathMarker) {
		return ClassImage
	}

	rawURL := req.URL.String()
	for _, pattern := range c.APIPatterns {
		if pattern.MatchString(rawURL) {
			return ClassAPI
		}
	}

	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return ClassNavigation
	}

	return ClassOther
}
