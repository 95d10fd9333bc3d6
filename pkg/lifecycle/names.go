package lifecycle

import "fmt"

const (
	// ShellPath is the application shell document served for offline navigation.
	ShellPath = "/"

	// OfflinePage is served for offline navigation when no shell is stored.
	OfflinePage = "/offline.html"
)

// DefaultManifest lists the core assets pre-cached at install time.
var DefaultManifest = []string{
	ShellPath,
	"/static/js/bundle.js",
	"/static/css/main.css",
	"/manifest.json",
	OfflinePage,
}

// Names are the three partition names owned by one deployed version.
type Names struct {
	Static  string
	Dynamic string
	Images  string
}

// NamesFor returns the partition names for version.
//
// Example: NamesFor("1") → {static-v1, dynamic-v1, images-v1}
func NamesFor(version string) Names {
	return Names{
		Static:  fmt.Sprintf("static-v%s", version),
		Dynamic: fmt.Sprintf("dynamic-v%s", version),
		Images:  fmt.Sprintf("images-v%s", version),
	}
}

// All returns the names in static, dynamic, images order.
func (n Names) All() []string {
	return []string{n.Static, n.Dynamic, n.Images}
}

// Contains reports whether name belongs to this version.
func (n Names) Contains(name string) bool {
	return name == n.Static || name == n.Dynamic || name == n.Images
}
