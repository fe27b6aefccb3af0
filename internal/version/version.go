// Package version holds build information for contentmark.
package version

// Overridden at build time:
// go build -ldflags "-X contentmark/internal/version.Version=1.0.0 -X contentmark/internal/version.Commit=abc123"
var (
	Version   = "0.4.0"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// SchemaFormat is the version tag written into every generated schema.
const SchemaFormat = "1.0"

// Info returns a formatted version string
func Info() string {
	if Commit != "unknown" && len(Commit) > 7 {
		return Version + " (" + Commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "contentmark " + Version + "\n" +
		"Commit: " + Commit + "\n" +
		"Built: " + BuildDate + "\n" +
		"Schema format: " + SchemaFormat
}
