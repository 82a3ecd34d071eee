// Package version carries build metadata for the rps client.
//
// Set at link time:
//
//	go build -ldflags "-X github.com/rickgao/rps-client/internal/version.Version=1.2.0 \
//	                   -X github.com/rickgao/rps-client/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/rps-client/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/rpsclient
package version

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String renders the full build line shown by rpsclient -version.
func String() string {
	return "rpsclient " + Version + " (" + Commit + ") built " + BuildTime
}

// LogAttrs returns build metadata as slog key/value pairs.
func LogAttrs() []any {
	return []any{"version", Version, "commit", Commit, "built", BuildTime}
}
