package featureflags

import (
	"os"
	"strings"
)

const (
	// Signup opens POST /api/auth/register to anyone.
	Signup = "SIGNUP"
	// FeedStream enables the websocket activity feed.
	FeedStream = "FEED_STREAM"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return EnabledOr(name, false)
}

// EnabledOr is Enabled with a default for unset flags.
func EnabledOr(name string, def bool) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Set is a snapshot of the flags the server reads at startup.
type Set struct {
	Signup     bool
	FeedStream bool
}

// Load reads the server's flags. Both default to on.
func Load() Set {
	return Set{
		Signup:     EnabledOr(Signup, true),
		FeedStream: EnabledOr(FeedStream, true),
	}
}
