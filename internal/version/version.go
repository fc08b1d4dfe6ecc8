package version

// Set at build time using ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// String returns a human-readable version string.
func String() string {
	if Version == "dev" {
		return "dev (commit: " + Commit + ")"
	}
	return Version + " (commit: " + Commit + ")"
}
