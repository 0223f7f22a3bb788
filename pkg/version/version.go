package version

// Build-time values, set via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)
