package common

import "fmt"

// Version information (set via -ldflags during build)
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// Component versions stamped on audit records.
const (
	ProviderVersion       = "internal_provider_v1.1.0"
	PreprocessorVersion   = "news_preprocessor_v1.0.0"
	RouterVersionFallback = "taxonomy_v1.0.0"
	SchemaVersionFallback = "analysis_schema_v1.0.0"
)

// GetVersion returns the current version string
func GetVersion() string {
	return Version
}

// GetFullVersion returns version with build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}
