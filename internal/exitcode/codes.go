package exitcode

// Exit codes for the emerlin2caom CLI.
// Batch schedulers can use these to decide retry strategy.
const (
	// Success - every observation was processed
	Success = 0

	// ConfigError - missing or invalid configuration
	// Don't retry: fix the config first
	ConfigError = 1

	// NetworkError - transient network failure (archive timeout, DNS, etc.)
	// Retry with backoff
	NetworkError = 2

	// APIError - archive returned an error (auth, bad request)
	// Check logs, may need manual intervention
	APIError = 3

	// StorageError - failed to write XML locally or to MinIO
	// Retry with backoff
	StorageError = 4

	// DataError - measurement set or pipeline metadata could not be read
	// Don't retry: investigate the data
	DataError = 5

	// InputError - observation directory layout is incomplete
	// Don't retry: fix the inputs
	InputError = 6
)
