package archive

import "fmt"

// StatusError is a non-2xx answer from the archive.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("archive: %s %s (status %d)", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("archive: %s %s (status %d): %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// ClientError wraps transport and decoding failures for callers outside the
// package.
type ClientError struct {
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("archive client: %s: %v", e.Message, e.Err)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}
