package transport

import "fmt"

// TransportError reports a failed HTTP download: a response status of 400 or
// above, or a connection-level failure wrapping the underlying cause.
type TransportError struct {
	URL    string
	Status string // HTTP status line; empty for connection failures
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("download %s: %s", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ExtractionError reports a corrupt or unreadable archive.
type ExtractionError struct {
	Archive string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
