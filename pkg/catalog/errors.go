package catalog

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// StreamError represents catalog and stream related errors
type StreamError struct {
	SourceRef string `json:"source_ref"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Cause     error  `json:"-"`
}

func (e *StreamError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeNotFound    = "TRACK_NOT_FOUND"
	ErrCodeOpen        = "STREAM_OPEN_FAILED"
	ErrCodeRead        = "STREAM_READ_FAILED"
	ErrCodeUnsupported = "UNSUPPORTED_SOURCE"
)

// NewStreamError creates a new stream error
func NewStreamError(sourceRef, code, message string, cause error) *StreamError {
	return &StreamError{
		SourceRef: sourceRef,
		Code:      code,
		Message:   message,
		Cause:     cause,
	}
}
