package troupe

import "fmt"

// TransportError represents a fatal remote-model failure: a connection
// error, a non-2xx status, or an unparseable response body. It aborts
// the current turn and is never converted into conversation text.
//
// Everything else in the error taxonomy (guardrail rejections, tool
// execution errors, unresolvable agent names, malformed tool-call
// arguments) flows back through the conversation as ordinary text and
// never surfaces as a Go error.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s transport error: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s transport error", e.Provider)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a provider SDK failure.
func NewTransportError(provider string, err error) *TransportError {
	return &TransportError{Provider: provider, Err: err}
}
