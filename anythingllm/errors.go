package anythingllm

import "fmt"

// BackendError indicates the transport failed us: a non-2xx status or a body
// that could not be parsed as the expected JSON shape.
type BackendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *BackendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("anythingllm backend error: %v", e.Err)
	}
	return fmt.Sprintf("anythingllm backend error: status %d, response body: %s", e.StatusCode, e.Body)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// SemanticError indicates the backend answered with well-formed JSON that
// carries an embedded error or lacks a usable answer.
type SemanticError struct {
	Reason string
}

func (e *SemanticError) Error() string {
	return fmt.Sprintf("anythingllm returned no usable answer: %s", e.Reason)
}
