// Package validators holds optional transport-level checks that run after
// an exchange passes the RPC preconditions and before it reaches dispatch.
package validators

import "net/http"

// Error is a validation failure with the HTTP status the transport should
// answer with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// Validator inspects one exchange. A nil return lets the exchange through;
// an *Error return tells the transport which status to emit.
type Validator interface {
	Validate(r *http.Request, body []byte) error
}
