package validators

import (
	"fmt"
	"net/http"
)

// DefaultMaxBodyBytes caps request bodies at 1 MiB unless configured.
const DefaultMaxBodyBytes = 1 << 20

// SizeValidator refuses oversized request bodies.
type SizeValidator struct {
	maxBytes int64
}

// NewSizeValidator builds a size check. Non-positive limits fall back to
// DefaultMaxBodyBytes.
func NewSizeValidator(maxBytes int64) *SizeValidator {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return &SizeValidator{maxBytes: maxBytes}
}

func (v *SizeValidator) Validate(r *http.Request, body []byte) error {
	if int64(len(body)) > v.maxBytes {
		return &Error{
			Status:  http.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("request body of %d bytes exceeds the %d byte limit", len(body), v.maxBytes),
		}
	}
	return nil
}
