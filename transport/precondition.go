package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hanseartic/jsonrpcd/rpc"
)

// jsonContentType is the required media-type prefix for RPC exchanges.
const jsonContentType = "application/json"

// Exchange is the transport-level view of one incoming request: the raw
// body plus the metadata the precondition check inspects.
type Exchange struct {
	Body        []byte
	Method      string
	ContentType string
}

// Effect is a deferred transport side effect. The check never touches the
// ResponseWriter itself; it hands back the status and headers to emit and
// the caller decides when, or whether, to apply them.
type Effect struct {
	Status int
	Header http.Header
}

// Apply writes the headers and the status code to w.
func (e Effect) Apply(w http.ResponseWriter) {
	for name, values := range e.Header {
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.WriteHeader(e.Status)
}

// Rejection refuses an exchange before any JSON is parsed. Err carries the
// wire error descriptor, Effect the matching HTTP response.
type Rejection struct {
	Err    *rpc.Error
	Effect Effect
}

// Descriptor renders the rejection as a JSON error response with a null id.
func (r *Rejection) Descriptor() json.RawMessage {
	payload, err := json.Marshal(&rpc.Response{Err: r.Err})
	if err != nil {
		return nil
	}
	return payload
}

// Check gates an exchange before dispatch. An empty body means the exchange
// is not an RPC call at all: handled is false and nothing should be
// written. A non-empty body with the wrong request method or content type
// yields a Rejection; both findings land in the descriptor's
// allowed/received maps, and the content-type finding, checked first,
// decides the message and the deferred status.
func Check(ex Exchange) (handled bool, rejection *Rejection) {
	if len(ex.Body) == 0 {
		return false, nil
	}
	allowed := make(map[string]string, 2)
	received := make(map[string]string, 2)
	var message string
	var effect *Effect
	if !strings.HasPrefix(strings.ToLower(ex.ContentType), jsonContentType) {
		allowed["content-type"] = jsonContentType
		received["content-type"] = ex.ContentType
		message = fmt.Sprintf("Content type %q is not supported; expected %s.", ex.ContentType, jsonContentType)
		effect = &Effect{Status: http.StatusBadRequest}
	}
	if ex.Method != http.MethodPost {
		allowed["method"] = http.MethodPost
		received["method"] = ex.Method
		if effect == nil {
			message = fmt.Sprintf("Method %q is not allowed; use %s.", ex.Method, http.MethodPost)
			effect = &Effect{
				Status: http.StatusMethodNotAllowed,
				Header: http.Header{"Access-Control-Allow-Methods": []string{http.MethodPost}},
			}
		}
	}
	if effect == nil {
		return true, nil
	}
	return true, &Rejection{
		Err: &rpc.Error{
			Code:    rpc.CodeServerRejected,
			Message: message,
			Data: &rpc.ErrorData{
				Allowed:  allowed,
				Received: received,
				Request:  string(ex.Body),
			},
		},
		Effect: *effect,
	}
}
