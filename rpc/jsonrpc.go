package rpc

import (
	"encoding/json"
	"fmt"
)

const (
	// Version is stamped into every envelope this package emits.
	Version = "2.0"

	// Error codes used on the wire.
	CodeServerRejected = -32400 // body present but transport preconditions unmet
	CodeInvalidRequest = -32600 // request object lacks a usable method
	CodeMethodNotFound = -32601 // method blocked, unbound, or invocation rejected
	CodeInternalError  = -32602 // unexpected failure while processing a candidate
)

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData carries the diagnostics attached to an Error. Request holds the
// raw body of the failing exchange; Allowed and Received describe the
// transport expectations for rejected exchanges.
type ErrorData struct {
	Allowed  map[string]string `json:"allowed,omitempty"`
	Received map[string]string `json:"received,omitempty"`
	Request  string            `json:"request"`
}

// Error implements the Go error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Response is a single response envelope. Exactly one of Result and Err ends
// up on the wire; the id member is emitted even when null.
type Response struct {
	ID     any
	Result any
	Err    *Error
}

type successEnvelope struct {
	ID      any    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Result  any    `json:"result"`
}

type errorEnvelope struct {
	ID      any    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Error   *Error `json:"error"`
}

// MarshalJSON picks the error or result envelope shape.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(errorEnvelope{
			ID:      r.ID,
			JSONRPC: Version,
			Error:   r.Err,
		})
	}
	return json.Marshal(successEnvelope{
		ID:      r.ID,
		JSONRPC: Version,
		Result:  r.Result,
	})
}
