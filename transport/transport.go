// Package transport carries RPC exchanges over HTTP: it gates incoming
// requests, hands eligible bodies to the dispatcher, and writes the
// aggregated payload back.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/hanseartic/jsonrpcd/dispatch"
	"github.com/hanseartic/jsonrpcd/validators"
	"go.uber.org/zap"
)

// DefaultRPCPath is where RegisterHandlers mounts the RPC endpoint.
const DefaultRPCPath = "/rpc"

// Transport serves the RPC endpoint.
type Transport struct {
	dispatcher *dispatch.Dispatcher
	logger     *zap.Logger
	validators []validators.Validator
	path       string

	// autoHandleErrors controls whether a precondition rejection is
	// answered immediately with its deferred status and headers. When
	// disabled the owner retrieves LastError and responds itself.
	autoHandleErrors bool

	mu        sync.Mutex
	lastError json.RawMessage
}

// TransportOption configures the Transport during New.
type TransportOption func(*Transport) error

// WithRPCPath overrides the endpoint path.
func WithRPCPath(path string) TransportOption {
	return func(t *Transport) error {
		if path == "" || path[0] != '/' {
			return fmt.Errorf("RPC path must start with '/', got %q", path)
		}
		t.path = path
		return nil
	}
}

// WithValidators installs transport-level checks that run after the
// precondition check and before dispatch, in the given order.
func WithValidators(v ...validators.Validator) TransportOption {
	return func(t *Transport) error {
		t.validators = append(t.validators, v...)
		return nil
	}
}

// WithManualErrorHandling turns off the automatic status/header answer for
// precondition rejections.
func WithManualErrorHandling() TransportOption {
	return func(t *Transport) error {
		t.autoHandleErrors = false
		return nil
	}
}

// New creates a Transport around the given dispatcher.
func New(dispatcher *dispatch.Dispatcher, logger *zap.Logger, options ...TransportOption) (*Transport, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	t := &Transport{
		dispatcher:       dispatcher,
		logger:           logger.Named("transport"),
		path:             DefaultRPCPath,
		autoHandleErrors: true,
	}
	for _, option := range options {
		if err := option(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Dispatcher returns the dispatcher this transport feeds.
func (t *Transport) Dispatcher() *dispatch.Dispatcher { return t.dispatcher }

// Path returns the endpoint path.
func (t *Transport) Path() string { return t.path }

// RegisterHandlers attaches the RPC endpoint to the mux.
func (t *Transport) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc(t.path, t.HandleRPC)
	t.logger.Debug("Registered RPC endpoint", zap.String("path", t.path))
}

// HandleRPC processes one HTTP exchange end to end.
func (t *Transport) HandleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		setCORSHeaders(w)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.logger.Error("Failed to read request body", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	defer func() { _ = r.Body.Close() }()

	handled, rejection := Check(Exchange{
		Body:        body,
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
	})
	if !handled {
		// Not an RPC exchange; leave the response untouched.
		t.logger.Debug("Ignoring exchange with empty body",
			zap.String("method", r.Method),
			zap.String("remote", r.RemoteAddr))
		return
	}
	if rejection != nil {
		t.refuse(w, rejection)
		return
	}
	setCORSHeaders(w)

	for _, validator := range t.validators {
		if err := validator.Validate(r, body); err != nil {
			t.logger.Warn("Exchange failed validation", zap.Error(err))
			status := http.StatusBadRequest
			var validationErr *validators.Error
			if errors.As(err, &validationErr) {
				status = validationErr.Status
			}
			w.WriteHeader(status)
			return
		}
	}

	responses := t.dispatcher.DispatchBody(r.Context(), body)
	payload := dispatch.Aggregate(responses)
	if payload == nil {
		// Notifications only: nothing goes back.
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.logger.Error("Failed to marshal response payload", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	if _, err := w.Write(data); err != nil {
		t.logger.Error("Failed to write response", zap.Error(err))
	}
}

// LastError returns the JSON descriptor of the most recent precondition
// rejection, or nil when none has occurred.
func (t *Transport) LastError() json.RawMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastError
}

func (t *Transport) refuse(w http.ResponseWriter, rejection *Rejection) {
	t.mu.Lock()
	t.lastError = rejection.Descriptor()
	t.mu.Unlock()
	t.logger.Debug("Refusing exchange",
		zap.Int("status", rejection.Effect.Status),
		zap.String("message", rejection.Err.Message))
	if t.autoHandleErrors {
		rejection.Effect.Apply(w)
	}
}

func setCORSHeaders(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", "*")
	header.Set("Access-Control-Allow-Headers", "Content-Type")
	header.Set("Access-Control-Allow-Methods", http.MethodPost)
}
