package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/hanseartic/jsonrpcd/rpc"
	"go.uber.org/zap"
)

// Wire messages for dispatch failures.
const (
	msgInvalidRequest   = "Invalid Request"
	msgMethodBlocked    = "The requested function does not exist."
	msgMethodNotDefined = "Requested method is not defined."
	msgMethodFailed     = "Unknown method or invalid parameters."
)

// Dispatcher resolves request candidates against the registry and builds
// per-candidate responses.
type Dispatcher struct {
	registry  *Registry
	blocklist *Blocklist
	logger    *zap.Logger
}

func NewDispatcher(registry *Registry, blocklist *Blocklist, logger *zap.Logger) (*Dispatcher, error) {
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if blocklist == nil {
		return nil, errors.New("blocklist cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry:  registry,
		blocklist: blocklist,
		logger:    logger.Named("dispatch"),
	}, nil
}

// Registry exposes the dispatcher's handler registry.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Blocklist exposes the dispatcher's method blocklist.
func (d *Dispatcher) Blocklist() *Blocklist { return d.blocklist }

// DispatchBody normalizes the body and processes every candidate
// independently, returning the responses that were not suppressed as
// notifications, in candidate order.
func (d *Dispatcher) DispatchBody(ctx context.Context, body []byte) []*rpc.Response {
	candidates := rpc.ParseBody(body)
	responses := make([]*rpc.Response, 0, len(candidates))
	for i := range candidates {
		if resp := d.dispatch(ctx, &candidates[i], body); resp != nil {
			responses = append(responses, resp)
		}
	}
	return responses
}

// dispatch handles one candidate in isolation. A panic while processing it
// yields an internal-error response instead of aborting its siblings.
func (d *Dispatcher) dispatch(ctx context.Context, candidate *rpc.Request, body []byte) (resp *rpc.Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Panic recovered during dispatch",
				zap.Any("panic", r),
				zap.String("method", candidate.Method))
			resp = d.buildFailure(candidate, body, &rpc.Error{
				Code:    rpc.CodeInternalError,
				Message: fmt.Sprintf("internal error: %v", r),
			})
		}
	}()

	if candidate.Method == "" {
		return d.buildFailure(candidate, body, &rpc.Error{
			Code:    rpc.CodeInvalidRequest,
			Message: msgInvalidRequest,
		})
	}
	if d.blocklist.IsBlocked(candidate.Method) {
		d.logger.Debug("Refusing blocked method", zap.String("method", candidate.Method))
		return d.buildFailure(candidate, body, &rpc.Error{
			Code:    rpc.CodeMethodNotFound,
			Message: msgMethodBlocked,
		})
	}

	for _, binding := range d.registry.List() {
		if !binding.Handler.Exposes(candidate.Method) {
			continue
		}
		outcome := binding.Handler.Invoke(ctx, candidate.Method, candidate.Params)
		switch outcome.Kind {
		case OutcomeOK:
			if candidate.IsNotification() {
				return nil
			}
			return &rpc.Response{ID: candidate.ID, Result: outcome.Value}
		case OutcomeNotFound:
			// The handler disowned a method it advertised; keep scanning.
			continue
		default:
			d.logger.Debug("Invocation rejected",
				zap.String("method", candidate.Method),
				zap.String("handler", binding.Key),
				zap.Error(outcome.Err))
			return d.buildFailure(candidate, body, failureError(outcome.Err))
		}
	}

	return d.buildFailure(candidate, body, &rpc.Error{
		Code:    rpc.CodeMethodNotFound,
		Message: msgMethodNotDefined,
	})
}

// buildFailure finishes an error response: the raw body is attached for
// diagnostics and notifications are suppressed.
func (d *Dispatcher) buildFailure(candidate *rpc.Request, body []byte, rpcErr *rpc.Error) *rpc.Response {
	if candidate.IsNotification() {
		return nil
	}
	if rpcErr.Data == nil {
		rpcErr.Data = &rpc.ErrorData{}
	}
	rpcErr.Data.Request = string(body)
	return &rpc.Response{ID: candidate.ID, Err: rpcErr}
}

// failureError maps an invocation failure to its wire error. Typed errors
// keep their code and message; everything else collapses to the generic
// invocation failure.
func failureError(err error) *rpc.Error {
	var rpcErr *rpc.Error
	if errors.As(err, &rpcErr) && rpcErr != nil {
		clone := *rpcErr
		if clone.Data != nil {
			dataCopy := *clone.Data
			clone.Data = &dataCopy
		}
		return &clone
	}
	return &rpc.Error{Code: rpc.CodeMethodNotFound, Message: msgMethodFailed}
}

// Aggregate collapses the collected responses into the payload to emit:
// nil for none, the bare response object for one, the ordered slice for
// two or more.
func Aggregate(responses []*rpc.Response) any {
	switch len(responses) {
	case 0:
		return nil
	case 1:
		return responses[0]
	default:
		return responses
	}
}
