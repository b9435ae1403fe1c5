package dispatch

import (
	"context"
	"encoding/json"
)

// OutcomeKind classifies what happened when a handler was asked to run a
// method.
type OutcomeKind int

const (
	// OutcomeOK means the method ran and produced Outcome.Value.
	OutcomeOK OutcomeKind = iota
	// OutcomeNotFound means the handler does not expose the method.
	OutcomeNotFound
	// OutcomeFailed means the method was selected but the invocation was
	// rejected: wrong arity, undecodable arguments, a panic, or an error
	// return.
	OutcomeFailed
)

// Outcome is the tagged result of an invocation attempt. Keeping the tag
// separate from Value lets a method legitimately return false without being
// mistaken for a failed call.
type Outcome struct {
	Kind  OutcomeKind
	Value any
	Err   error
}

// OK wraps a successful invocation result.
func OK(value any) Outcome { return Outcome{Kind: OutcomeOK, Value: value} }

// NotFound signals that the handler does not serve the method.
func NotFound() Outcome { return Outcome{Kind: OutcomeNotFound} }

// Failed signals a rejected invocation. err may be nil.
func Failed(err error) Outcome { return Outcome{Kind: OutcomeFailed, Err: err} }

// Handler is a bound callable object. Implementations report the method
// names they expose and invoke them with positional JSON arguments.
type Handler interface {
	Exposes(method string) bool
	Methods() []string
	Invoke(ctx context.Context, method string, params []json.RawMessage) Outcome
}

// HandlerFunc runs one method with its raw positional arguments.
type HandlerFunc func(ctx context.Context, params []json.RawMessage) (any, error)

// MethodMapper lets a type supply an explicit method table instead of having
// its exported methods discovered by reflection. Table methods report
// failures through the error return, so a plain false result stays a result.
type MethodMapper interface {
	RPCHandlers() map[string]HandlerFunc
}

// tableHandler adapts an explicit method table to the Handler interface.
type tableHandler struct {
	methods map[string]HandlerFunc
}

var _ Handler = (*tableHandler)(nil)

func newTableHandler(m MethodMapper) *tableHandler {
	table := make(map[string]HandlerFunc, 8)
	for method, fn := range m.RPCHandlers() {
		if fn == nil {
			continue
		}
		table[method] = fn
	}
	return &tableHandler{methods: table}
}

func (h *tableHandler) Exposes(method string) bool {
	_, ok := h.methods[method]
	return ok
}

func (h *tableHandler) Methods() []string {
	return sortedKeys(h.methods)
}

func (h *tableHandler) Invoke(ctx context.Context, method string, params []json.RawMessage) (outcome Outcome) {
	fn, ok := h.methods[method]
	if !ok {
		return NotFound()
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(panicError(r))
		}
	}()
	value, err := fn(ctx, params)
	if err != nil {
		return Failed(err)
	}
	return OK(value)
}
