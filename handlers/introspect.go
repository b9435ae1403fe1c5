package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hanseartic/jsonrpcd/dispatch"
)

// Introspect answers questions about the methods the daemon currently
// serves. It supplies an explicit method table so a false answer from
// methodExists travels as a result, not a failure.
type Introspect struct {
	dispatcher *dispatch.Dispatcher
}

// NewIntrospect creates an introspection handler over the dispatcher's
// registry and blocklist.
func NewIntrospect(dispatcher *dispatch.Dispatcher) *Introspect {
	return &Introspect{dispatcher: dispatcher}
}

var _ dispatch.MethodMapper = (*Introspect)(nil)

func (i *Introspect) RPCHandlers() map[string]dispatch.HandlerFunc {
	return map[string]dispatch.HandlerFunc{
		"listMethods":    i.listMethods,
		"methodExists":   i.methodExists,
		"blockedMethods": i.blockedMethods,
	}
}

func (i *Introspect) listMethods(ctx context.Context, params []json.RawMessage) (any, error) {
	seen := make(map[string]struct{})
	names := make([]string, 0, 16)
	for _, binding := range i.dispatcher.Registry().List() {
		for _, name := range binding.Handler.Methods() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (i *Introspect) methodExists(ctx context.Context, params []json.RawMessage) (any, error) {
	if len(params) != 1 {
		return nil, fmt.Errorf("methodExists takes exactly one argument, got %d", len(params))
	}
	var name string
	if err := json.Unmarshal(params[0], &name); err != nil {
		return nil, fmt.Errorf("method name must be a string: %w", err)
	}
	for _, binding := range i.dispatcher.Registry().List() {
		if binding.Handler.Exposes(name) {
			return true, nil
		}
	}
	return false, nil
}

func (i *Introspect) blockedMethods(ctx context.Context, params []json.RawMessage) (any, error) {
	return i.dispatcher.Blocklist().Blocked(), nil
}
