package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// reflectHandler exposes an instance's exported methods under their wire
// names. The method table is built once at bind time.
type reflectHandler struct {
	methods map[string]*boundMethod
}

var _ Handler = (*reflectHandler)(nil)

// boundMethod is one reflectively bound method. params holds the declared
// parameter types after any leading context argument.
type boundMethod struct {
	fn           reflect.Value
	wantsCtx     bool
	variadic     bool
	params       []reflect.Type
	returnsValue bool
	returnsError bool
}

func newReflectHandler(instance any) *reflectHandler {
	v := reflect.ValueOf(instance)
	t := v.Type()
	h := &reflectHandler{methods: make(map[string]*boundMethod, t.NumMethod())}
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() {
			continue
		}
		bound, ok := parseMethod(v.Method(i))
		if !ok {
			continue
		}
		h.methods[wireName(m.Name)] = bound
	}
	return h
}

// parseMethod validates a method's signature and captures its shape.
// Supported returns: none, a single value, a single error, or (value,
// error). Anything else is skipped.
func parseMethod(fn reflect.Value) (*boundMethod, bool) {
	ft := fn.Type()
	bm := &boundMethod{fn: fn, variadic: ft.IsVariadic()}
	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) == errType {
			bm.returnsError = true
		} else {
			bm.returnsValue = true
		}
	case 2:
		if ft.Out(1) != errType {
			return nil, false
		}
		bm.returnsValue = true
		bm.returnsError = true
	default:
		return nil, false
	}
	start := 0
	if ft.NumIn() > 0 && ft.In(0) == ctxType {
		bm.wantsCtx = true
		start = 1
	}
	for i := start; i < ft.NumIn(); i++ {
		bm.params = append(bm.params, ft.In(i))
	}
	return bm, true
}

func (h *reflectHandler) Exposes(method string) bool {
	_, ok := h.methods[method]
	return ok
}

func (h *reflectHandler) Methods() []string {
	return sortedKeys(h.methods)
}

func (h *reflectHandler) Invoke(ctx context.Context, method string, params []json.RawMessage) (outcome Outcome) {
	bm, ok := h.methods[method]
	if !ok {
		return NotFound()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(panicError(r))
		}
	}()
	args, err := bm.buildArgs(ctx, params)
	if err != nil {
		return Failed(err)
	}
	return bm.outcome(bm.fn.Call(args))
}

// buildArgs decodes the raw positional arguments into the declared
// parameter types, checking arity first.
func (m *boundMethod) buildArgs(ctx context.Context, params []json.RawMessage) ([]reflect.Value, error) {
	fixed := len(m.params)
	if m.variadic {
		fixed--
	}
	if len(params) < fixed || (!m.variadic && len(params) > fixed) {
		return nil, fmt.Errorf("method takes %d argument(s), got %d", fixed, len(params))
	}
	args := make([]reflect.Value, 0, len(params)+1)
	if m.wantsCtx {
		args = append(args, reflect.ValueOf(ctx))
	}
	for i, raw := range params {
		var paramType reflect.Type
		if i < fixed {
			paramType = m.params[i]
		} else {
			paramType = m.params[fixed].Elem()
		}
		arg := reflect.New(paramType)
		if err := json.Unmarshal(raw, arg.Interface()); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args = append(args, arg.Elem())
	}
	return args, nil
}

// outcome maps the method's return values to a tagged Outcome. Methods
// without an error return use a bare false as the failure sentinel.
func (m *boundMethod) outcome(results []reflect.Value) Outcome {
	var value any
	if m.returnsValue {
		value = results[0].Interface()
	}
	if m.returnsError {
		errIdx := 0
		if m.returnsValue {
			errIdx = 1
		}
		if !results[errIdx].IsNil() {
			return Failed(results[errIdx].Interface().(error))
		}
		return OK(value)
	}
	if b, ok := value.(bool); ok && !b {
		return Failed(errors.New("method reported failure"))
	}
	return OK(value)
}

// asHandler adapts a bound instance to the Handler interface: explicit
// implementations pass through, MethodMapper tables are honored, everything
// else gets a reflection-built method table.
func asHandler(instance any) (Handler, bool) {
	if instance == nil {
		return nil, false
	}
	switch v := instance.(type) {
	case Handler:
		return v, true
	case MethodMapper:
		return newTableHandler(v), true
	default:
		return newReflectHandler(instance), true
	}
}

// wireName maps a Go method name to its wire form, lowering the first rune.
func wireName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
