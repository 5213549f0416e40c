// Package handler provides reflection-based invocation for the bridge package.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/internal/signature"
	"github.com/jdziat/simple-callback-bridge/pkg/serializer"
)

var exactNumbers = serializer.NewJSON(serializer.UseNumber())

// Config holds per-instance construction settings.
type Config struct {
	// Ignore lists wire indices to skip in addition to core.Ignored markers.
	Ignore []int
	// Serializer decodes typed and opaque arguments. Defaults to serializer.Default().
	Serializer serializer.Serializer
}

// Handler wraps one function for invocation from serialized arguments.
// Nothing in a Handler changes after NewHandler returns.
type Handler struct {
	fn         reflect.Value
	desc       *signature.Descriptor
	ignored    []int
	ignoredSet []bool
	serializer serializer.Serializer
}

// NewHandler creates a Handler from a function.
// The function may take an optional leading context.Context followed by any
// number of JSON-decodable parameters, and must return (), T, error or (T, error).
func NewHandler(fn any, cfg Config) (*Handler, error) {
	if fn == nil {
		return nil, core.ErrNilFunction
	}

	fnVal := reflect.ValueOf(fn)
	if fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: got %T", core.ErrNotFunction, fn)
	}
	// Check for typed nil (e.g., var fn func() = nil)
	if fnVal.IsNil() {
		return nil, core.ErrNilFunction
	}

	desc, err := signature.For(fnVal.Type())
	if err != nil {
		return nil, err
	}

	ignored, err := ignoredIndices(desc, cfg.Ignore)
	if err != nil {
		return nil, err
	}

	set := make([]bool, desc.Arity())
	for _, i := range ignored {
		set[i] = true
	}

	s := cfg.Serializer
	if s == nil {
		s = serializer.Default()
	}

	return &Handler{
		fn:         fnVal,
		desc:       desc,
		ignored:    ignored,
		ignoredSet: set,
		serializer: s,
	}, nil
}

// ignoredIndices merges marker positions with explicit indices into a sorted set.
func ignoredIndices(desc *signature.Descriptor, explicit []int) ([]int, error) {
	out := desc.Markers()
	for _, i := range explicit {
		if i < 0 || i >= desc.Arity() {
			return nil, fmt.Errorf("%w: index %d, arity %d", core.ErrIgnoredIndexOutOfRange, i, desc.Arity())
		}
		out = append(out, i)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// Arity returns the number of wire arguments Invoke expects.
func (h *Handler) Arity() int {
	return h.desc.Arity()
}

// ReturnsValue reports whether Invoke produces a value.
func (h *Handler) ReturnsValue() bool {
	return h.desc.ReturnsValue
}

// Shape returns the wrapped function's type as a string.
func (h *Handler) Shape() string {
	return h.desc.Shape()
}

// IgnoredIndices returns a copy of the ignored wire indices, ascending.
// The result is never nil.
func (h *Handler) IgnoredIndices() []int {
	return append([]int{}, h.ignored...)
}

// IsIgnored reports whether wire index i is never deserialized.
func (h *Handler) IsIgnored(i int) bool {
	return i >= 0 && i < len(h.ignoredSet) && h.ignoredSet[i]
}

// Invoke decodes rawArgs by declared parameter type and calls the function.
// Errors returned by the function itself are passed through unchanged.
func (h *Handler) Invoke(ctx context.Context, rawArgs []string) (any, error) {
	arity := h.desc.Arity()
	if len(rawArgs) != arity {
		return nil, &core.ArgumentCountError{Want: arity, Got: len(rawArgs)}
	}

	var in []reflect.Value
	if h.desc.HasContext {
		if ctx == nil {
			ctx = context.Background()
		}
		in = make([]reflect.Value, 0, arity+1)
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}

	if arity == 0 {
		return h.result(h.fn.Call(in))
	}

	if in == nil {
		in = make([]reflect.Value, 0, arity)
	}
	for i, raw := range rawArgs {
		v, err := h.resolve(i, raw)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	return h.result(h.fn.Call(in))
}

// resolve produces the argument value for wire index i.
func (h *Handler) resolve(i int, raw string) (reflect.Value, error) {
	typ := h.desc.Params[i]

	if h.ignoredSet[i] {
		return reflect.Zero(typ), nil
	}

	if h.desc.Opaque(i) {
		return h.resolveTree(i, typ, raw)
	}

	ptr := reflect.New(typ)
	if err := h.serializer.Unmarshal([]byte(raw), ptr.Interface()); err != nil {
		return reflect.Value{}, &core.DeserializeError{Index: i, Type: typ, Err: err}
	}
	return ptr.Elem(), nil
}

// resolveTree parses raw as an untyped JSON value. Only syntax can fail here.
func (h *Handler) resolveTree(i int, typ reflect.Type, raw string) (reflect.Value, error) {
	if typ.Kind() != reflect.Interface {
		// json.RawMessage keeps the text verbatim once it is known to be valid.
		if !json.Valid([]byte(raw)) {
			return reflect.Value{}, &core.DeserializeError{Index: i, Type: typ, Err: fmt.Errorf("invalid JSON text")}
		}
		return reflect.ValueOf(json.RawMessage(raw)).Convert(typ), nil
	}

	if !json.Valid([]byte(raw)) {
		return reflect.Value{}, &core.DeserializeError{Index: i, Type: typ, Err: fmt.Errorf("invalid JSON text")}
	}

	// Valid text can still overflow float64 under the plain policy; such
	// numbers are kept as json.Number.
	var tree any
	if err := h.serializer.Unmarshal([]byte(raw), &tree); err != nil {
		tree = nil
		if err := exactNumbers.Unmarshal([]byte(raw), &tree); err != nil {
			return reflect.Value{}, &core.DeserializeError{Index: i, Type: typ, Err: err}
		}
	}
	if tree == nil {
		return reflect.Zero(typ), nil
	}

	v := reflect.New(typ).Elem()
	v.Set(reflect.ValueOf(tree))
	return v, nil
}

// result maps the function's return values onto (value, error).
func (h *Handler) result(out []reflect.Value) (any, error) {
	switch {
	case h.desc.ReturnsValue && h.desc.ReturnsError:
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	case h.desc.ReturnsValue:
		return out[0].Interface(), nil
	case h.desc.ReturnsError:
		if err, _ := out[0].Interface().(error); err != nil {
			return nil, err
		}
	}
	return nil, nil
}
