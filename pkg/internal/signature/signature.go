package signature

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/security"
)

var (
	contextType    = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	rawMessageType = reflect.TypeOf(json.RawMessage(nil))
	ignoredType    = reflect.TypeOf(core.Ignored{})
)

// Descriptor holds the reflected facts about one function shape.
// It is never mutated after For returns it.
type Descriptor struct {
	Type         reflect.Type
	Params       []reflect.Type // wire parameters, context excluded
	HasContext   bool
	ReturnsValue bool
	ReturnsError bool

	opaque  []bool
	markers []int
}

// Arity is the number of wire parameters.
func (d *Descriptor) Arity() int {
	return len(d.Params)
}

// Opaque reports whether wire parameter i accepts an untyped JSON tree.
func (d *Descriptor) Opaque(i int) bool {
	return d.opaque[i]
}

// Markers returns the wire positions declared with the core.Ignored type.
func (d *Descriptor) Markers() []int {
	return append([]int(nil), d.markers...)
}

// Shape returns the func type's string form.
func (d *Descriptor) Shape() string {
	return d.Type.String()
}

type entry struct {
	once sync.Once
	desc *Descriptor
	err  error
}

var registry sync.Map // reflect.Type -> *entry

// For returns the shared descriptor for fnType, building it on first use.
// A shape that cannot be described fails the same way on every call.
func For(fnType reflect.Type) (*Descriptor, error) {
	if fnType == nil {
		return nil, core.ErrNilFunction
	}
	v, _ := registry.LoadOrStore(fnType, &entry{})
	e := v.(*entry)
	e.once.Do(func() {
		e.desc, e.err = build(fnType)
	})
	return e.desc, e.err
}

func build(t reflect.Type) (*Descriptor, error) {
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %w: %v", core.ErrInvalidShape, core.ErrNotFunction, t)
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("%w: %w: %v", core.ErrInvalidShape, core.ErrVariadicFunction, t)
	}

	d := &Descriptor{Type: t}

	start := 0
	if t.NumIn() > 0 && t.In(0) == contextType {
		d.HasContext = true
		start = 1
	}

	if t.NumIn()-start > security.MaxArity {
		return nil, fmt.Errorf("%w: %w: %d > %d", core.ErrInvalidShape, core.ErrTooManyParameters, t.NumIn()-start, security.MaxArity)
	}

	for i := start; i < t.NumIn(); i++ {
		p := t.In(i)
		pos := len(d.Params)
		d.Params = append(d.Params, p)
		d.opaque = append(d.opaque, isOpaque(p))
		if p == ignoredType {
			d.markers = append(d.markers, pos)
		}
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			d.ReturnsError = true
		} else {
			d.ReturnsValue = true
		}
	case 2:
		if t.Out(1) != errorType || t.Out(0) == errorType {
			return nil, fmt.Errorf("%w: %w: %v", core.ErrInvalidShape, core.ErrUnsupportedReturnValues, t)
		}
		d.ReturnsValue = true
		d.ReturnsError = true
	default:
		return nil, fmt.Errorf("%w: %w: %v", core.ErrInvalidShape, core.ErrUnsupportedReturnValues, t)
	}

	return d, nil
}

// isOpaque reports whether values of t are resolved as generic JSON trees.
func isOpaque(t reflect.Type) bool {
	if t == rawMessageType {
		return true
	}
	return t.Kind() == reflect.Interface && t.NumMethod() == 0
}
