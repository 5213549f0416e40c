package callback

import (
	"github.com/jdziat/simple-callback-bridge/pkg/handle"
	"github.com/jdziat/simple-callback-bridge/pkg/serializer"
)

type options struct {
	ignore     []int
	serializer serializer.Serializer
	table      *handle.Table
}

// Option configures a Callback at construction.
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) { f(o) }

// IgnoreArgs marks wire argument positions that are never deserialized.
// The function receives the zero value at those positions.
func IgnoreArgs(indices ...int) Option {
	return optionFunc(func(o *options) {
		o.ignore = append(o.ignore, indices...)
	})
}

// WithSerializer sets the serializer policy used to decode arguments.
func WithSerializer(s serializer.Serializer) Option {
	return optionFunc(func(o *options) {
		o.serializer = s
	})
}

// WithTable publishes the handle in t instead of the process-wide table.
func WithTable(t *handle.Table) Option {
	return optionFunc(func(o *options) {
		o.table = t
	})
}
