package dispatch

import "github.com/keshon/argconv/internal/convert"

type options struct {
	method      bool
	params      []convert.ParameterInfo
	defaults    map[int]any
	annotations map[int]any
	guard       *guardSpec
	failure     any
}

type guardSpec struct {
	source   string
	inverted bool
}

// Option configures Wrap.
type Option func(*options)

// Method marks the handler as a method expression such as (*T).Run. The
// receiver is supplied later by Bind.
func Method() Option {
	return func(o *options) { o.method = true }
}

// WithParams replaces the introspected parameter list. The list describes
// every parameter after the receiver, context and message included.
func WithParams(params []convert.ParameterInfo) Option {
	return func(o *options) { o.params = params }
}

// WithDefault gives the argument at pos a default. Positions count the
// parameters after the context and message.
func WithDefault(pos int, v any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[int]any)
		}
		o.defaults[pos] = v
	}
}

// WithAnnotation sets the converter annotation of the argument at pos: a
// profile name, a *convert.Converter or a reflect.Type.
func WithAnnotation(pos int, a any) Option {
	return func(o *options) {
		if o.annotations == nil {
			o.annotations = make(map[int]any)
		}
		o.annotations[pos] = a
	}
}

// WithGuard runs a guard expression before any argument is parsed. The
// handler is skipped when the expression is falsy, or truthy if inverted.
func WithGuard(source string, inverted bool) Option {
	return func(o *options) { o.guard = &guardSpec{source: source, inverted: inverted} }
}

// WithFailure sets the handler called when arguments cannot be parsed. It has
// the form func(*convert.Context, *discordgo.Message, string, []any) error,
// with a leading receiver for Method dispatchers.
func WithFailure(fn any) Option {
	return func(o *options) { o.failure = fn }
}
