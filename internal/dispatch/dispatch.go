// Package dispatch calls message command handlers with arguments parsed from
// the message content.
//
// A handler is a function of the form
//
//	func(cc *convert.Context, m *discordgo.Message, args ...) error
//
// whose trailing parameters are described by converters. Wrap analyses the
// handler once, compiles its parser and checks that every resolved value can
// be handed to the declared parameter type.
package dispatch

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/parser"
)

// ErrUnbound is returned when a method dispatcher is invoked before Bind.
var ErrUnbound = errors.New("dispatch: method handler is not bound")

// reserved is the number of leading (context, message) parameters.
const reserved = 2

var (
	contextType = reflect.TypeOf((*convert.Context)(nil))
	messageType = reflect.TypeOf((*discordgo.Message)(nil))
	stringType  = reflect.TypeOf("")
	valuesType  = reflect.TypeOf([]any(nil))
)

// Dispatcher is an analysed handler. It is immutable and safe for concurrent
// use; Bind returns a new dispatcher sharing the same parser.
type Dispatcher struct {
	name       string
	handler    reflect.Value
	failure    reflect.Value
	method     bool
	owner      reflect.Value
	args       []reflect.Type
	variadic   bool
	convention convert.CallingConvention
	converters []*convert.Converter
	parser     *parser.Parser
	rawDefault parser.Defaulter
}

// Wrap analyses handler and compiles its argument parser with c.
// Definition errors are returned here and never from Invoke.
func Wrap(c *parser.Compiler, handler any, opts ...Option) (*Dispatcher, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	skip := 0
	if o.method {
		skip = 1
	}

	introspected, err := convert.Introspect(handler, skip)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	fn := reflect.ValueOf(handler)
	d := &Dispatcher{
		name:     funcName(fn),
		handler:  fn,
		method:   o.method,
		variadic: fn.Type().IsVariadic(),
	}
	for i := skip + reserved; i < fn.Type().NumIn(); i++ {
		d.args = append(d.args, fn.Type().In(i))
	}

	params, err := d.params(introspected, &o)
	if err != nil {
		return nil, err
	}
	cs, conv, err := c.Registry().AnalyzeSignature(params)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %s: %w", d.name, err)
	}
	if err := d.checkTypes(cs); err != nil {
		return nil, err
	}

	if o.guard != nil {
		flags := convert.Flag(0)
		if o.guard.inverted {
			flags = convert.Inverted
		}
		g, err := c.Registry().NewConverter(convert.TypeGuard, convert.WithDefaultSource(o.guard.source), convert.WithFlags(flags))
		if err != nil {
			return nil, fmt.Errorf("dispatch: %s: guard: %w", d.name, err)
		}
		cs = append([]*convert.Converter{g}, cs...)
		conv = convert.ConventionCompiled
	}
	d.converters = cs
	d.convention = conv

	switch conv {
	case convert.ConventionCompiled:
		if d.parser, err = c.Compile(cs); err != nil {
			return nil, fmt.Errorf("dispatch: %s: %w", d.name, err)
		}
	case convert.ConventionRawContent:
		if d.rawDefault, err = c.DefaultFor(cs[0]); err != nil {
			return nil, fmt.Errorf("dispatch: %s: %w", d.name, err)
		}
	}

	if o.failure != nil {
		if d.failure, err = failureFunc(o.failure, skip); err != nil {
			return nil, fmt.Errorf("dispatch: %s: %w", d.name, err)
		}
	}
	return d, nil
}

// params applies WithParams, WithDefault and WithAnnotation to the
// introspected parameter list.
func (d *Dispatcher) params(introspected []convert.ParameterInfo, o *options) ([]convert.ParameterInfo, error) {
	params := introspected
	if o.params != nil {
		if len(o.params) != len(introspected) {
			return nil, d.unsupported("", "%d declared parameters for a handler taking %d", len(o.params), len(introspected))
		}
		params = o.params
	}
	if len(params) < reserved {
		return nil, d.unsupported("", "handler takes %d parameters, need at least %d", len(params), reserved)
	}
	if len(o.defaults) == 0 && len(o.annotations) == 0 {
		return params, nil
	}

	params = append([]convert.ParameterInfo(nil), params...)
	for pos, v := range o.defaults {
		if pos < 0 || pos+reserved >= len(params) {
			return nil, d.unsupported("", "default for argument %d out of range", pos)
		}
		params[pos+reserved].HasDefault = true
		params[pos+reserved].Default = v
	}
	for pos, a := range o.annotations {
		if pos < 0 || pos+reserved >= len(params) {
			return nil, d.unsupported("", "annotation for argument %d out of range", pos)
		}
		params[pos+reserved].Annotation = a
	}
	return params, nil
}

// checkTypes rejects converters whose values cannot reach the handler
// parameter they are bound to.
func (d *Dispatcher) checkTypes(cs []*convert.Converter) error {
	if len(cs) != len(d.args) {
		return d.unsupported("", "%d converters for %d arguments", len(cs), len(d.args))
	}
	for i, c := range cs {
		from := c.Profile().Value
		to := d.args[i]
		if from == nil {
			continue
		}
		if !c.Arity().Single() {
			if to.Kind() != reflect.Slice {
				return d.unsupported(fmt.Sprintf("arg%d", i), "%s collects several values, parameter is %v", c, to)
			}
			to = to.Elem()
		}
		if !compatible(from, to) {
			return d.unsupported(fmt.Sprintf("arg%d", i), "%s yields %v, parameter is %v", c, from, to)
		}
	}
	return nil
}

func (d *Dispatcher) unsupported(param, format string, args ...any) error {
	e := convert.NewError(convert.KindUnsupportedSignature, "", fmt.Sprintf(format, args...))
	e.Param = param
	return fmt.Errorf("dispatch: %s: %w", d.name, e)
}

func failureFunc(fn any, skip int) (reflect.Value, error) {
	v := reflect.ValueOf(fn)
	t := v.Type()
	want := []reflect.Type{contextType, messageType, stringType, valuesType}
	bad := t.Kind() != reflect.Func || t.NumIn() != skip+len(want) || t.IsVariadic() ||
		t.NumOut() != 1 || t.Out(0) != reflect.TypeOf((*error)(nil)).Elem()
	if !bad {
		for i, w := range want {
			if t.In(skip+i) != w {
				bad = true
				break
			}
		}
	}
	if bad {
		return reflect.Value{}, convert.NewError(convert.KindUnsupportedSignature, "",
			fmt.Sprintf("failure handler %v must be func(*convert.Context, *discordgo.Message, string, []any) error", t))
	}
	return v, nil
}

// Name returns the handler's function name.
func (d *Dispatcher) Name() string { return d.name }

func (d *Dispatcher) Convention() convert.CallingConvention { return d.convention }

// Converters returns the converter sequence, guard included.
func (d *Dispatcher) Converters() []*convert.Converter {
	return append([]*convert.Converter(nil), d.converters...)
}

// Parser returns the compiled parser, or nil unless the convention is
// ConventionCompiled.
func (d *Dispatcher) Parser() *parser.Parser { return d.parser }

// Bound reports whether the dispatcher can be invoked.
func (d *Dispatcher) Bound() bool { return !d.method || d.owner.IsValid() }

// Bind returns a copy of a method dispatcher that passes owner as the
// receiver of the handler and of the failure handler.
func (d *Dispatcher) Bind(owner any) (*Dispatcher, error) {
	if !d.method {
		return nil, fmt.Errorf("dispatch: %s is not a method handler", d.name)
	}
	ov := reflect.ValueOf(owner)
	if !ov.IsValid() || !ov.Type().AssignableTo(d.handler.Type().In(0)) {
		return nil, fmt.Errorf("dispatch: cannot bind %T to %s", owner, d.name)
	}
	if d.failure.IsValid() && !ov.Type().AssignableTo(d.failure.Type().In(0)) {
		return nil, fmt.Errorf("dispatch: cannot bind %T to the failure handler of %s", owner, d.name)
	}
	bound := *d
	bound.owner = ov
	return &bound, nil
}

// Invoke parses content and calls the handler. Content that does not parse
// goes to the failure handler when there is one and is otherwise dropped.
func (d *Dispatcher) Invoke(cc *convert.Context, m *discordgo.Message, content string) error {
	if !d.Bound() {
		return ErrUnbound
	}
	in := make([]reflect.Value, 0, 1+reserved+len(d.args))
	if d.method {
		in = append(in, d.owner)
	}
	in = append(in, reflect.ValueOf(cc), reflect.ValueOf(m))

	switch d.convention {
	case convert.ConventionNoArgs:
		return call(d.handler, in, false)
	case convert.ConventionRawContent:
		var v any = content
		if strings.TrimSpace(content) == "" {
			if dv, ok := d.rawDefault(cc, content); ok {
				v = dv
			}
		}
		arg, err := coerce(v, d.args[0])
		if err != nil {
			return fmt.Errorf("dispatch: %s: argument 1: %w", d.name, err)
		}
		return call(d.handler, append(in, arg), false)
	}

	ok, values := d.parser.Parse(cc, content)
	if !ok {
		if !d.failure.IsValid() {
			return nil
		}
		return call(d.failure, append(in, reflect.ValueOf(content), reflect.ValueOf(values)), false)
	}
	for i, v := range values {
		arg, err := coerce(v, d.args[i])
		if err != nil {
			return fmt.Errorf("dispatch: %s: argument %d: %w", d.name, i+1, err)
		}
		in = append(in, arg)
	}
	return call(d.handler, in, d.variadic)
}

func call(fn reflect.Value, in []reflect.Value, spread bool) error {
	var out []reflect.Value
	if spread {
		out = fn.CallSlice(in)
	} else {
		out = fn.Call(in)
	}
	err, _ := out[0].Interface().(error)
	return err
}

func funcName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return fn.Type().String()
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
