package convert

import (
	"fmt"
	"strings"
)

// Arity bounds how many tokens a slot consumes. Max == 0 means unbounded,
// so {0, 0} collects whatever remains.
type Arity struct {
	Min int
	Max int
}

var (
	single   = Arity{Min: 1, Max: 1}
	variadic = Arity{}
)

func (a Arity) Single() bool    { return a == single }
func (a Arity) Unbounded() bool { return a.Max == 0 }

func (a Arity) String() string {
	switch {
	case a.Single():
		return "1"
	case a.Unbounded():
		return fmt.Sprintf("%d..", a.Min)
	}
	return fmt.Sprintf("%d..%d", a.Min, a.Max)
}

// Converter describes how one argument slot is resolved.
type Converter struct {
	profile *TypeProfile
	flags   Flag
	arity   Arity
	def     Default
}

func (c *Converter) Profile() *TypeProfile { return c.profile }
func (c *Converter) Type() string          { return c.profile.Name }
func (c *Converter) Flags() Flag           { return c.flags }
func (c *Converter) Arity() Arity          { return c.arity }
func (c *Converter) Default() Default      { return c.def }
func (c *Converter) HasDefault() bool      { return c.def.Kind != DefaultNone }

// Remainder reports whether the slot captures text instead of tokens.
func (c *Converter) Remainder() bool {
	return c.profile.Name == TypeContent || c.profile.Name == TypeRest
}

// Key renders the fields that define converter equality.
func (c *Converter) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", c.profile.Name, c.flags, c.arity, c.def.Kind, c.def.Repr())
}

func (c *Converter) String() string { return c.Key() }

// Variadic returns a copy whose arity collects every remaining token.
// Arity other than exactly one is kept as is.
func (c *Converter) Variadic() *Converter {
	if !c.arity.Single() || !c.profile.ArityMeaningful {
		return c
	}
	c2 := *c
	c2.arity = variadic
	return &c2
}

// Signature joins the keys of a converter sequence. Equal signatures share
// one compiled parser.
func Signature(cs []*Converter) string {
	keys := make([]string, len(cs))
	for i, c := range cs {
		keys[i] = c.Key()
	}
	return strings.Join(keys, ";")
}

type options struct {
	flags     Flag
	arity     Arity
	aritySet  bool
	err       error
	value     any
	hasValue  bool
	source    string
	hasSource bool
}

// Option configures NewConverter.
type Option func(*options)

func WithFlags(f Flag) Option {
	return func(o *options) { o.flags = f }
}

// WithArity makes the slot consume exactly n tokens.
func WithArity(n int) Option {
	return func(o *options) {
		o.aritySet = true
		if n < 1 {
			o.err = NewError(KindInvalidArity, "", fmt.Sprintf("arity %d is not positive", n))
			return
		}
		o.arity = Arity{Min: n, Max: n}
	}
}

// WithRange makes the slot consume between min and max tokens; max 0 is unbounded.
func WithRange(min, max int) Option {
	return func(o *options) {
		o.aritySet = true
		switch {
		case min < 0 || max < 0:
			o.err = NewError(KindInvalidArity, "", fmt.Sprintf("negative bound in (%d, %d)", min, max))
			return
		case min != 0 && max != 0 && min > max:
			o.err = NewError(KindInvalidArity, "", fmt.Sprintf("min %d exceeds max %d", min, max))
			return
		}
		o.arity = Arity{Min: min, Max: max}
	}
}

func WithDefault(v any) Option {
	return func(o *options) {
		o.value = v
		o.hasValue = true
	}
}

// WithDefaultSource sets an expression evaluated each time the default is needed.
func WithDefaultSource(src string) Option {
	return func(o *options) {
		o.source = src
		o.hasSource = true
	}
}

// NewConverter builds a converter for the named profile.
func (r *Registry) NewConverter(typeName string, opts ...Option) (*Converter, error) {
	p, ok := r.Profile(typeName)
	if !ok {
		return nil, NewError(KindUnknownType, typeName, "no such converter type")
	}

	o := options{arity: single}
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		o.err.(*Error).Type = typeName
		return nil, o.err
	}
	if o.hasValue && o.hasSource {
		return nil, NewError(KindConflictingDefault, typeName, "both a default value and a default source were given")
	}
	if o.aritySet && !o.arity.Single() && !p.ArityMeaningful {
		return nil, NewError(KindInvalidArity, typeName, "arity is not meaningful for this type")
	}

	c := &Converter{
		profile: p,
		flags:   Normalize(o.flags, p),
		arity:   o.arity,
	}
	switch {
	case o.hasSource:
		src := strings.TrimSpace(o.source)
		if src == "" {
			return nil, NewError(KindConflictingDefault, typeName, "empty default source")
		}
		c.def = Default{Kind: DefaultSource, source: src}
	case o.hasValue:
		c.def = r.defaults.defaultFor(o.value)
	}
	return c, nil
}

// WithDefaultValue returns a copy of c defaulting to v. A converter already
// carrying a default cannot take another one.
func (r *Registry) WithDefaultValue(c *Converter, v any) (*Converter, error) {
	if c.HasDefault() {
		return nil, NewError(KindConflictingDefault, c.Type(), "converter already has a default")
	}
	c2 := *c
	c2.def = r.defaults.defaultFor(v)
	return &c2, nil
}
