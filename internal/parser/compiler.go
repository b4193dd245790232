package parser

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/keshon/argconv/internal/convert"
)

// Compiler turns converter sequences into parsers and memoizes them by
// signature, so handlers with the same argument shape share one Parser.
type Compiler struct {
	registry *convert.Registry
	eval     *evaluator
	logger   *zap.Logger

	parsers sync.Map // signature -> *Parser
	group   singleflight.Group
}

// NewCompiler returns a compiler for converters built by registry.
func NewCompiler(registry *convert.Registry, logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{
		registry: registry,
		eval:     newEvaluator(),
		logger:   logger.Named("parser"),
	}
}

func (c *Compiler) Registry() *convert.Registry { return c.registry }

// Compile returns the parser for cs, building it on first use. Concurrent
// calls for one signature build it once.
func (c *Compiler) Compile(cs []*convert.Converter) (*Parser, error) {
	key := convert.Signature(cs)
	if p, ok := c.parsers.Load(key); ok {
		return p.(*Parser), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if p, ok := c.parsers.Load(key); ok {
			return p, nil
		}
		p, err := c.build(key, cs)
		if err != nil {
			return nil, err
		}
		actual, _ := c.parsers.LoadOrStore(key, p)
		c.logger.Debug("compiled parser", zap.String("key", key), zap.Int("slots", len(cs)))
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Parser), nil
}

// Len returns the number of cached parsers.
func (c *Compiler) Len() int {
	n := 0
	c.parsers.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *Compiler) build(key string, cs []*convert.Converter) (*Parser, error) {
	p := &Parser{
		key:      key,
		slots:    make([]slot, 0, len(cs)),
		defaults: c.registry.Defaults(),
		eval:     c.eval,
		logger:   c.logger,
	}
	for _, conv := range cs {
		sl, err := c.slot(conv)
		if err != nil {
			return nil, err
		}
		if sl.profile.NeedsGuild(sl.flags) {
			p.needsGuild = true
		}
		p.slots = append(p.slots, sl)
	}
	return p, nil
}

func (c *Compiler) slot(conv *convert.Converter) (slot, error) {
	profile, ok := c.registry.Profile(conv.Type())
	if !ok || profile != conv.Profile() {
		return slot{}, convert.NewError(convert.KindGeneration, conv.Type(), "converter type is not registered with this compiler")
	}
	if profile.Name == convert.TypeGuard && !conv.HasDefault() {
		return slot{}, convert.NewError(convert.KindGeneration, conv.Type(), "guard without a default expression")
	}

	def, err := c.defaultSpec(conv)
	if err != nil {
		return slot{}, err
	}
	return slot{
		profile: profile,
		flags:   conv.Flags(),
		arity:   conv.Arity(),
		def:     def,
	}, nil
}

func (c *Compiler) defaultSpec(conv *convert.Converter) (defaultSpec, error) {
	d := conv.Default()
	spec := defaultSpec{kind: d.Kind}
	switch d.Kind {
	case convert.DefaultLiteral:
		spec.literal = d.Literal()
	case convert.DefaultObject:
		spec.ref = d.Ref().ID()
	case convert.DefaultSource:
		prog, err := compileExpr(d.Source())
		if err != nil {
			e := convert.NewError(convert.KindGeneration, conv.Type(), "default source does not compile")
			e.Cause = err
			return defaultSpec{}, e
		}
		spec.program = prog
	}
	return spec, nil
}

// Defaulter evaluates one converter's default for an invocation; false means
// there is no default.
type Defaulter func(cc *convert.Context, content string) (any, bool)

// DefaultFor compiles the default of a single converter outside any parser.
func (c *Compiler) DefaultFor(conv *convert.Converter) (Defaulter, error) {
	spec, err := c.defaultSpec(conv)
	if err != nil {
		return nil, err
	}
	p := &Parser{defaults: c.registry.Defaults(), eval: c.eval, logger: c.logger}
	return func(cc *convert.Context, content string) (any, bool) {
		return p.defaultValue(cc, content, &spec)
	}, nil
}
