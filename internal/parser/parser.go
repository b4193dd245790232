package parser

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/keshon/argconv/internal/convert"
)

// slot is the compiled form of one converter. It carries no pointer to the
// converter so a cached parser never keeps default values alive.
type slot struct {
	profile *convert.TypeProfile
	flags   convert.Flag
	arity   convert.Arity
	def     defaultSpec
}

type defaultSpec struct {
	kind    convert.DefaultKind
	literal any
	ref     uint64
	program *goja.Program
}

// Parser is a compiled converter sequence. It is safe for concurrent use;
// each Parse call keeps its cursor on its own stack.
type Parser struct {
	key        string
	slots      []slot
	needsGuild bool
	defaults   *convert.DefaultTable
	eval       *evaluator
	logger     *zap.Logger
}

// state is the cursor of one Parse call.
type state struct {
	cc      *convert.Context
	content string
	runes   []rune
	cursor  int
}

// Key returns the converter signature the parser was compiled from.
func (p *Parser) Key() string { return p.key }

// NeedsGuild reports whether Parse fails outright outside a guild.
func (p *Parser) NeedsGuild() bool { return p.needsGuild }

// Parse resolves content into one value per value-producing slot. On failure
// it returns false and the values resolved before the failing slot.
// Malformed input is never an error.
func (p *Parser) Parse(cc *convert.Context, content string) (bool, []any) {
	values := make([]any, 0, len(p.slots))
	if cc == nil {
		cc = &convert.Context{}
	}
	if p.needsGuild && cc.GuildID == "" {
		return false, values
	}

	s := &state{cc: cc, content: content, runes: []rune(content)}
	for i := range p.slots {
		sl := &p.slots[i]

		var (
			v  any
			ok bool
		)
		switch sl.profile.Name {
		case convert.TypeGuard:
			if !p.guard(s, sl) {
				return false, values
			}
			continue
		case convert.TypeContent:
			v, ok = p.capture(s, sl, content)
		case convert.TypeRest:
			v, ok = p.capture(s, sl, string(s.runes[s.cursor:]))
			s.cursor = len(s.runes)
		default:
			if sl.arity.Single() {
				v, ok = p.one(s, sl)
			} else {
				v, ok = p.many(s, sl)
			}
		}
		if !ok {
			return false, values
		}
		values = append(values, v)
	}
	return true, values
}

func (p *Parser) guard(s *state, sl *slot) bool {
	v, _ := p.fallback(s, sl)
	return truthy(v) != sl.flags.Inverted()
}

// capture returns trimmed text, or the default when the text is empty and
// the slot has one.
func (p *Parser) capture(s *state, sl *slot, text string) (any, bool) {
	text = strings.TrimSpace(text)
	if text == "" && sl.def.kind != convert.DefaultNone {
		return p.fallback(s, sl)
	}
	return text, true
}

func (p *Parser) one(s *state, sl *slot) (any, bool) {
	tok, next, ok := nextToken(s.runes, s.cursor)
	if !ok {
		return p.fallback(s, sl)
	}
	v, ok := p.value(s, sl, tok)
	if !ok {
		return p.fallback(s, sl)
	}
	s.cursor = next
	return v, true
}

// many collects tokens until the upper bound, the end of input or the first
// token that does not resolve. That token stays unconsumed.
func (p *Parser) many(s *state, sl *slot) (any, bool) {
	got := []any{}
	for sl.arity.Unbounded() || len(got) < sl.arity.Max {
		tok, next, ok := nextToken(s.runes, s.cursor)
		if !ok {
			break
		}
		v, ok := p.value(s, sl, tok)
		if !ok {
			break
		}
		got = append(got, v)
		s.cursor = next
	}
	if len(got) < sl.arity.Min {
		d, ok := p.fallback(s, sl)
		if !ok {
			return nil, false
		}
		for len(got) < sl.arity.Min {
			got = append(got, d)
		}
	}
	return got, true
}

// fallback produces the slot default; false means the slot has none.
func (p *Parser) fallback(s *state, sl *slot) (any, bool) {
	return p.defaultValue(s.cc, s.content, &sl.def)
}

func (p *Parser) defaultValue(cc *convert.Context, content string, d *defaultSpec) (any, bool) {
	switch d.kind {
	case convert.DefaultLiteral:
		return d.literal, true
	case convert.DefaultObject:
		return p.defaults.Load(d.ref)
	case convert.DefaultSource:
		v, err := p.eval.eval(cc, content, d.program)
		if err != nil {
			p.logger.Debug("default expression failed", zap.String("parser", p.key), zap.Error(err))
			return nil, false
		}
		return v, true
	}
	return nil, false
}
