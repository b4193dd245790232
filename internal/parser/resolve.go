package parser

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/keshon/argconv/internal/convert"
)

// maxIntDigits bounds integer tokens before they reach strconv.
const maxIntDigits = 20

// value turns one token into the slot's value.
func (p *Parser) value(s *state, sl *slot, tok string) (any, bool) {
	switch sl.profile.Name {
	case convert.TypeString:
		return tok, true
	case convert.TypeInt:
		if len(tok) > maxIntDigits {
			return nil, false
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, false
		}
		return n, true
	case convert.TypeDuration:
		d, ok := convert.ParseDuration(tok)
		if !ok {
			return nil, false
		}
		return d, true
	case convert.TypeRelativeDuration:
		d, ok := convert.ParseRelativeDuration(tok)
		if !ok {
			return nil, false
		}
		return d, true
	}
	return p.resolve(s, sl, tok)
}

// resolve runs the entity chain: mention, then id, then name. Each step runs
// only when the slot's flags enable it and the first hit wins.
func (p *Parser) resolve(s *state, sl *slot, tok string) (any, bool) {
	lookup := s.cc.Lookup
	if lookup == nil {
		return nil, false
	}
	kind := sl.profile.Kind
	scope := s.cc.Scope()

	if sl.flags.Mention() {
		if id, partial, ok := mentionID(kind, tok); ok {
			if v := p.byID(s, sl, scope, id); v != nil {
				return v, true
			}
			if partial != nil && sl.flags.Everywhere() {
				return partial, true
			}
			return nil, false
		}
	}

	if sl.flags.ID() && isSnowflake(tok) {
		if v := p.byID(s, sl, scope, tok); v != nil {
			return v, true
		}
	}

	if sl.flags.Name() {
		name := tok
		if kind == convert.KindUser && len(name) > 1 {
			name = strings.TrimPrefix(name, "@")
		}
		if v := present(lookup.LookupByName(kind, scope, name)); v != nil {
			return v, true
		}
		if sl.flags.Everywhere() && !scope.Global() {
			if v := present(lookup.LookupByName(kind, convert.Scope{}, name)); v != nil {
				return v, true
			}
		}
	}
	return nil, false
}

// byID looks id up in scope, then globally, then remotely, as the flags allow.
func (p *Parser) byID(s *state, sl *slot, scope convert.Scope, id string) any {
	lookup := s.cc.Lookup
	kind := sl.profile.Kind

	if v := present(lookup.LookupByID(kind, scope, id)); v != nil {
		return v
	}
	if sl.flags.Everywhere() && !scope.Global() {
		if v := present(lookup.LookupByID(kind, convert.Scope{}, id)); v != nil {
			return v
		}
	}
	if !sl.flags.Everywhere() && !sl.flags.Profile() {
		return nil
	}

	ctx := s.cc.Context()
	v, err := lookup.FetchRemote(ctx, kind, remoteScope(kind, sl.flags, scope), id)
	if ctx.Err() != nil {
		p.logger.Debug("remote fetch abandoned", zap.Stringer("kind", kind), zap.String("id", id), zap.Error(ctx.Err()))
		return nil
	}
	if err != nil {
		p.logger.Debug("remote fetch failed", zap.Stringer("kind", kind), zap.String("id", id), zap.Error(err))
		return nil
	}
	return present(v)
}

// remoteScope picks the scope a remote fetch runs in. Roles and emoji only
// exist inside a guild, so they keep the message scope. Users and the rest
// are fetched globally unless the slot goes through the guild profile.
func remoteScope(kind convert.Kind, flags convert.Flag, scope convert.Scope) convert.Scope {
	switch {
	case kind == convert.KindRole, kind == convert.KindEmoji:
		return scope
	case flags.Profile():
		return scope
	}
	return convert.Scope{}
}

// present turns typed nil pointers into an untyped nil.
func present(v any) any {
	if v == nil {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return v
}

func partialEmoji(id, name string, animated bool) *discordgo.Emoji {
	return &discordgo.Emoji{ID: id, Name: name, Animated: animated}
}
