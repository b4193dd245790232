package convert

import (
	"context"
	"reflect"

	"github.com/bwmarrin/discordgo"
)

// Kind identifies the entity family a lookup is asked about.
type Kind uint8

const (
	KindNone Kind = iota
	KindUser
	KindRole
	KindChannel
	KindGuild
	KindEmoji
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindRole:
		return "role"
	case KindChannel:
		return "channel"
	case KindGuild:
		return "guild"
	case KindEmoji:
		return "emoji"
	}
	return "none"
}

// Scope restricts a lookup. The zero Scope is global.
type Scope struct {
	GuildID   string
	ChannelID string
}

func (s Scope) Global() bool { return s.GuildID == "" && s.ChannelID == "" }

// Lookup is the entity cache the parser resolves tokens against.
// Implementations return an untyped nil when nothing matches.
type Lookup interface {
	LookupByID(kind Kind, scope Scope, id string) any
	LookupByName(kind Kind, scope Scope, name string) any
	FetchRemote(ctx context.Context, kind Kind, scope Scope, id string) (any, error)
}

// Context is the per-message state handed to handlers as their first argument.
type Context struct {
	GuildID   string
	ChannelID string
	AuthorID  string
	Lookup    Lookup

	ctx context.Context
}

// NewContext builds a Context for a message received in guildID/channelID.
func NewContext(ctx context.Context, lookup Lookup, guildID, channelID, authorID string) *Context {
	return &Context{
		GuildID:   guildID,
		ChannelID: channelID,
		AuthorID:  authorID,
		Lookup:    lookup,
		ctx:       ctx,
	}
}

// Context returns the invocation context; it is never nil.
func (c *Context) Context() context.Context {
	if c == nil || c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// WithContext returns a shallow copy of c using ctx.
func (c *Context) WithContext(ctx context.Context) *Context {
	c2 := *c
	c2.ctx = ctx
	return &c2
}

// Scope returns the lookup scope of the message.
func (c *Context) Scope() Scope {
	return Scope{GuildID: c.GuildID, ChannelID: c.ChannelID}
}

var (
	contextType = reflect.TypeOf((*Context)(nil))
	messageType = reflect.TypeOf((*discordgo.Message)(nil))
)
