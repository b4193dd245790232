package dispatch

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/pkg/cmd"
)

// Source is the invocation payload a dispatcher command understands.
type Source interface {
	ConvertContext() *convert.Context
	Message() *discordgo.Message
}

// Request is a plain Source for callers without a transport of their own.
type Request struct {
	Conv *convert.Context
	Msg  *discordgo.Message
}

func (r *Request) ConvertContext() *convert.Context { return r.Conv }
func (r *Request) Message() *discordgo.Message      { return r.Msg }

// Command adapts a dispatcher to cmd.Command.
type Command struct {
	name        string
	description string
	aliases     []string
	dispatcher  *Dispatcher
}

// NewCommand returns a command running d. A method dispatcher must be bound.
func NewCommand(name, description string, d *Dispatcher, aliases ...string) (*Command, error) {
	if !d.Bound() {
		return nil, fmt.Errorf("dispatch: command %q: %w", name, ErrUnbound)
	}
	return &Command{name: name, description: description, aliases: aliases, dispatcher: d}, nil
}

func (c *Command) Name() string            { return c.name }
func (c *Command) Description() string     { return c.description }
func (c *Command) Aliases() []string       { return c.aliases }
func (c *Command) Dispatcher() *Dispatcher { return c.dispatcher }

// Run invokes the dispatcher with the Source carried in inv.Data. ctx
// replaces the context of the conversion context.
func (c *Command) Run(ctx context.Context, inv *cmd.Invocation) error {
	src, ok := inv.Data.(Source)
	if !ok {
		return fmt.Errorf("dispatch: command %q: unsupported invocation data %T", c.name, inv.Data)
	}
	cc := src.ConvertContext()
	if cc == nil {
		cc = &convert.Context{}
	}
	return c.dispatcher.Invoke(cc.WithContext(ctx), src.Message(), inv.Content)
}
