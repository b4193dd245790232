// Package commands holds the message commands of the bot. Each command is a
// method of Commands whose parameters declare how its arguments are parsed.
package commands

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/keshon/argconv/internal/config"
	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/discord"
	"github.com/keshon/argconv/internal/dispatch"
	"github.com/keshon/argconv/internal/manifest"
	"github.com/keshon/argconv/internal/middleware"
	"github.com/keshon/argconv/internal/parser"
	"github.com/keshon/argconv/internal/storage"
	"github.com/keshon/argconv/pkg/cmd"
	"github.com/keshon/argconv/pkg/jobmgr"
)

// ReminderStore keeps reminders across restarts.
type ReminderStore interface {
	PutReminder(r storage.Reminder) error
	DeleteReminder(id string) error
	Reminders(authorID string) ([]storage.Reminder, error)
}

// Commands owns the state command handlers share.
type Commands struct {
	out        discord.Sender
	jobs       *jobmgr.Manager
	store      ReminderStore
	registry   *cmd.Registry
	categories map[string]string
	logger     *zap.Logger
	now        func() time.Time
}

// New returns commands answering through out and scheduling on jobs.
func New(out discord.Sender, jobs *jobmgr.Manager, logger *zap.Logger) *Commands {
	if logger == nil {
		logger = zap.NewNop()
	}
	if jobs == nil {
		jobs = jobmgr.NewManager(nil)
	}
	return &Commands{
		out:        out,
		jobs:       jobs,
		categories: make(map[string]string),
		logger:     logger,
		now:        time.Now,
	}
}

// UseStore makes reminders persistent. Call it before Restore and before
// the bot starts.
func (c *Commands) UseStore(s ReminderStore) {
	c.store = s
}

type definition struct {
	name        string
	description string
	category    string
	aliases     []string
	handler     any
	opts        []dispatch.Option
	middleware  []cmd.Middleware
}

// Register adds every command to reg. Overrides from m replace the built-in
// description, aliases, guard and argument converters; m may be nil.
func (c *Commands) Register(reg *cmd.Registry, compiler *parser.Compiler, m *manifest.Manifest) error {
	defs, err := c.definitions(compiler.Registry())
	if err != nil {
		return fmt.Errorf("commands: %w", err)
	}

	known := make(map[string]bool, len(defs))
	for _, def := range defs {
		known[def.name] = true
	}
	if m != nil {
		for _, name := range m.Names() {
			if !known[cmd.Normalize(name)] {
				return fmt.Errorf("commands: manifest declares unknown command %q", name)
			}
		}
	}

	for _, def := range defs {
		description, aliases := def.description, def.aliases
		opts := append([]dispatch.Option{dispatch.Method(), dispatch.WithFailure((*Commands).failed)}, def.opts...)
		if o := m.Command(def.name); o != nil {
			if o.Description != "" {
				description = o.Description
			}
			if o.Aliases != nil {
				aliases = o.Aliases
			}
			extra, err := o.Options(compiler.Registry())
			if err != nil {
				return fmt.Errorf("commands: manifest %s: %w", def.name, err)
			}
			opts = append(opts, extra...)
		}

		d, err := dispatch.Wrap(compiler, def.handler, opts...)
		if err != nil {
			return fmt.Errorf("commands: %s: %w", def.name, err)
		}
		if d, err = d.Bind(c); err != nil {
			return fmt.Errorf("commands: %s: %w", def.name, err)
		}
		command, err := dispatch.NewCommand(def.name, description, d, aliases...)
		if err != nil {
			return err
		}

		mws := append(slices.Clone(def.middleware), middleware.WithCommandLogger(c.logger))
		if err := reg.Register(cmd.Apply(command, mws...)); err != nil {
			return fmt.Errorf("commands: %w", err)
		}
		c.categories[def.name] = def.category
		c.logger.Debug("registered command",
			zap.String("command", def.name),
			zap.Stringer("convention", d.Convention()),
			zap.String("signature", convert.Signature(d.Converters())),
		)
	}
	c.registry = reg
	return nil
}

func (c *Commands) definitions(r *convert.Registry) ([]definition, error) {
	member, err1 := r.NewConverter(convert.TypeUser, convert.WithFlags(convert.ByMention|convert.ByName|convert.ByID|convert.ThroughProfile))
	targets, err2 := r.NewConverter(convert.TypeUser, convert.WithRange(0, 5))
	anyEmoji, err3 := r.NewConverter(convert.TypeEmoji, convert.WithFlags(convert.ByMention|convert.ByName|convert.Everywhere))
	server, err4 := r.NewConverter(convert.TypeGuild, convert.WithFlags(convert.ByName|convert.ByID))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return nil, err
	}

	return []definition{
		{
			name:        "help",
			description: "Show the commands, or how to use one.",
			category:    config.CategoryInformation,
			handler:     (*Commands).Help,
		},
		{
			name:        "ping",
			description: "Pong!",
			category:    config.CategoryInformation,
			handler:     (*Commands).Ping,
		},
		{
			name:        "avatar",
			description: "Show a user's avatar, yours by default.",
			category:    config.CategoryLookup,
			handler:     (*Commands).Avatar,
			opts:        []dispatch.Option{dispatch.WithAnnotation(0, member), dispatch.WithDefault(0, nil)},
		},
		{
			name:        "role",
			description: "Describe a role of this server.",
			category:    config.CategoryLookup,
			handler:     (*Commands).Role,
		},
		{
			name:        "channel",
			description: "Describe a channel of this server.",
			category:    config.CategoryLookup,
			handler:     (*Commands).Channel,
		},
		{
			name:        "emoji",
			description: "Show an emoji in full size.",
			category:    config.CategoryLookup,
			handler:     (*Commands).Emoji,
			opts:        []dispatch.Option{dispatch.WithAnnotation(0, anyEmoji)},
		},
		{
			name:        "server",
			description: "Describe a server, this one by default.",
			category:    config.CategoryLookup,
			aliases:     []string{"guild"},
			handler:     (*Commands).Server,
			opts:        []dispatch.Option{dispatch.WithAnnotation(0, server), dispatch.WithDefault(0, nil)},
		},
		{
			name:        "say",
			description: "Repeat a message.",
			category:    config.CategoryUtilities,
			aliases:     []string{"echo"},
			handler:     (*Commands).Say,
		},
		{
			name:        "remind",
			description: "Remind you of something after a delay such as 1h30m.",
			category:    config.CategoryUtilities,
			handler:     (*Commands).Remind,
		},
		{
			name:        "reminders",
			description: "List your pending reminders.",
			category:    config.CategoryUtilities,
			handler:     (*Commands).Reminders,
		},
		{
			name:        "forget",
			description: "Cancel your pending reminders.",
			category:    config.CategoryUtilities,
			handler:     (*Commands).Forget,
		},
		{
			name:        "purge",
			description: "Delete recent messages, optionally only those of some users.",
			category:    config.CategoryCleanup,
			aliases:     []string{"clean"},
			handler:     (*Commands).Purge,
			opts: []dispatch.Option{
				dispatch.WithDefault(0, 10),
				dispatch.WithAnnotation(1, targets),
				dispatch.WithGuard("guild !== ''", false),
			},
			middleware: []cmd.Middleware{
				middleware.WithGuildOnly(),
				middleware.WithUserPermissions(c.logger, discordgo.PermissionManageMessages),
			},
		},
	}, nil
}

// failed answers arguments that could not be parsed. partial holds the
// values parsed before the first failure.
func (c *Commands) failed(cc *convert.Context, m *discordgo.Message, content string, partial []any) error {
	return c.send(m.ChannelID, fmt.Sprintf("Could not understand argument %d.", len(partial)+1))
}

func (c *Commands) send(channelID, content string) error {
	return discord.Message(c.out, channelID, content)
}

func (c *Commands) embed(channelID string, e *discordgo.MessageEmbed) error {
	return discord.MessageEmbed(c.out, channelID, e)
}
