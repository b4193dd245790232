package main

import (
	"context"
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/keshon/argconv/internal/commands"
	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/discord"
	"github.com/keshon/argconv/internal/dispatch"
	"github.com/keshon/argconv/internal/manifest"
	"github.com/keshon/argconv/internal/parser"
	"github.com/keshon/argconv/pkg/cmd"
	"github.com/keshon/argconv/pkg/jobmgr"
)

// env is an offline bot: commands registered against a state built from
// manifest fixtures, replying to a writer.
type env struct {
	registry  *cmd.Registry
	compiler  *parser.Compiler
	lookup    *discord.Lookup
	jobs      *jobmgr.Manager
	guildID   string
	channelID string
	author    *discordgo.User
}

func newEnv(opts *rootOptions, out io.Writer, logOut io.Writer) (*env, error) {
	level, err := zapcore.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.logLevel, err)
	}
	logger := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(logOut),
		level,
	))

	var m *manifest.Manifest
	if opts.manifestPath != "" {
		if m, err = manifest.Load(opts.manifestPath); err != nil {
			return nil, err
		}
	}

	e := &env{
		registry:  cmd.NewRegistry(),
		compiler:  parser.NewCompiler(convert.NewRegistry(), logger),
		jobs:      jobmgr.NewManager(nil),
		channelID: "0",
		author:    &discordgo.User{ID: "0", Username: "cli"},
	}
	state := discordgo.NewState()
	if m != nil && m.Fixtures != nil {
		if state, err = m.Fixtures.State(); err != nil {
			return nil, fmt.Errorf("fixtures: %w", err)
		}
		e.guildID = m.Fixtures.Guild.ID
		if id := m.Fixtures.ChannelID(); id != "" {
			e.channelID = id
		}
		if id := m.Fixtures.AuthorID(); id != "" {
			if member, err := state.Member(e.guildID, id); err == nil && member.User != nil {
				e.author = member.User
			} else {
				e.author = &discordgo.User{ID: id}
			}
		}
	}
	e.lookup = discord.NewLookup(state, nil, discord.WithLogger(logger))

	if err := commands.New(&writerSender{w: out}, e.jobs, logger).Register(e.registry, e.compiler, m); err != nil {
		return nil, err
	}
	return e, nil
}

// command returns the registered command name resolves to.
func (e *env) command(name string) (cmd.Command, *dispatch.Command, error) {
	c := e.registry.Get(name)
	if c == nil {
		return nil, nil, fmt.Errorf("unknown command %q", name)
	}
	dc, ok := cmd.Root(c).(*dispatch.Command)
	if !ok {
		return nil, nil, fmt.Errorf("command %q has no argument parser", name)
	}
	return c, dc, nil
}

// request builds the payload of an invocation from the fixture author.
// dm drops the guild.
func (e *env) request(ctx context.Context, dm bool) *dispatch.Request {
	guildID := e.guildID
	if dm {
		guildID = ""
	}
	return &dispatch.Request{
		Conv: convert.NewContext(ctx, e.lookup, guildID, e.channelID, e.author.ID),
		Msg: &discordgo.Message{
			ID:        "0",
			ChannelID: e.channelID,
			GuildID:   guildID,
			Author:    e.author,
		},
	}
}
