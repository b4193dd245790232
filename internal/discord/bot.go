package discord

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/keshon/argconv/internal/config"
	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/pkg/cmd"
	"github.com/keshon/argconv/pkg/retrylimit"
)

// commandTimeout bounds one command run, remote fetches included.
const commandTimeout = 30 * time.Second

// Bot answers prefixed or mentioning messages by running registry commands.
type Bot struct {
	dg       *discordgo.Session
	registry *cmd.Registry
	lookup   *Lookup
	prefix   string
	logger   *zap.Logger
	ctx      context.Context
}

// NewBot creates the session and the entity lookup over its state.
func NewBot(cfg *config.Config, registry *cmd.Registry, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	limit := rate.Limit(cfg.RemoteFetchRate)
	lim := retrylimit.NewAdaptiveLimiter(limit, 1, 4*limit, 1, 0.5)
	return &Bot{
		dg:       dg,
		registry: registry,
		lookup:   NewLookup(dg.State, dg, WithLimiter(lim, cfg.RemoteFetchAttempts), WithLogger(logger)),
		prefix:   cfg.CommandPrefix,
		logger:   logger.Named("bot"),
		ctx:      context.Background(),
	}, nil
}

// Session returns the bot's session. Commands send replies through it.
func (b *Bot) Session() *discordgo.Session { return b.dg }

// Lookup returns the entity lookup commands resolve arguments with.
func (b *Bot) Lookup() *Lookup { return b.lookup }

// Run opens the gateway and serves until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.configureIntents()
	b.dg.AddHandler(b.onReady)
	b.dg.AddHandler(b.onMessageCreate)
	b.dg.AddHandler(b.onGuildCreate)

	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.logger.Info("shutdown signal received, cleaning up")
	return nil
}

// configureIntents configures the Discord intents
func (b *Bot) configureIntents() {
	b.dg.Identify.Intents = discordgo.IntentsAll
	b.dg.State.TrackMembers = true
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord bot is running",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
		zap.Int("commands", len(b.registry.GetAll())),
	)
}

func (b *Bot) onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	b.logger.Debug("guild available", zap.String("guild", g.ID), zap.String("name", g.Name), zap.Int("members", len(g.Members)))
}

// onMessageCreate is called when a message is created
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	botID := ""
	if s.State.User != nil {
		botID = s.State.User.ID
	}
	name, rest, ok := splitInvocation(m.Content, b.prefix, botID)
	if !ok {
		return
	}
	c := b.registry.Get(name)
	if c == nil {
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	mc := &MessageContext{
		Session: s,
		Event:   m,
		Conv:    convert.NewContext(ctx, b.lookup, m.GuildID, m.ChannelID, m.Author.ID),
	}
	if err := c.Run(ctx, &cmd.Invocation{Content: rest, Data: mc}); err != nil {
		b.logger.Error("error running command", zap.String("command", c.Name()), zap.Error(err))
		if rerr := mc.Reply(fmt.Sprintf("Error running command `%s`.", c.Name())); rerr != nil {
			b.logger.Warn("failed to report command error", zap.Error(rerr))
		}
	}
}

// splitInvocation strips the prefix or a leading mention of the bot and
// splits off the command name. rest keeps the author's spacing after the
// separator so raw-content commands see the text as typed.
func splitInvocation(content, prefix, botID string) (name, rest string, ok bool) {
	content = strings.TrimLeftFunc(content, unicode.IsSpace)
	switch {
	case prefix != "" && strings.HasPrefix(content, prefix):
		content = content[len(prefix):]
	case botID != "" && strings.HasPrefix(content, "<@"+botID+">"):
		content = content[len("<@"+botID+">"):]
	case botID != "" && strings.HasPrefix(content, "<@!"+botID+">"):
		content = content[len("<@!"+botID+">"):]
	default:
		return "", "", false
	}

	content = strings.TrimLeftFunc(content, unicode.IsSpace)
	end := strings.IndexFunc(content, unicode.IsSpace)
	if end < 0 {
		return content, "", content != ""
	}
	name = content[:end]
	rest = content[end:]
	_, size := utf8.DecodeRuneInString(rest)
	return name, rest[size:], name != ""
}
