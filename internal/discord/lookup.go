package discord

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/pkg/retrylimit"
)

// RESTClient is the part of *discordgo.Session the lookup fetches through.
type RESTClient interface {
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildEmoji(guildID, emojiID string, options ...discordgo.RequestOption) (*discordgo.Emoji, error)
}

// Lookup resolves entities from the session state cache and fetches misses
// over REST. It implements convert.Lookup.
type Lookup struct {
	state   *discordgo.State
	rest    RESTClient
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.RetryConfig
	logger  *zap.Logger
}

var _ convert.Lookup = (*Lookup)(nil)

type LookupOption func(*Lookup)

// WithLimiter paces remote fetches and retries each up to attempts times.
func WithLimiter(lim *retrylimit.AdaptiveLimiter, attempts int) LookupOption {
	return func(l *Lookup) {
		l.limiter = lim
		l.retry.MaxAttempts = max(1, attempts)
	}
}

// WithRetry replaces the retry configuration of remote fetches.
func WithRetry(cfg retrylimit.RetryConfig) LookupOption {
	return func(l *Lookup) { l.retry = cfg }
}

func WithLogger(logger *zap.Logger) LookupOption {
	return func(l *Lookup) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLookup returns a lookup over state. rest may be nil for offline use.
func NewLookup(state *discordgo.State, rest RESTClient, opts ...LookupOption) *Lookup {
	l := &Lookup{
		state:  state,
		rest:   rest,
		retry:  retrylimit.DefaultRetryConfig(),
		logger: zap.NewNop(),
	}
	l.retry.MaxAttempts = 1
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.Named("lookup")
	l.retry.Logger = l.logger
	return l
}

// LookupByID finds a cached entity by snowflake within scope.
func (l *Lookup) LookupByID(kind convert.Kind, scope convert.Scope, id string) any {
	switch kind {
	case convert.KindUser:
		return l.userByID(scope, id)
	case convert.KindRole:
		for _, gid := range l.guildIDs(scope) {
			if r, err := l.state.Role(gid, id); err == nil {
				return r
			}
		}
	case convert.KindChannel:
		if c, err := l.state.Channel(id); err == nil && (scope.Global() || c.GuildID == scope.GuildID) {
			return c
		}
	case convert.KindGuild:
		if g, err := l.state.Guild(id); err == nil {
			return g
		}
	case convert.KindEmoji:
		for _, gid := range l.guildIDs(scope) {
			if e, err := l.state.Emoji(gid, id); err == nil {
				return e
			}
		}
	}
	return nil
}

func (l *Lookup) userByID(scope convert.Scope, id string) any {
	for _, gid := range l.guildIDs(scope) {
		if m, err := l.state.Member(gid, id); err == nil && m.User != nil {
			return m.User
		}
	}
	if scope.GuildID != "" {
		return nil
	}

	l.state.RLock()
	defer l.state.RUnlock()
	for _, c := range l.state.PrivateChannels {
		if !scope.Global() && c.ID != scope.ChannelID {
			continue
		}
		for _, u := range c.Recipients {
			if u.ID == id {
				return u
			}
		}
	}
	if u := l.state.User; u != nil && u.ID == id {
		return u
	}
	return nil
}

// guildIDs lists the guilds a scope covers: its own guild, every cached
// guild for the global scope, and none for a direct message.
func (l *Lookup) guildIDs(scope convert.Scope) []string {
	if scope.GuildID != "" {
		return []string{scope.GuildID}
	}
	if !scope.Global() {
		return nil
	}
	l.state.RLock()
	defer l.state.RUnlock()
	ids := make([]string, 0, len(l.state.Guilds))
	for _, g := range l.state.Guilds {
		ids = append(ids, g.ID)
	}
	return ids
}

// LookupByName finds a cached entity by name within scope. Names compare
// case-folded; an exact match beats a prefix match, which beats a substring.
// Members match by nickname, global name or username.
func (l *Lookup) LookupByName(kind convert.Kind, scope convert.Scope, name string) any {
	best := newMatcher(name)
	if best.target == "" {
		return nil
	}

	l.state.RLock()
	defer l.state.RUnlock()
	for _, g := range l.state.Guilds {
		if kind != convert.KindGuild && !scope.Global() && g.ID != scope.GuildID {
			continue
		}
		switch kind {
		case convert.KindUser:
			for _, m := range g.Members {
				if m.User != nil {
					best.offer(m.User, m.Nick, m.User.GlobalName, m.User.Username)
				}
			}
		case convert.KindRole:
			for _, r := range g.Roles {
				best.offer(r, r.Name)
			}
		case convert.KindChannel:
			for _, c := range g.Channels {
				best.offer(c, c.Name)
			}
		case convert.KindEmoji:
			for _, e := range g.Emojis {
				best.offer(e, e.Name)
			}
		case convert.KindGuild:
			best.offer(g, g.Name)
		}
	}
	if kind == convert.KindUser && scope.GuildID == "" {
		for _, c := range l.state.PrivateChannels {
			if scope.Global() || c.ID == scope.ChannelID {
				for _, u := range c.Recipients {
					best.offer(u, u.GlobalName, u.Username)
				}
			}
		}
	}
	return best.value
}

// matcher keeps the best scoring candidate. A cases.Caser is stateful, so
// each matcher folds with its own.
type matcher struct {
	fold   cases.Caser
	target string
	value  any
	score  int
}

func newMatcher(name string) *matcher {
	m := &matcher{fold: cases.Fold()}
	m.target = m.fold.String(strings.TrimSpace(name))
	return m
}

func (m *matcher) offer(v any, names ...string) {
	for _, name := range names {
		if name == "" {
			continue
		}
		n := m.fold.String(name)
		score := 0
		switch {
		case n == m.target:
			score = 3
		case strings.HasPrefix(n, m.target):
			score = 2
		case strings.Contains(n, m.target):
			score = 1
		}
		if score > m.score {
			m.value, m.score = v, score
		}
	}
}

// FetchRemote fetches an entity over REST. A guild scope fetches users as
// guild members. Entities that do not exist are (nil, nil).
func (l *Lookup) FetchRemote(ctx context.Context, kind convert.Kind, scope convert.Scope, id string) (any, error) {
	if l.rest == nil {
		return nil, nil
	}
	var v any
	err := retrylimit.WithRetryConfig(ctx, func() error {
		got, err := l.fetch(ctx, kind, scope, id)
		if err != nil {
			return err
		}
		v = got
		return nil
	}, l.limiter, l.retry)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (l *Lookup) fetch(ctx context.Context, kind convert.Kind, scope convert.Scope, id string) (any, error) {
	opt := discordgo.WithContext(ctx)
	switch kind {
	case convert.KindUser:
		if scope.GuildID == "" {
			return l.rest.User(id, opt)
		}
		m, err := l.rest.GuildMember(scope.GuildID, id, opt)
		if err != nil {
			return nil, err
		}
		if m.GuildID == "" {
			m.GuildID = scope.GuildID
		}
		if err := l.state.MemberAdd(m); err != nil {
			l.logger.Debug("member not cached", zap.String("guild", scope.GuildID), zap.Error(err))
		}
		return m.User, nil
	case convert.KindRole:
		if scope.GuildID == "" {
			return nil, nil
		}
		roles, err := l.rest.GuildRoles(scope.GuildID, opt)
		if err != nil {
			return nil, err
		}
		for _, r := range roles {
			if r.ID == id {
				return r, nil
			}
		}
	case convert.KindChannel:
		c, err := l.rest.Channel(id, opt)
		if err != nil {
			return nil, err
		}
		if scope.GuildID == "" || c.GuildID == scope.GuildID {
			return c, nil
		}
	case convert.KindGuild:
		return l.rest.Guild(id, opt)
	case convert.KindEmoji:
		if scope.GuildID == "" {
			return nil, nil
		}
		return l.rest.GuildEmoji(scope.GuildID, id, opt)
	}
	return nil, nil
}

func notFound(err error) bool {
	var rest *discordgo.RESTError
	return errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
