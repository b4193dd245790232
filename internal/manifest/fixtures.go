package manifest

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Fixtures describe one guild and the entities in it.
type Fixtures struct {
	Guild    GuildFixture   `yaml:"guild"`
	Channel  string         `yaml:"channel"` // channel id invocations come from
	Author   string         `yaml:"author"`  // user id invocations come from
	Users    []UserFixture  `yaml:"users"`
	Roles    []NamedFixture `yaml:"roles"`
	Channels []NamedFixture `yaml:"channels"`
	Emoji    []EmojiFixture `yaml:"emoji"`
	Guilds   []GuildFixture `yaml:"other_guilds"`
}

type GuildFixture struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type UserFixture struct {
	ID         string `yaml:"id"`
	Username   string `yaml:"username"`
	GlobalName string `yaml:"global_name"`
	Nick       string `yaml:"nick"`
	Bot        bool   `yaml:"bot"`
}

type NamedFixture struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type EmojiFixture struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Animated bool   `yaml:"animated"`
}

func (f *Fixtures) validate() error {
	var errs []error
	if f.Guild.ID == "" {
		errs = append(errs, errors.New("fixtures: guild.id is required"))
	}
	seen := make(map[string]bool)
	check := func(what, id string) {
		switch {
		case id == "":
			errs = append(errs, fmt.Errorf("fixtures: %s without an id", what))
		case seen[what+id]:
			errs = append(errs, fmt.Errorf("fixtures: duplicate %s %s", what, id))
		}
		seen[what+id] = true
	}
	for _, u := range f.Users {
		check("user", u.ID)
	}
	for _, r := range f.Roles {
		check("role", r.ID)
	}
	for _, c := range f.Channels {
		check("channel", c.ID)
	}
	for _, e := range f.Emoji {
		check("emoji", e.ID)
	}
	for _, g := range f.Guilds {
		check("guild", g.ID)
	}
	return errors.Join(errs...)
}

// State builds a session state holding the fixtures. Users become members
// of the fixture guild.
func (f *Fixtures) State() (*discordgo.State, error) {
	s := discordgo.NewState()
	s.TrackMembers = true

	if err := s.GuildAdd(&discordgo.Guild{ID: f.Guild.ID, Name: f.Guild.Name}); err != nil {
		return nil, err
	}
	for _, g := range f.Guilds {
		if err := s.GuildAdd(&discordgo.Guild{ID: g.ID, Name: g.Name}); err != nil {
			return nil, err
		}
	}
	for _, u := range f.Users {
		m := &discordgo.Member{
			GuildID: f.Guild.ID,
			Nick:    u.Nick,
			User:    &discordgo.User{ID: u.ID, Username: u.Username, GlobalName: u.GlobalName, Bot: u.Bot},
		}
		if err := s.MemberAdd(m); err != nil {
			return nil, fmt.Errorf("user %s: %w", u.ID, err)
		}
	}
	for _, r := range f.Roles {
		if err := s.RoleAdd(f.Guild.ID, &discordgo.Role{ID: r.ID, Name: r.Name}); err != nil {
			return nil, fmt.Errorf("role %s: %w", r.ID, err)
		}
	}
	for _, c := range f.Channels {
		ch := &discordgo.Channel{ID: c.ID, GuildID: f.Guild.ID, Name: c.Name, Type: discordgo.ChannelTypeGuildText}
		if err := s.ChannelAdd(ch); err != nil {
			return nil, fmt.Errorf("channel %s: %w", c.ID, err)
		}
	}
	for _, e := range f.Emoji {
		if err := s.EmojiAdd(f.Guild.ID, &discordgo.Emoji{ID: e.ID, Name: e.Name, Animated: e.Animated}); err != nil {
			return nil, fmt.Errorf("emoji %s: %w", e.ID, err)
		}
	}
	return s, nil
}

// ChannelID returns the channel invocations come from: the declared one, or
// the first fixture channel.
func (f *Fixtures) ChannelID() string {
	if f.Channel != "" || len(f.Channels) == 0 {
		return f.Channel
	}
	return f.Channels[0].ID
}

// AuthorID returns the invoking user: the declared one, or the first user.
func (f *Fixtures) AuthorID() string {
	if f.Author != "" || len(f.Users) == 0 {
		return f.Author
	}
	return f.Users[0].ID
}
