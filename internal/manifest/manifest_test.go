package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
)

const sample = `
commands:
  purge:
    description: Delete recent messages
    aliases: [clean, prune]
    guard:
      source: "guild !== ''"
    args:
      0:
        default: 25
      1:
        type: user
        flags: [mention, id]
        range: [0, 3]
  avatar:
    args:
      0:
        type: user
        flags: [mention, name, id, everywhere]
        default_source: author
  ping:

fixtures:
  guild: {id: "9000001", name: Argconv Lab}
  users:
    - {id: "1000001", username: alice, nick: Ally}
    - {id: "1000002", username: bob}
  roles:
    - {id: "2000001", name: mods}
  channels:
    - {id: "4000001", name: general}
  emoji:
    - {id: "3000001", name: party, animated: true}
  other_guilds:
    - {id: "9000002", name: Elsewhere}
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := m.Names(); strings.Join(got, ",") != "avatar,ping,purge" {
		t.Errorf("Names() = %v", got)
	}
	if m.Command("ping") == nil {
		t.Error("empty command entry dropped")
	}

	purge := m.Command("PURGE")
	if purge == nil {
		t.Fatal("Command(PURGE) = nil")
	}
	if purge.Description != "Delete recent messages" || len(purge.Aliases) != 2 {
		t.Errorf("purge = %+v", purge)
	}
	if purge.Guard == nil || purge.Guard.Source != "guild !== ''" || purge.Guard.Inverted {
		t.Errorf("guard = %+v", purge.Guard)
	}
	v, err := purge.Args[0].DefaultValue()
	if err != nil || v != 25 {
		t.Errorf("default = %v (%T), %v", v, v, err)
	}

	r := convert.NewRegistry()
	conv, err := purge.Args[1].Converter(r)
	if err != nil {
		t.Fatalf("Converter() error = %v", err)
	}
	if conv.Type() != convert.TypeUser || conv.Arity() != (convert.Arity{Min: 0, Max: 3}) {
		t.Errorf("converter = %s", conv)
	}
	if conv.Flags() != convert.ByMention|convert.ByID {
		t.Errorf("flags = %s", conv.Flags())
	}
	opts, err := purge.Options(r)
	if err != nil || len(opts) != 3 {
		t.Errorf("Options() = %d options, %v", len(opts), err)
	}

	avatar, err := m.Command("avatar").Args[0].Converter(r)
	if err != nil {
		t.Fatal(err)
	}
	if avatar.Default().Kind != convert.DefaultSource || avatar.Default().Source() != "author" {
		t.Errorf("avatar default = %v", avatar.Default().Repr())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/manifest.yaml"); err == nil {
		t.Error("Load() should error on missing file")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"syntax", "commands: [", "parsing manifest"},
		{"guard without source", "commands:\n  x:\n    guard: {inverted: true}\n", "guard without a source"},
		{"flags without type", "commands:\n  x:\n    args:\n      0: {flags: [id]}\n", "need a type"},
		{"arity and range", "commands:\n  x:\n    args:\n      0: {type: user, arity: 2, range: [1, 2]}\n", "both arity and range"},
		{"short range", "commands:\n  x:\n    args:\n      0: {type: user, range: [1]}\n", "range needs"},
		{"two defaults", "commands:\n  x:\n    args:\n      0: {type: int, default: 1, default_source: '2'}\n", "both default"},
		{"empty override", "commands:\n  x:\n    args:\n      0: {}\n", "nothing to override"},
		{"negative position", "commands:\n  x:\n    args:\n      -1: {type: int}\n", "negative position"},
		{"fixture guild", "fixtures:\n  users: [{id: '1'}]\n", "guild.id is required"},
		{"fixture duplicate", "fixtures:\n  guild: {id: '9'}\n  roles: [{id: '1'}, {id: '1'}]\n", "duplicate role 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestOptionsErrors(t *testing.T) {
	r := convert.NewRegistry()
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown type", "commands:\n  x:\n    args:\n      0: {type: colour}\n", convert.ErrUnknownType},
		{"arity on content", "commands:\n  x:\n    args:\n      0: {type: content, arity: 2}\n", convert.ErrInvalidArity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := m.Command("x").Options(r); !errors.Is(err, tt.want) {
				t.Errorf("Options() error = %v, want %v", err, tt.want)
			}
		})
	}

	m, err := Parse([]byte("commands:\n  x:\n    args:\n      0: {type: user, flags: [sideways]}\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Command("x").Options(r); err == nil {
		t.Error("unknown flag accepted")
	}
	var nilCommand *Command
	if opts, err := nilCommand.Options(r); opts != nil || err != nil {
		t.Errorf("nil command = %v, %v", opts, err)
	}
}

func TestFixturesState(t *testing.T) {
	m, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	s, err := m.Fixtures.State()
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}

	member, err := s.Member("9000001", "1000001")
	if err != nil || member.Nick != "Ally" || member.User.Username != "alice" {
		t.Errorf("member = %+v, %v", member, err)
	}
	if r, err := s.Role("9000001", "2000001"); err != nil || r.Name != "mods" {
		t.Errorf("role = %+v, %v", r, err)
	}
	c, err := s.Channel("4000001")
	if err != nil || c.GuildID != "9000001" || c.Type != discordgo.ChannelTypeGuildText {
		t.Errorf("channel = %+v, %v", c, err)
	}
	if e, err := s.Emoji("9000001", "3000001"); err != nil || !e.Animated {
		t.Errorf("emoji = %+v, %v", e, err)
	}
	if g, err := s.Guild("9000002"); err != nil || g.Name != "Elsewhere" {
		t.Errorf("other guild = %+v, %v", g, err)
	}

	if got := m.Fixtures.ChannelID(); got != "4000001" {
		t.Errorf("ChannelID() = %q", got)
	}
	if got := m.Fixtures.AuthorID(); got != "1000001" {
		t.Errorf("AuthorID() = %q", got)
	}
}
