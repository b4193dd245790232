package commands

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/discord"
	"github.com/keshon/argconv/internal/dispatch"
	"github.com/keshon/argconv/internal/manifest"
	"github.com/keshon/argconv/internal/parser"
	"github.com/keshon/argconv/internal/storage"
	"github.com/keshon/argconv/pkg/cmd"
	"github.com/keshon/argconv/pkg/jobmgr"
)

const (
	labID     = "9000001"
	generalID = "4000001"
	dmID      = "4000099"
)

var (
	alice = &discordgo.User{ID: "1000001", Username: "alice"}
	bob   = &discordgo.User{ID: "1000002", Username: "bob"}
)

type sentMessage struct {
	channel string
	content string
	embed   *discordgo.MessageEmbed
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []sentMessage
	history []*discordgo.Message
	deleted []string
}

func (f *fakeSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channel: channelID, content: content})
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (f *fakeSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{channel: channelID, embed: embed})
	return &discordgo.Message{ChannelID: channelID}, nil
}

func (f *fakeSender) ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Message(nil), f.history...), nil
}

func (f *fakeSender) ChannelMessagesBulkDelete(channelID string, messages []string, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, messages...)
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatal("nothing was sent")
	}
	return f.sent[len(f.sent)-1]
}

type harness struct {
	out    *fakeSender
	reg    *cmd.Registry
	cmds   *Commands
	jobs   *jobmgr.Manager
	lookup *discord.Lookup
	msgID  string
}

func newState(t *testing.T) *discordgo.State {
	t.Helper()
	s := discordgo.NewState()
	for _, err := range []error{
		s.GuildAdd(&discordgo.Guild{ID: labID, Name: "Argconv Lab", MemberCount: 2}),
		s.GuildAdd(&discordgo.Guild{ID: "9000002", Name: "Elsewhere"}),
		s.MemberAdd(&discordgo.Member{GuildID: labID, User: alice}),
		s.MemberAdd(&discordgo.Member{GuildID: labID, User: bob}),
		s.RoleAdd(labID, &discordgo.Role{ID: "2000001", Name: "mods", Color: 0x3f7cac}),
		s.ChannelAdd(&discordgo.Channel{ID: generalID, GuildID: labID, Name: "general", Topic: "chatter"}),
		s.ChannelAdd(&discordgo.Channel{ID: dmID, Type: discordgo.ChannelTypeDM, Recipients: []*discordgo.User{alice}}),
		s.EmojiAdd(labID, &discordgo.Emoji{ID: "3000001", Name: "smile"}),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func newHarness(t *testing.T, m *manifest.Manifest) *harness {
	t.Helper()
	h := &harness{
		out:    &fakeSender{},
		reg:    cmd.NewRegistry(),
		jobs:   jobmgr.NewManager(nil),
		lookup: discord.NewLookup(newState(t), nil),
		msgID:  "5000100",
	}
	t.Cleanup(h.jobs.StopAll)
	h.cmds = New(h.out, h.jobs, nil)
	compiler := parser.NewCompiler(convert.NewRegistry(), nil)
	if err := h.cmds.Register(h.reg, compiler, m); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return h
}

// run invokes line as if alice typed it in the general channel, or in a DM
// when guildID is empty.
func (h *harness) run(t *testing.T, guildID, line string) {
	t.Helper()
	name, rest, _ := strings.Cut(line, " ")
	c := h.reg.Get(name)
	if c == nil {
		t.Fatalf("command %q not registered", name)
	}
	channelID := generalID
	if guildID == "" {
		channelID = dmID
	}
	ctx := context.Background()
	cc := convert.NewContext(ctx, h.lookup, guildID, channelID, alice.ID)
	msg := &discordgo.Message{ID: h.msgID, ChannelID: channelID, GuildID: guildID, Author: alice}
	if err := c.Run(ctx, &cmd.Invocation{Content: rest, Data: &dispatch.Request{Conv: cc, Msg: msg}}); err != nil {
		t.Fatalf("%q: %v", line, err)
	}
}

func TestRegister(t *testing.T) {
	h := newHarness(t, nil)

	want := []string{"avatar", "channel", "emoji", "forget", "help", "ping", "purge", "remind", "reminders", "role", "say", "server"}
	all := h.reg.GetAll()
	if len(all) != len(want) {
		t.Fatalf("registered %d commands, want %d", len(all), len(want))
	}
	for i, c := range all {
		if c.Name() != want[i] {
			t.Errorf("command %d = %s, want %s", i, c.Name(), want[i])
		}
	}
	for alias, name := range map[string]string{"clean": "purge", "echo": "say", "GUILD": "server"} {
		if c := h.reg.Get(alias); c == nil || c.Name() != name {
			t.Errorf("alias %s does not reach %s", alias, name)
		}
	}
	if err := h.cmds.Register(cmd.NewRegistry(), parser.NewCompiler(convert.NewRegistry(), nil), nil); err != nil {
		t.Errorf("second registry: %v", err)
	}
	if err := h.cmds.Register(h.reg, parser.NewCompiler(convert.NewRegistry(), nil), nil); err == nil {
		t.Error("registering twice into one registry succeeded")
	}
}

func TestTextCommands(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		line string
		want string
	}{
		{"ping", "🏓 Pong!"},
		{"say   hello  there ", "hello  there"},
		{"echo \"quoted\"", "\"quoted\""},
		{"say", "Nothing to say."},
		{"role nobody", "Could not understand argument 1."},
		{"help nope", "Unknown command `nope`."},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			h.run(t, labID, tt.line)
			if got := h.out.last(t).content; got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEntityCommands(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		guild string
		line  string
		title string
	}{
		{labID, "avatar", "alice"},
		{labID, "avatar bob", "bob"},
		{labID, "avatar <@!1000002>", "bob"},
		{labID, "avatar nobody", "alice"},
		{"", "avatar", "alice"},
		{labID, "role mods", "mods"},
		{labID, "role <@&2000001>", "mods"},
		{labID, "channel general", "#general"},
		{labID, "channel <#4000001>", "#general"},
		{labID, "emoji <:smile:3000001>", ":smile:"},
		{labID, "emoji smile", ":smile:"},
		{"", "emoji <a:dance:3000010>", ":dance:"},
		{labID, "server", "Argconv Lab"},
		{labID, "guild 9000002", "Elsewhere"},
		{"", "server elsewhere", "Elsewhere"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			h.run(t, tt.guild, tt.line)
			got := h.out.last(t)
			if got.embed == nil {
				t.Fatalf("reply %q is not an embed", got.content)
			}
			if got.embed.Title != tt.title {
				t.Errorf("title = %q, want %q", got.embed.Title, tt.title)
			}
			if got.embed.Color == 0 {
				t.Error("embed left uncoloured")
			}
		})
	}

	h.run(t, "", "emoji <a:dance:3000010>")
	if url := h.out.last(t).embed.Image.URL; !strings.HasSuffix(url, "3000010.gif") {
		t.Errorf("animated emoji url = %s", url)
	}
	h.run(t, "", "server")
	if got := h.out.last(t).content; !strings.HasPrefix(got, "Name a server") {
		t.Errorf("server from a DM = %q", got)
	}
	h.run(t, "", "role mods")
	if got := h.out.last(t).content; got != "Could not understand argument 1." {
		t.Errorf("role from a DM = %q", got)
	}
}

func TestReminders(t *testing.T) {
	h := newHarness(t, nil)

	h.run(t, labID, "remind 1h30m stretch your legs")
	if got := h.out.last(t).content; !strings.HasPrefix(got, "I'll remind you in 1h30m0s (") {
		t.Errorf("remind = %q", got)
	}
	if got := h.jobs.List("remind:" + alice.ID + ":"); len(got) != 1 {
		t.Fatalf("jobs = %v", got)
	}

	h.run(t, labID, "remind 1h again")
	if got := h.out.last(t).content; got != "That reminder is already set." {
		t.Errorf("duplicate = %q", got)
	}

	h.msgID = "5000101"
	h.run(t, labID, "remind 45d later")
	if got := h.out.last(t).content; !strings.Contains(got, "longer than 30 days") {
		t.Errorf("long delay = %q", got)
	}
	h.run(t, labID, "remind soon stretch")
	if got := h.out.last(t).content; got != "Could not understand argument 1." {
		t.Errorf("bad delay = %q", got)
	}

	h.run(t, labID, "reminders")
	if e := h.out.last(t).embed; e == nil || !strings.HasPrefix(e.Description, "1. due ") {
		t.Errorf("reminders = %+v", h.out.last(t))
	}
	h.run(t, labID, "forget")
	if got := h.out.last(t).content; got != "Forgot 1 reminders." {
		t.Errorf("forget = %q", got)
	}
	h.run(t, labID, "reminders")
	if got := h.out.last(t).content; got != "You have no reminders." {
		t.Errorf("reminders after forget = %q", got)
	}
}

type memStore struct {
	mu    sync.Mutex
	saved map[string]storage.Reminder
}

func (s *memStore) PutReminder(r storage.Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[r.ID] = r
	return nil
}

func (s *memStore) DeleteReminder(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, id)
	return nil
}

func (s *memStore) Reminders(authorID string) ([]storage.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storage.Reminder
	for _, r := range s.saved {
		if authorID == "" || r.AuthorID == authorID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

func TestReminderStore(t *testing.T) {
	h := newHarness(t, nil)
	store := &memStore{saved: map[string]storage.Reminder{}}
	h.cmds.UseStore(store)

	h.run(t, labID, "remind 2h water the plants")
	if store.len() != 1 {
		t.Fatalf("saved = %d, want 1", store.len())
	}
	h.run(t, labID, "forget")
	if store.len() != 0 {
		t.Errorf("saved after forget = %d, want 0", store.len())
	}

	// A fresh bot picks up what the last one saved.
	store.PutReminder(storage.Reminder{
		ID:        "remind:" + bob.ID + ":5000200",
		ChannelID: generalID,
		AuthorID:  bob.ID,
		Text:      "the meeting",
		Due:       time.Now().Add(-time.Minute),
	})
	store.PutReminder(storage.Reminder{
		ID:        "remind:" + bob.ID + ":5000201",
		ChannelID: generalID,
		AuthorID:  bob.ID,
		Text:      "tomorrow",
		Due:       time.Now().Add(24 * time.Hour),
	})
	restored := newHarness(t, nil)
	restored.cmds.UseStore(store)
	n, err := restored.cmds.Restore()
	if err != nil || n != 2 {
		t.Fatalf("Restore() = %d, %v", n, err)
	}

	pending := func() int { return len(restored.jobs.List("remind:" + bob.ID + ":")) }
	deadline := time.Now().Add(2 * time.Second)
	for (store.len() != 1 || pending() != 1) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.len() != 1 || pending() != 1 {
		t.Fatalf("overdue reminder did not fire: saved %d, pending %d", store.len(), pending())
	}
	if got := restored.out.last(t).content; got != "<@"+bob.ID+"> you asked me to remind you of the meeting." {
		t.Errorf("fired = %q", got)
	}
}

func TestPurge(t *testing.T) {
	history := func() []*discordgo.Message {
		var msgs []*discordgo.Message
		for i, author := range []*discordgo.User{alice, bob, alice, bob, bob, alice} {
			msgs = append(msgs, &discordgo.Message{ID: "50000" + string(rune('1'+i)), Author: author})
		}
		return msgs
	}

	tests := []struct {
		line    string
		deleted []string
		reply   string
	}{
		{"purge 2 bob", []string{"500002", "500004"}, "🧹 Deleted 2 messages."},
		{"purge bob", []string{"500002", "500004", "500005"}, "🧹 Deleted 3 messages."},
		{"purge", []string{"500001", "500002", "500003", "500004", "500005", "500006"}, "🧹 Deleted 6 messages."},
		{"clean 1 alice bob", []string{"500001"}, "🧹 Deleted 1 messages."},
		{"purge 0", nil, "Give a count between 1 and 100."},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			h := newHarness(t, nil)
			h.out.history = history()
			h.run(t, labID, tt.line)
			if got := strings.Join(h.out.deleted, ","); got != strings.Join(tt.deleted, ",") {
				t.Errorf("deleted = %s, want %v", got, tt.deleted)
			}
			if got := h.out.last(t).content; got != tt.reply {
				t.Errorf("reply = %q, want %q", got, tt.reply)
			}
		})
	}

	h := newHarness(t, nil)
	h.out.history = history()
	h.run(t, "", "purge 2")
	if h.out.count() != 0 || len(h.out.deleted) != 0 {
		t.Error("purge ran outside a guild")
	}
}

func TestHelp(t *testing.T) {
	h := newHarness(t, nil)

	h.run(t, labID, "help")
	e := h.out.last(t).embed
	if e == nil {
		t.Fatal("help is not an embed")
	}
	info := strings.Index(e.Description, "**🕯️ Information**")
	cleanup := strings.Index(e.Description, "**🧹 Cleanup**")
	if info < 0 || cleanup < info {
		t.Errorf("categories out of order:\n%s", e.Description)
	}
	if !strings.Contains(e.Description, "`purge` - Delete recent messages") {
		t.Errorf("purge missing:\n%s", e.Description)
	}

	usages := map[string]string{
		"clean":  "`purge [int] [user...]`",
		"remind": "`remind <delay> [text]`",
		"avatar": "`avatar [user]`",
		"role":   "`role <role>`",
		"ping":   "`ping`",
		"say":    "`say [text]`",
	}
	for name, want := range usages {
		h.run(t, labID, "help "+name)
		e := h.out.last(t).embed
		if e == nil || len(e.Fields) == 0 || e.Fields[0].Value != want {
			t.Errorf("help %s = %+v, want usage %s", name, e, want)
		}
	}
}

func TestManifestOverrides(t *testing.T) {
	m, err := manifest.Parse([]byte(`
commands:
  purge:
    aliases: [prune]
    args:
      0: {default: 3}
  avatar:
    description: Show someone's face.
`))
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, m)

	if h.reg.Get("clean") != nil || h.reg.Get("prune") == nil {
		t.Error("manifest aliases not applied")
	}
	if got := h.reg.Get("avatar").Description(); got != "Show someone's face." {
		t.Errorf("description = %q", got)
	}

	h.out.history = []*discordgo.Message{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}}
	h.run(t, labID, "prune")
	if got := len(h.out.deleted); got != 3 {
		t.Errorf("deleted %d messages, want the manifest default of 3", got)
	}
}

func TestManifestErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown command", "commands:\n  dance: {description: x}\n", "unknown command"},
		{"unknown type", "commands:\n  role:\n    args:\n      0: {type: colour}\n", "colour"},
		{"type mismatch", "commands:\n  role:\n    args:\n      0: {type: int}\n", "role"},
		{"out of range", "commands:\n  ping:\n    args:\n      0: {default: 1}\n", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := manifest.Parse([]byte(tt.yaml))
			if err != nil {
				t.Fatal(err)
			}
			err = New(&fakeSender{}, nil, nil).Register(cmd.NewRegistry(), parser.NewCompiler(convert.NewRegistry(), nil), m)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Register() error = %v, want %q", err, tt.want)
			}
		})
	}
}
