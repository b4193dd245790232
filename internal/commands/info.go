package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/config"
	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/dispatch"
	"github.com/keshon/argconv/pkg/cmd"
)

func (c *Commands) Ping(cc *convert.Context, m *discordgo.Message) error {
	if m.Timestamp.IsZero() {
		return c.send(m.ChannelID, "🏓 Pong!")
	}
	latency := c.now().Sub(m.Timestamp).Milliseconds()
	return c.send(m.ChannelID, fmt.Sprintf("🏓 Pong! Response time: `%dms`", latency))
}

// Help lists the commands by category, or shows the usage of the named one.
func (c *Commands) Help(cc *convert.Context, m *discordgo.Message, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return c.embed(m.ChannelID, &discordgo.MessageEmbed{
			Title:       "📖 Available Commands",
			Description: c.buildHelpMessage(),
		})
	}

	found := c.lookupCommand(name)
	if found == nil {
		return c.send(m.ChannelID, fmt.Sprintf("Unknown command `%s`.", name))
	}
	e := &discordgo.MessageEmbed{
		Title:       found.Name(),
		Description: found.Description(),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Usage", Value: "`" + strings.TrimSpace(found.Name()+" "+Usage(found.Dispatcher())) + "`"},
		},
	}
	if aliases := found.Aliases(); len(aliases) > 0 {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Aliases", Value: "`" + strings.Join(aliases, "`, `") + "`"})
	}
	return c.embed(m.ChannelID, e)
}

func (c *Commands) lookupCommand(name string) *dispatch.Command {
	if c.registry == nil {
		return nil
	}
	found := c.registry.Get(name)
	if found == nil {
		return nil
	}
	dc, _ := cmd.Root(found).(*dispatch.Command)
	return dc
}

func (c *Commands) buildHelpMessage() string {
	if c.registry == nil {
		return ""
	}
	byCategory := make(map[string][]cmd.Command)
	var categories []string
	for _, command := range c.registry.GetAll() {
		cat := c.categories[command.Name()]
		if _, ok := byCategory[cat]; !ok {
			categories = append(categories, cat)
		}
		byCategory[cat] = append(byCategory[cat], command)
	}
	sort.SliceStable(categories, func(i, j int) bool {
		wi, wj := config.CategoryWeight(categories[i]), config.CategoryWeight(categories[j])
		if wi != wj {
			return wi < wj
		}
		return categories[i] < categories[j]
	})

	var sb strings.Builder
	for _, cat := range categories {
		if cat != "" {
			sb.WriteString(fmt.Sprintf("**%s**\n", cat))
		}
		for _, command := range byCategory[cat] {
			sb.WriteString(fmt.Sprintf("`%s` - %s\n", command.Name(), command.Description()))
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// Usage renders the arguments a dispatcher parses: <required>, [optional]
// and a trailing ... for slots taking several values.
func Usage(d *dispatch.Dispatcher) string {
	var parts []string
	for _, conv := range d.Converters() {
		if conv.Type() == convert.TypeGuard {
			continue
		}
		name := conv.Type()
		switch conv.Type() {
		case convert.TypeContent, convert.TypeRest:
			name = "text"
		case convert.TypeDuration, convert.TypeRelativeDuration:
			name = "delay"
		}
		if !conv.Arity().Single() {
			name += "..."
		}
		optional := conv.HasDefault() || conv.Remainder() || conv.Arity().Min == 0
		if optional {
			parts = append(parts, "["+name+"]")
		} else {
			parts = append(parts, "<"+name+">")
		}
	}
	return strings.Join(parts, " ")
}
