package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/pkg/util"
)

const dateLayout = "YYYY-MM-DD"

func created(id string) string {
	t, err := discordgo.SnowflakeTimestamp(id)
	if err != nil {
		return "unknown"
	}
	return util.FormatDateTpl(t.UTC(), dateLayout)
}

func field(name, value string) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: true}
}

// Avatar shows the avatar of user, or of the author when none is given.
func (c *Commands) Avatar(cc *convert.Context, m *discordgo.Message, user *discordgo.User) error {
	if user == nil {
		user = m.Author
	}
	if user == nil {
		return c.send(m.ChannelID, "Who?")
	}
	return c.embed(m.ChannelID, &discordgo.MessageEmbed{
		Title: user.Username,
		Image: &discordgo.MessageEmbedImage{URL: user.AvatarURL("1024")},
	})
}

func (c *Commands) Role(cc *convert.Context, m *discordgo.Message, role *discordgo.Role) error {
	return c.embed(m.ChannelID, &discordgo.MessageEmbed{
		Title: role.Name,
		Color: role.Color,
		Fields: []*discordgo.MessageEmbedField{
			field("ID", role.ID),
			field("Colour", fmt.Sprintf("#%06x", role.Color)),
			field("Position", fmt.Sprint(role.Position)),
			field("Mentionable", yesNo(role.Mentionable)),
			field("Hoisted", yesNo(role.Hoist)),
			field("Created", created(role.ID)),
		},
	})
}

func (c *Commands) Channel(cc *convert.Context, m *discordgo.Message, ch *discordgo.Channel) error {
	e := &discordgo.MessageEmbed{
		Title:       "#" + ch.Name,
		Description: ch.Topic,
		Fields: []*discordgo.MessageEmbedField{
			field("ID", ch.ID),
			field("NSFW", yesNo(ch.NSFW)),
			field("Created", created(ch.ID)),
		},
	}
	if ch.ParentID != "" {
		e.Fields = append(e.Fields, field("Category", "<#"+ch.ParentID+">"))
	}
	return c.embed(m.ChannelID, e)
}

// Emoji shows an emoji image. Emoji of servers the bot is not in resolve
// from their mention alone.
func (c *Commands) Emoji(cc *convert.Context, m *discordgo.Message, e *discordgo.Emoji) error {
	url := discordgo.EndpointEmoji(e.ID)
	if e.Animated {
		url = discordgo.EndpointEmojiAnimated(e.ID)
	}
	return c.embed(m.ChannelID, &discordgo.MessageEmbed{
		Title: ":" + e.Name + ":",
		Image: &discordgo.MessageEmbedImage{URL: url},
		Fields: []*discordgo.MessageEmbedField{
			field("ID", e.ID),
			field("Animated", yesNo(e.Animated)),
		},
	})
}

// Server describes guild, or the invoking server when none is given.
func (c *Commands) Server(cc *convert.Context, m *discordgo.Message, guild *discordgo.Guild) error {
	if guild == nil && cc.GuildID != "" && cc.Lookup != nil {
		guild, _ = cc.Lookup.LookupByID(convert.KindGuild, cc.Scope(), cc.GuildID).(*discordgo.Guild)
	}
	if guild == nil {
		return c.send(m.ChannelID, "Name a server, or ask from inside one.")
	}
	return c.embed(m.ChannelID, &discordgo.MessageEmbed{
		Title: guild.Name,
		Fields: []*discordgo.MessageEmbedField{
			field("ID", guild.ID),
			field("Members", fmt.Sprint(max(guild.MemberCount, len(guild.Members)))),
			field("Roles", fmt.Sprint(len(guild.Roles))),
			field("Channels", fmt.Sprint(len(guild.Channels))),
			field("Created", created(guild.ID)),
		},
	})
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
