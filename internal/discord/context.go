package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
)

// MessageContext is the invocation payload of a message command.
type MessageContext struct {
	Session *discordgo.Session
	Event   *discordgo.MessageCreate
	Conv    *convert.Context
}

func (c *MessageContext) ConvertContext() *convert.Context { return c.Conv }
func (c *MessageContext) Message() *discordgo.Message      { return c.Event.Message }

// Reply answers the invoking message.
func (c *MessageContext) Reply(content string) error {
	_, err := c.Session.ChannelMessageSendReply(c.Event.ChannelID, content, c.Event.Reference())
	return err
}

// AuthorPermissions returns the author's permissions in the invoking channel.
func (c *MessageContext) AuthorPermissions() (int64, error) {
	return c.Session.State.UserChannelPermissions(c.Event.Author.ID, c.Event.ChannelID)
}
