package commands

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/convert"
)

// maxPurge is the most messages one bulk delete accepts.
const maxPurge = 100

// Purge deletes the count most recent messages before the invocation,
// counting only messages of users when any are given.
func (c *Commands) Purge(cc *convert.Context, m *discordgo.Message, count int, users []*discordgo.User) error {
	if count < 1 || count > maxPurge {
		return c.send(m.ChannelID, fmt.Sprintf("Give a count between 1 and %d.", maxPurge))
	}

	msgs, err := c.out.ChannelMessages(m.ChannelID, maxPurge, m.ID, "", "")
	if err != nil {
		return fmt.Errorf("failed to fetch messages: %w", err)
	}

	authors := make(map[string]bool, len(users))
	for _, u := range users {
		authors[u.ID] = true
	}
	var ids []string
	for _, msg := range msgs {
		if len(ids) == count {
			break
		}
		if len(authors) > 0 && (msg.Author == nil || !authors[msg.Author.ID]) {
			continue
		}
		ids = append(ids, msg.ID)
	}
	if len(ids) == 0 {
		return c.send(m.ChannelID, "Nothing to delete.")
	}

	if err := c.out.ChannelMessagesBulkDelete(m.ChannelID, ids); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	return c.send(m.ChannelID, fmt.Sprintf("🧹 Deleted %d messages.", len(ids)))
}
