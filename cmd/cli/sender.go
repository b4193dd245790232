package main

import (
	"fmt"
	"io"

	"github.com/bwmarrin/discordgo"

	"github.com/keshon/argconv/internal/discord"
)

// writerSender prints replies instead of sending them.
type writerSender struct {
	w io.Writer
}

var _ discord.Sender = (*writerSender)(nil)

func (s *writerSender) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	fmt.Fprintf(s.w, "> %s\n", content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func (s *writerSender) ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	fmt.Fprintf(s.w, "> [%s]\n", embed.Title)
	if embed.Description != "" {
		fmt.Fprintf(s.w, "> %s\n", embed.Description)
	}
	for _, f := range embed.Fields {
		fmt.Fprintf(s.w, "> %s: %s\n", f.Name, f.Value)
	}
	if embed.Image != nil {
		fmt.Fprintf(s.w, "> %s\n", embed.Image.URL)
	}
	return &discordgo.Message{ChannelID: channelID, Embeds: []*discordgo.MessageEmbed{embed}}, nil
}

// ChannelMessages returns no history: there is none offline.
func (s *writerSender) ChannelMessages(string, int, string, string, string, ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	return nil, nil
}

func (s *writerSender) ChannelMessagesBulkDelete(channelID string, messages []string, _ ...discordgo.RequestOption) error {
	fmt.Fprintf(s.w, "(would delete %d messages)\n", len(messages))
	return nil
}
