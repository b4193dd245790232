package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/keshon/argconv/internal/convert"
	"github.com/keshon/argconv/internal/storage"
	"github.com/keshon/argconv/pkg/util"
)

const (
	maxReminderDelay = 30 * 24 * time.Hour
	maxReminders     = 10
	reminderLayout   = "YYYY-MM-DD hh:mm"
)

func (c *Commands) Say(cc *convert.Context, m *discordgo.Message, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return c.send(m.ChannelID, "Nothing to say.")
	}
	return c.send(m.ChannelID, text)
}

func reminderPrefix(authorID string) string { return "remind:" + authorID + ":" }

// Remind schedules a message to the author once in has elapsed.
func (c *Commands) Remind(cc *convert.Context, m *discordgo.Message, in time.Duration, text string) error {
	switch {
	case in <= 0:
		return c.send(m.ChannelID, "Give a delay such as `10m` or `1h30m`.")
	case in > maxReminderDelay:
		return c.send(m.ChannelID, "I cannot remember things for longer than 30 days.")
	}
	if len(c.jobs.List(reminderPrefix(cc.AuthorID))) >= maxReminders {
		return c.send(m.ChannelID, fmt.Sprintf("You already have %d reminders.", maxReminders))
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = "something"
	}

	r := storage.Reminder{
		ID:        reminderPrefix(cc.AuthorID) + m.ID,
		GuildID:   cc.GuildID,
		ChannelID: m.ChannelID,
		AuthorID:  cc.AuthorID,
		Text:      text,
		Due:       c.now().Add(in),
	}
	if err := c.schedule(r, in); err != nil {
		c.logger.Warn("failed to schedule reminder", zap.String("job", r.ID), zap.Error(err))
		return c.send(m.ChannelID, "That reminder is already set.")
	}
	if c.store != nil {
		if err := c.store.PutReminder(r); err != nil {
			c.logger.Error("failed to save reminder", zap.String("job", r.ID), zap.Error(err))
		}
	}
	due := util.FormatDateTpl(r.Due.UTC(), reminderLayout)
	return c.send(m.ChannelID, fmt.Sprintf("I'll remind you in %s (%s UTC).", in, due))
}

func (c *Commands) schedule(r storage.Reminder, in time.Duration) error {
	return c.jobs.After(r.ID, in, func(ctx context.Context) error {
		err := c.send(r.ChannelID, fmt.Sprintf("<@%s> you asked me to remind you of %s.", r.AuthorID, r.Text))
		c.unsave(r.ID)
		return err
	})
}

func (c *Commands) unsave(id string) {
	if c.store == nil {
		return
	}
	if err := c.store.DeleteReminder(id); err != nil {
		c.logger.Error("failed to delete reminder", zap.String("job", id), zap.Error(err))
	}
}

// Restore schedules the reminders saved by an earlier run. Overdue ones
// fire at once.
func (c *Commands) Restore() (int, error) {
	if c.store == nil {
		return 0, nil
	}
	saved, err := c.store.Reminders("")
	if err != nil {
		return 0, fmt.Errorf("commands: restore reminders: %w", err)
	}
	n := 0
	for _, r := range saved {
		if err := c.schedule(r, r.Due.Sub(c.now())); err != nil {
			c.logger.Warn("failed to restore reminder", zap.String("job", r.ID), zap.Error(err))
			continue
		}
		n++
	}
	return n, nil
}

func (c *Commands) Reminders(cc *convert.Context, m *discordgo.Message) error {
	names := c.jobs.List(reminderPrefix(cc.AuthorID))
	if len(names) == 0 {
		return c.send(m.ChannelID, "You have no reminders.")
	}
	var sb strings.Builder
	for i, name := range names {
		job, ok := c.jobs.Get(name)
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("%d. due %s UTC\n", i+1, util.FormatDateTpl(job.Due.UTC(), reminderLayout)))
	}
	return c.embed(m.ChannelID, &discordgo.MessageEmbed{
		Title:       "⏰ Reminders",
		Description: sb.String(),
	})
}

func (c *Commands) Forget(cc *convert.Context, m *discordgo.Message) error {
	n := 0
	for _, name := range c.jobs.List(reminderPrefix(cc.AuthorID)) {
		if c.jobs.Stop(name) == nil {
			c.unsave(name)
			n++
		}
	}
	return c.send(m.ChannelID, fmt.Sprintf("Forgot %d reminders.", n))
}
