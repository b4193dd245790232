// /internal/storage/storage.go
package storage

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/argconv/pkg/datastore"
)

const reminderKeyPrefix = "reminder/"

type Storage struct {
	ds *datastore.DataStore
}

// Reminder is a message the bot owes a user. ID doubles as the job name.
type Reminder struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	Due       time.Time `json:"due"`
}

func New(filePath string, logger *zap.Logger) (*Storage, error) {
	ds, err := datastore.New(filePath, logger)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

// PutReminder saves r and flushes the store so it survives a crash.
func (s *Storage) PutReminder(r Reminder) error {
	if r.ID == "" {
		return fmt.Errorf("reminder without id")
	}
	if err := s.ds.Put(reminderKeyPrefix+r.ID, r); err != nil {
		return err
	}
	return s.ds.Flush()
}

func (s *Storage) DeleteReminder(id string) error {
	s.ds.Delete(reminderKeyPrefix + id)
	return s.ds.Flush()
}

// Reminders returns the saved reminders of authorID, or all of them when
// authorID is empty, soonest first.
func (s *Storage) Reminders(authorID string) ([]Reminder, error) {
	var out []Reminder
	for _, key := range s.ds.Keys(reminderKeyPrefix) {
		var r Reminder
		if _, err := s.ds.Get(key, &r); err != nil {
			return nil, err
		}
		if authorID != "" && r.AuthorID != authorID {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b Reminder) int {
		if c := a.Due.Compare(b.Due); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}
