// Package middleware holds cmd.Middleware shared by message commands.
package middleware

import (
	"go.uber.org/zap"

	"github.com/keshon/argconv/internal/dispatch"
)

// Replier is implemented by invocation payloads that can answer the author.
type Replier interface {
	Reply(content string) error
}

// PermissionSource is implemented by invocation payloads that know the
// author's permissions in the invoking channel.
type PermissionSource interface {
	dispatch.Source
	AuthorPermissions() (int64, error)
}

func reply(logger *zap.Logger, data any, content string) {
	r, ok := data.(Replier)
	if !ok {
		return
	}
	if err := r.Reply(content); err != nil {
		logger.Warn("failed to reply", zap.Error(err))
	}
}
