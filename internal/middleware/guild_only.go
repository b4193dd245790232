package middleware

import (
	"context"

	"github.com/keshon/argconv/internal/dispatch"
	"github.com/keshon/argconv/pkg/cmd"
)

// WithGuildOnly wraps a command to enforce guild-only access
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			if src, ok := inv.Data.(dispatch.Source); ok {
				if cc := src.ConvertContext(); cc == nil || cc.GuildID == "" {
					return nil
				}
			}
			return c.Run(ctx, inv)
		})
	}
}
