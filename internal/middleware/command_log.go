package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/argconv/internal/dispatch"
	"github.com/keshon/argconv/pkg/cmd"
)

// WithCommandLogger wraps a command to log its execution
func WithCommandLogger(logger *zap.Logger) cmd.Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("command")
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			start := time.Now()
			err := c.Run(ctx, inv)

			fields := []zap.Field{
				zap.String("command", c.Name()),
				zap.Duration("took", time.Since(start)),
			}
			if src, ok := inv.Data.(dispatch.Source); ok {
				if cc := src.ConvertContext(); cc != nil {
					fields = append(fields,
						zap.String("guild", cc.GuildID),
						zap.String("channel", cc.ChannelID),
						zap.String("author", cc.AuthorID),
					)
				}
			}
			if err != nil {
				logger.Error("command failed", append(fields, zap.Error(err))...)
				return err
			}
			logger.Info("command run", fields...)
			return nil
		})
	}
}
