package providers

import (
	"context"
	"log/slog"

	"github.com/preston-bernstein/game-events-service/internal/logging"
)

// logWithProvider tags the entry with the provider name. A logger carried on
// ctx wins over the decorator's own so detector cycle fields are kept.
func logWithProvider(ctx context.Context, logger *slog.Logger, level slog.Level, provider string, msg string, args ...any) {
	logger = logging.FromContext(ctx, logger)
	if logger == nil || !logger.Enabled(ctx, level) {
		return
	}
	logger.Log(ctx, level, msg, append(args, slog.String(logging.FieldProvider, provider))...)
}
