// Package notify delivers issued verification codes.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// LogNotifier stands in for email delivery by logging the issuance. The code
// itself is only logged at debug level.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendCode(ctx context.Context, email, code, purpose string, expiresAt time.Time) error {
	n.logger.InfoContext(ctx, "verification code issued",
		"email", email,
		"purpose", purpose,
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	)
	n.logger.DebugContext(ctx, "verification code value",
		"email", email,
		"code", code,
	)
	return nil
}
