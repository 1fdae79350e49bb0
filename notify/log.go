package notify

import (
	"context"
	"log/slog"

	"github.com/MrEthical07/authflow"
)

// LogNotifier logs the links instead of sending mail. Development only:
// the logged links carry live tokens.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier logs through logger, or slog.Default when nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendVerificationEmail(ctx context.Context, msg authflow.EmailMessage) error {
	n.logger.InfoContext(ctx, "verification email",
		slog.String("email", msg.Email),
		slog.String("link", VerifyLink(msg)),
	)
	return nil
}

func (n *LogNotifier) SendResetPasswordEmail(ctx context.Context, msg authflow.EmailMessage) error {
	n.logger.InfoContext(ctx, "password reset email",
		slog.String("email", msg.Email),
		slog.String("link", ResetLink(msg)),
	)
	return nil
}
