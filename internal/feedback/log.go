package feedback

import (
	"context"
	"log/slog"
)

// LogSignaler writes signals to the log.  Used when no NATS bus is
// configured.
type LogSignaler struct {
	Logger *slog.Logger
}

func (s LogSignaler) Signal(ctx context.Context, ev Event) error {
	s.Logger.DebugContext(ctx, "feedback",
		"signal", string(ev.Signal),
		"session_id", ev.SessionID,
		"identity_id", ev.IdentityID,
	)
	return nil
}
