package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.Variant != "" {
		attrs = append(attrs, slog.String("variant", event.Variant))
	}

	// Add type-specific attributes
	switch {
	case event.Datagram != nil:
		attrs = append(attrs,
			slog.Int("size", event.Datagram.Size),
			slog.String("body", event.Datagram.Body),
		)
		if event.Datagram.Seq != nil {
			attrs = append(attrs, slog.Uint64("seq", *event.Datagram.Seq))
		}
		if event.Datagram.Truncated {
			attrs = append(attrs, slog.Bool("truncated", true))
		}
	case event.Command != nil:
		attrs = append(attrs, slog.String("kind", event.Command.Kind.String()))
		if event.Command.Body != "" {
			attrs = append(attrs, slog.String("body", event.Command.Body))
		}
		if len(event.Command.Channels) > 0 {
			attrs = append(attrs, slog.Any("channels", event.Command.Channels))
		}
		if event.Command.Header != nil {
			attrs = append(attrs, slog.Int("header", *event.Command.Header))
		}
		if event.Command.Pin != nil {
			attrs = append(attrs, slog.Int("pin", *event.Command.Pin))
		}
		if event.Command.Cancelled > 0 {
			attrs = append(attrs, slog.Int("cancelled", event.Command.Cancelled))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
