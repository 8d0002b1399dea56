// Package observers provides observers for lights, cars and lanes: structured
// logging, metrics and runtime invariant checks.
package observers

import (
	"context"
	"log/slog"

	"github.com/anggasct/crossing"
	"github.com/anggasct/crossing/pkg/core"
)

// LoggingObserver logs lane changes and state machine activity through slog.
// Lane changes are logged at the configured level, machine transitions at Debug.
type LoggingObserver struct {
	core.BaseObserver
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *slog.Logger, level slog.Level) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger, level: level}
}

func (o *LoggingObserver) OnLaneChange(change crossing.Change) {
	snap := change.Snapshot
	attrs := []any{"lane", snap.LaneID}
	if change.Car != nil {
		attrs = append(attrs, "car", change.Car.ID)
	}

	var msg string
	switch change.Kind {
	case crossing.ChangeAttached:
		msg = "car arrived"
		attrs = append(attrs, "waiting", snap.Count(crossing.Waiting))
	case crossing.ChangeEntered:
		msg = "car started crossing"
		attrs = append(attrs, "crossing", snap.Count(crossing.Crossing),
			"waited", change.Car.EnteredAt.Sub(change.Car.ArrivedAt))
	case crossing.ChangeExited:
		msg = "car finished crossing"
		attrs = append(attrs, "crossing", snap.Count(crossing.Crossing))
	case crossing.ChangePhase:
		msg = "light changed"
		attrs = append(attrs, "phase", snap.Phase)
	default:
		return
	}
	o.logger.Log(context.Background(), o.level, msg, attrs...)
}

func (o *LoggingObserver) OnTransition(from string, to string, event core.Event, ctx core.Context) {
	o.logger.Debug("transition", "machine", ctx.MachineName(), "from", from, "to", to, "event", event.GetName())
}

func (o *LoggingObserver) OnEventRejected(event core.Event, reason string, ctx core.Context) {
	o.logger.Warn("event rejected", "machine", ctx.MachineName(), "event", event.GetName(), "reason", reason)
}

func (o *LoggingObserver) OnError(err error, ctx core.Context) {
	o.logger.Error("machine error", "machine", ctx.MachineName(), "code", core.GetErrorCode(err), "error", err)
}
