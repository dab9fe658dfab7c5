package realtime

import (
	"context"

	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

// Publisher sends a message to every server instance, this one included.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

// Emitter delivers messages through a Publisher when one is configured and
// straight to the local hub otherwise.
type Emitter struct {
	hub *SSEHub
	pub Publisher
	log *logger.Logger
}

func NewEmitter(log *logger.Logger, hub *SSEHub, pub Publisher) *Emitter {
	return &Emitter{hub: hub, pub: pub, log: log.With("component", "SSEEmitter")}
}

// Emit never fails the caller; a publish error falls back to the local hub.
func (e *Emitter) Emit(ctx context.Context, msg SSEMessage) {
	if e == nil {
		return
	}
	if e.pub != nil {
		err := e.pub.Publish(ctx, msg)
		if err == nil {
			return
		}
		e.log.Warn("SSE publish failed; delivering locally", "error", err, "event", msg.Event)
	}
	if e.hub != nil {
		e.hub.Broadcast(msg)
	}
}
