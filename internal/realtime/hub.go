package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

// SSEEvent names a progress document change. It is written as the SSE event
// name, so browsers can addEventListener per kind.
type SSEEvent string

const (
	SSEEventProgressSaved       SSEEvent = "ProgressSaved"
	SSEEventProgressRestored    SSEEvent = "ProgressRestored"
	SSEEventProgressPublished   SSEEvent = "ProgressPublished"
	SSEEventProgressUnpublished SSEEvent = "ProgressUnpublished"
	SSEEventProgressDeleted     SSEEvent = "ProgressDeleted"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// ProjectChannel is the channel progress events for a project are sent on.
func ProjectChannel(projectID uuid.UUID) string {
	return "project:" + projectID.String()
}

const (
	outboundBuffer   = 16
	defaultHeartbeat = 15 * time.Second
	// clients wait this long before reconnecting after a dropped stream
	reconnectDelay = 3 * time.Second
)

// SSEClient is one open event stream.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Outbound chan SSEMessage

	channels  map[string]struct{}
	seq       atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once
}

// SSEHub routes progress events to the streams subscribed to their channel.
type SSEHub struct {
	log       *logger.Logger
	heartbeat time.Duration

	mu   sync.RWMutex
	subs map[string]map[*SSEClient]struct{}
}

func NewSSEHub(log *logger.Logger) *SSEHub {
	return &SSEHub{
		log:       log.With("component", "SSEHub"),
		heartbeat: defaultHeartbeat,
		subs:      make(map[string]map[*SSEClient]struct{}),
	}
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan SSEMessage, outboundBuffer),
		channels: make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

func (hub *SSEHub) AddChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	select {
	case <-client.done:
		return
	default:
	}
	client.channels[channel] = struct{}{}
	set, ok := hub.subs[channel]
	if !ok {
		set = make(map[*SSEClient]struct{})
		hub.subs[channel] = set
	}
	set[client] = struct{}{}
	hub.log.Debug("Subscribed", "client_id", client.ID, "channel", channel)
}

func (hub *SSEHub) RemoveChannel(client *SSEClient, channel string) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.unsubscribeLocked(client, channel)
	hub.log.Debug("Unsubscribed", "client_id", client.ID, "channel", channel)
}

func (hub *SSEHub) unsubscribeLocked(client *SSEClient, channel string) {
	delete(client.channels, channel)
	if set, ok := hub.subs[channel]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(hub.subs, channel)
		}
	}
}

// Subscribers reports how many clients listen on channel.
func (hub *SSEHub) Subscribers(channel string) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subs[channel])
}

// Broadcast never blocks; a client with a full buffer misses the message.
func (hub *SSEHub) Broadcast(msg SSEMessage) {
	if msg.Channel == "" {
		return
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	for c := range hub.subs[msg.Channel] {
		select {
		case c.Outbound <- msg:
		default:
			hub.log.Warn("Dropping progress event; client buffer full", "client_id", c.ID, "event", msg.Event)
		}
	}
}

// ServeHTTP streams client's events until the request ends or the client is
// closed. Each event carries a per-stream sequence number as its id.
func (hub *SSEHub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *SSEClient) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	_, _ = fmt.Fprintf(w, "retry: %d\nevent: ready\ndata: {\"client_id\":%q}\n\n", reconnectDelay.Milliseconds(), client.ID)
	flusher.Flush()

	ticker := time.NewTicker(hub.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-ticker.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case msg, ok := <-client.Outbound:
			if !ok {
				return
			}
			if err := writeEvent(w, client.seq.Add(1), msg); err != nil {
				hub.log.Warn("Failed to write progress event", "client_id", client.ID, "error", err)
				continue
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, id uint64, msg SSEMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", id, msg.Event, raw)
	return err
}

// CloseClient unsubscribes client everywhere and closes its outbound channel.
// Safe to call more than once.
func (hub *SSEHub) CloseClient(client *SSEClient) {
	client.closeOnce.Do(func() {
		hub.mu.Lock()
		close(client.done)
		for ch := range client.channels {
			hub.unsubscribeLocked(client, ch)
		}
		hub.mu.Unlock()
		close(client.Outbound)
	})
}
