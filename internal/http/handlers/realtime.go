package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/taskmaster-backend/internal/http/middleware"
	"github.com/yungbote/taskmaster-backend/internal/http/response"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
	"github.com/yungbote/taskmaster-backend/internal/realtime"
)

// ChannelAuthorizer decides whether userID may listen on channel.
type ChannelAuthorizer func(ctx context.Context, userID uuid.UUID, channel string) error

type RealtimeHandler struct {
	log       *logger.Logger
	hub       *realtime.SSEHub
	authorize ChannelAuthorizer

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: SessionID (UserToken.ID)
}

var errNoStream = errors.New("no active SSE connection for this session")

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub, authorize ChannelAuthorizer) *RealtimeHandler {
	return &RealtimeHandler{
		log:       log.With("handler", "RealtimeHandler"),
		hub:       hub,
		authorize: authorize,
		clients:   make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /sse/stream?project_id=...
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	rd := middleware.Session(c)
	if rd == nil || rd.UserID == uuid.Nil || rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errNoSession)
		return
	}

	var initial string
	if raw := strings.TrimSpace(c.Query("project_id")); raw != "" {
		projectID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid project_id"))
			return
		}
		initial = realtime.ProjectChannel(projectID)
		if err := h.authorize(c.Request.Context(), rd.UserID, initial); err != nil {
			response.RespondAPIError(c, err, "subscribe_failed")
			return
		}
	}

	h.mu.Lock()
	// A session holds one stream; a reconnect replaces the old one.
	if existing, ok := h.clients[rd.SessionID]; ok {
		h.hub.CloseClient(existing)
	}
	client := h.hub.NewSSEClient(rd.UserID)
	h.clients[rd.SessionID] = client
	h.mu.Unlock()

	h.log.Info("SSE stream open", "user_id", rd.UserID, "session_id", rd.SessionID, "client_id", client.ID)
	if initial != "" {
		h.hub.AddChannel(client, initial)
	}

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	if h.clients[rd.SessionID] == client {
		delete(h.clients, rd.SessionID)
	}
	h.mu.Unlock()
	h.hub.CloseClient(client)
}

// POST /sse/subscribe
// body: { "channel": "project:<id>" }
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	userID, client, channel, ok := h.channelRequest(c)
	if !ok {
		return
	}
	if err := h.authorize(c.Request.Context(), userID, channel); err != nil {
		response.RespondAPIError(c, err, "subscribe_failed")
		return
	}
	h.hub.AddChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "subscribed", "channel": channel})
}

// POST /sse/unsubscribe
// body: { "channel": "project:<id>" }
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	_, client, channel, ok := h.channelRequest(c)
	if !ok {
		return
	}
	h.hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "unsubscribed", "channel": channel})
}

func (h *RealtimeHandler) channelRequest(c *gin.Context) (uuid.UUID, *realtime.SSEClient, string, bool) {
	rd := middleware.Session(c)
	if rd == nil || rd.UserID == uuid.Nil || rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", errNoSession)
		return uuid.Nil, nil, "", false
	}
	var req struct {
		Channel string `json:"channel"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Channel) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("invalid channel"))
		return uuid.Nil, nil, "", false
	}
	h.mu.RLock()
	client, exists := h.clients[rd.SessionID]
	h.mu.RUnlock()
	if !exists {
		response.RespondError(c, http.StatusConflict, "no_stream", errNoStream)
		return uuid.Nil, nil, "", false
	}
	return rd.UserID, client, strings.TrimSpace(req.Channel), true
}
