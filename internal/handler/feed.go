package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aryan0dhankhar/okrboard/internal/feed"
	"github.com/aryan0dhankhar/okrboard/internal/service"
	"github.com/aryan0dhankhar/okrboard/internal/session"
)

const (
	pingInterval = 15 * time.Second
	writeWait    = 5 * time.Second
	maxLimit     = 200
)

// FeedHandler serves the activity feed, notifications and the live feed stream.
type FeedHandler struct {
	feed           *service.FeedService
	hub            *feed.Hub
	streamEnabled  bool
	allowedOrigins []string
	logger         *slog.Logger
}

// NewFeedHandler creates a feed handler. The websocket stream answers 404 unless streamEnabled.
func NewFeedHandler(feedService *service.FeedService, hub *feed.Hub, streamEnabled bool, allowedOrigins []string, logger *slog.Logger) *FeedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedHandler{
		feed:           feedService,
		hub:            hub,
		streamEnabled:  streamEnabled,
		allowedOrigins: allowedOrigins,
		logger:         logger,
	}
}

// Activity handles GET /api/feed?limit=N
func (h *FeedHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxLimit))
			return
		}
		limit = n
	}
	entries, ok, err := h.feed.Activity(r.Context(), session.StateFromContext(r.Context()), limit)
	respondFetched(w, r, h.logger, entries, ok, err)
}

// Notifications handles GET /api/notifications
func (h *FeedHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ns, ok, err := h.feed.Notifications(r.Context(), session.StateFromContext(r.Context()))
	respondFetched(w, r, h.logger, ns, ok, err)
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *FeedHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.feed.MarkRead(r.Context(), session.StateFromContext(r.Context()), r.PathValue("id")); err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FeedHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Non-browser clients
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

// Stream handles GET /ws/feed, pushing new activity of the caller's tenant as JSON messages.
func (h *FeedHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if !h.streamEnabled {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	state := session.StateFromContext(r.Context())
	tenantID := state.TenantID()
	if tenantID == nil {
		writeError(w, http.StatusConflict, noOrganization)
		return
	}

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()

	sub := h.hub.Subscribe(*tenantID)
	defer sub.Close()

	h.logger.Debug("feed stream opened",
		slog.String("tenant_id", *tenantID),
		slog.String("user_id", state.UserID()),
	)

	// The client never sends data; reading surfaces its close frame.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case e, ok := <-sub.C:
			if !ok {
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(e); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("websocket closed", slog.String("tenant_id", *tenantID))
				}
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
