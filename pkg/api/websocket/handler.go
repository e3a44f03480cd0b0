package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/internal/application/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// Handler handles WebSocket connections
type Handler struct {
	manager *session.Manager
	logger  *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(manager *session.Manager, logger *zap.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// turnRequest is one user message sent over the socket
type turnRequest struct {
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// HandleTurnStream streams turn events for a conversation. The client
// sends user messages as JSON frames and receives the ordered event
// sequence for each turn. Closing the socket cancels the active turn.
func (h *Handler) HandleTurnStream(c *gin.Context) {
	conversationID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("conversation_id", conversationID),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Read pump: a read error means the client went away, which cancels
	// any turn in flight.
	requests := make(chan turnRequest)
	go func() {
		defer cancel()
		for {
			var req turnRequest
			if err := conn.ReadJSON(&req); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("WebSocket read failed", zap.Error(err))
				}
				return
			}
			select {
			case requests <- req:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Turns run one at a time per connection, in arrival order.
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-requests:
			if !h.runTurn(ctx, conn, conversationID, req) {
				return
			}
		}
	}
}

// runTurn starts one turn and forwards its events. Returns false when
// the connection is no longer usable.
func (h *Handler) runTurn(ctx context.Context, conn *websocket.Conn, conversationID string, req turnRequest) bool {
	handle, err := h.manager.HandleMessage(ctx, req.UserID, conversationID, req.Content)
	if err != nil {
		h.logger.Warn("failed to start turn",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
		writeErr := conn.WriteJSON(gin.H{
			"type":            "error",
			"conversation_id": conversationID,
			"error":           err.Error(),
		})
		return writeErr == nil
	}

	for ev := range handle.Events {
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("WebSocket write failed, abandoning turn",
				zap.String("turn_id", handle.TurnID),
				zap.Error(err))
			// Drain so the turn can observe cancellation and finish.
			go func() {
				for range handle.Events {
				}
			}()
			return false
		}
	}
	return true
}
