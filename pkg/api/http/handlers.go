package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Aaryan2304/ai-support-system/pkg/domain"
)

// PostMessageRequest represents a user message submission
type PostMessageRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// PostMessageResponse aggregates a finished turn for synchronous callers
type PostMessageResponse struct {
	ConversationID string                  `json:"conversation_id"`
	TurnID         string                  `json:"turn_id"`
	Status         string                  `json:"status"`
	Routing        *domain.RoutingDecision `json:"routing,omitempty"`
	ToolCalls      []string                `json:"tool_calls,omitempty"`
	MessageID      string                  `json:"message_id,omitempty"`
	Reply          string                  `json:"reply,omitempty"`
	Error          string                  `json:"error,omitempty"`
	CompletedAt    time.Time               `json:"completed_at"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"checks": gin.H{
			"active_turns": s.manager.ActiveTurns(),
		},
	})
}

// handlePostMessage runs one turn synchronously. The conversation is
// created on the first message for an unseen id; clients generate the id.
func (s *Server) handlePostMessage(c *gin.Context) {
	conversationID := c.Param("id")

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: err.Error(),
			},
		})
		return
	}

	handle, err := s.manager.HandleMessage(c.Request.Context(), req.UserID, conversationID, req.Content)
	if err != nil {
		s.logger.Error("failed to start turn", zap.Error(err))
		c.JSON(statusFromError(err), ErrorResponse{
			Error: ErrorDetail{
				Code:    string(domain.KindOf(err)),
				Message: err.Error(),
			},
		})
		return
	}

	resp := PostMessageResponse{
		ConversationID: handle.ConversationID,
		TurnID:         handle.TurnID,
	}
	var reply string
	for ev := range handle.Events {
		switch ev.Type {
		case domain.EventRouting:
			resp.Routing = ev.Routing
		case domain.EventToolCall:
			resp.ToolCalls = append(resp.ToolCalls, ev.Tool)
		case domain.EventPartial:
			reply += ev.Text
		case domain.EventFinal:
			resp.Status = "completed"
			resp.MessageID = ev.MessageID
			resp.Reply = ev.Text
		case domain.EventError:
			resp.Status = "failed"
			resp.Error = ev.ErrorMessage
		}
	}
	if resp.Status == "" {
		// Stream closed without a terminal event: caller disconnected.
		resp.Status = "failed"
		resp.Error = "turn abandoned"
	}
	if resp.Reply == "" && resp.Status == "completed" {
		resp.Reply = reply
	}
	resp.CompletedAt = time.Now().UTC()

	c.JSON(http.StatusOK, resp)
}

// handleGetConversation handles getting conversation details
func (s *Server) handleGetConversation(c *gin.Context) {
	conv, err := s.repo.GetConversation(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFromError(err), ErrorResponse{
			Error: ErrorDetail{
				Code:    "NOT_FOUND",
				Message: "Conversation not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, conv)
}

// handleListMessages returns a conversation's messages in order. Pass
// include_archived=true to see messages folded into the summary.
func (s *Server) handleListMessages(c *gin.Context) {
	includeArchived := c.Query("include_archived") == "true"

	msgs, err := s.repo.Messages(c.Request.Context(), c.Param("id"), includeArchived)
	if err != nil {
		s.logger.Error("failed to list messages", zap.Error(err))
		c.JSON(statusFromError(err), ErrorResponse{
			Error: ErrorDetail{
				Code:    "LIST_FAILED",
				Message: "Could not list messages",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"total":    len(msgs),
	})
}

// handleListAudit returns the tool invocation audit trail
func (s *Server) handleListAudit(c *gin.Context) {
	invs, err := s.repo.ToolInvocations(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.logger.Error("failed to list invocations", zap.Error(err))
		c.JSON(statusFromError(err), ErrorResponse{
			Error: ErrorDetail{
				Code:    "LIST_FAILED",
				Message: "Could not list tool invocations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invocations": invs,
		"total":       len(invs),
	})
}

// statusFromError maps error kinds to HTTP status codes
func statusFromError(err error) int {
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindBusinessRule:
		return http.StatusUnprocessableEntity
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
