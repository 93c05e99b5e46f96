package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/dsolution-crm/internal/core"
)

// MessageHandlers serves chat history over REST.
type MessageHandlers struct {
	hub *core.Hub
	log *zerolog.Logger
}

// NewMessageHandlers creates message handlers.
func NewMessageHandlers(hub *core.Hub, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{hub: hub, log: logger}
}

// History returns the conversation of a user, oldest first.
// Customers may only read their own conversation.
// GET /api/messages/:userId
func (h *MessageHandlers) History(c *gin.Context) {
	ownerID := c.Param("userId")
	if !isStaff(c) && ownerID != currentUserID(c) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		return
	}

	messages, err := h.hub.History(c.Request.Context(), ownerID)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		h.log.Error().Err(err).Str("owner_id", ownerID).Msg("failed to load history")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "message storage unavailable"})
		return
	}

	c.JSON(http.StatusOK, messagesToProto(messages))
}
