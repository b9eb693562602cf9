package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/courseconnect/courseconnect-server/internal/pm"
	"github.com/courseconnect/courseconnect-server/internal/store"
)

// PMHandlers provides HTTP handlers for private messaging.
type PMHandlers struct {
	service *pm.Service
	log     *zerolog.Logger
}

// NewPMHandlers creates a new private messaging handlers instance.
func NewPMHandlers(service *pm.Service, logger *zerolog.Logger) *PMHandlers {
	return &PMHandlers{
		service: service,
		log:     logger,
	}
}

// SendMessageRequest represents the send request body.
type SendMessageRequest struct {
	RecipientID int64  `json:"recipientId" binding:"required"`
	Content     string `json:"content" binding:"required"`
}

// EditMessageRequest represents the edit request body.
type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// PrivateMessageResponse represents a private message in API responses.
type PrivateMessageResponse struct {
	ID          int64  `json:"id"`
	SenderID    int64  `json:"senderId"`
	RecipientID int64  `json:"recipientId"`
	Content     string `json:"content"`
	SentAt      string `json:"sentAt"`
	EditedAt    string `json:"editedAt,omitempty"`
	IsRead      bool   `json:"isRead"`
}

func privateMessageResponse(msg *store.PrivateMessage) PrivateMessageResponse {
	resp := PrivateMessageResponse{
		ID:          msg.ID,
		SenderID:    msg.SenderID,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		SentAt:      msg.SentAt.Format(time.RFC3339),
		IsRead:      msg.IsRead,
	}
	if msg.EditedAt != nil {
		resp.EditedAt = msg.EditedAt.Format(time.RFC3339)
	}
	return resp
}

// writeServiceError maps private messaging errors onto HTTP status codes.
func (h *PMHandlers) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pm.ErrEmptyContent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message content is empty"})
	case errors.Is(err, pm.ErrInvalidRecipient):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid recipient"})
	case errors.Is(err, pm.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
	case errors.Is(err, pm.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "message not found"})
	default:
		h.log.Error().Err(err).Msg("private messaging operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func messageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid message id"})
		return 0, false
	}
	return id, true
}

// Send handles sending a private message.
// POST /api/messages
func (h *PMHandlers) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.service.Send(c.Request.Context(), userID, req.RecipientID, req.Content)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, privateMessageResponse(msg))
}

// Edit handles editing a private message.
// PUT /api/messages/:id
func (h *PMHandlers) Edit(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}
	msgID, ok := messageIDParam(c)
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid edit message request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	msg, err := h.service.Edit(c.Request.Context(), userID, msgID, req.Content)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, privateMessageResponse(msg))
}

// Delete handles tombstoning a private message.
// DELETE /api/messages/:id
func (h *PMHandlers) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}
	msgID, ok := messageIDParam(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, msgID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

// MarkRead handles flipping a message's read receipt.
// POST /api/messages/:id/read
func (h *PMHandlers) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}
	msgID, ok := messageIDParam(c)
	if !ok {
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), userID, msgID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "read"})
}

// ListThread handles loading the caller's thread with another user.
// GET /api/messages/thread/:userId
func (h *PMHandlers) ListThread(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid user token"})
		return
	}

	otherID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || otherID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user id"})
		return
	}

	messages, err := h.service.ListThread(c.Request.Context(), userID, otherID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response := make([]PrivateMessageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, privateMessageResponse(msg))
	}
	c.JSON(http.StatusOK, response)
}
