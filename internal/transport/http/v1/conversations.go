package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nutrichat/nutrichat/internal/service"
	"github.com/nutrichat/nutrichat/internal/store"
)

// SendMessage processes one user message.
// POST /v1/conversations/messages
func (h *Handler) SendMessage(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	ctx := c.Request().Context()
	result, err := h.service.ProcessUserMessage(ctx, userID, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "消息内容不能为空"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, result)
}

// ListConversations returns paginated conversation previews.
// GET /v1/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	page := 1
	if p := c.QueryParam("page"); p != "" {
		if val, err := strconv.Atoi(p); err == nil {
			page = val
		}
	}
	limit := 10
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	ctx := c.Request().Context()
	previews, err := h.service.ListConversations(ctx, userID, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": previews,
	})
}

// GetCurrentConversation resolves (or creates) the user's current
// conversation.
// GET /v1/conversations/current
func (h *Handler) GetCurrentConversation(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	conv, err := h.service.GetConversationHistory(ctx, userID, "")
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, conv)
}

// GetConversation returns a specific conversation with its messages.
// GET /v1/conversations/:conversation_id
func (h *Handler) GetConversation(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	conversationID := c.Param("conversation_id")

	ctx := c.Request().Context()
	conv, err := h.service.GetConversationHistory(ctx, userID, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "conversation not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, conv)
}
