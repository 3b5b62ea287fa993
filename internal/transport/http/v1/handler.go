// Package v1 implements the v1 HTTP API.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nutrichat/nutrichat/internal/service"
)

// userIDHeader carries the already-authenticated user id. Authentication
// itself happens upstream of this service.
const userIDHeader = "X-User-ID"

// Handler handles v1 API requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new v1 handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{service: svc}
}

// RegisterRoutes registers the v1 routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/v1")

	g.POST("/conversations/messages", h.SendMessage)
	g.GET("/conversations", h.ListConversations)
	g.GET("/conversations/current", h.GetCurrentConversation)
	g.GET("/conversations/:conversation_id", h.GetConversation)

	g.GET("/advice", h.ListAdvice)
	g.POST("/advice/daily", h.GenerateDailyAdvice)
	g.PUT("/advice/:advice_id/read", h.MarkAdviceRead)
}

// requireUser extracts the authenticated user id or fails the request. The
// returned error is an *echo.HTTPError so handlers can bail with `return err`
// and echo renders the 401.
func requireUser(c echo.Context) (string, error) {
	userID := c.Request().Header.Get(userIDHeader)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing user identity")
	}
	return userID, nil
}
