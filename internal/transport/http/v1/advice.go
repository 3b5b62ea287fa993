package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nutrichat/nutrichat/internal/domain"
	"github.com/nutrichat/nutrichat/internal/store"
)

// ListAdvice returns the user's dietary advice, optionally filtered by type.
// GET /v1/advice?type=
func (h *Handler) ListAdvice(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	adviceType := domain.AdviceType(c.QueryParam("type"))

	ctx := c.Request().Context()
	adviceList, err := h.service.ListAdvice(ctx, userID, adviceType)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"advice": adviceList,
	})
}

// GenerateDailyAdvice produces and stores a daily dietary tip.
// POST /v1/advice/daily
func (h *Handler) GenerateDailyAdvice(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	advice, err := h.service.GenerateDailyAdvice(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, advice)
}

// MarkAdviceRead flags an advice record as read.
// PUT /v1/advice/:advice_id/read
func (h *Handler) MarkAdviceRead(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	adviceID := c.Param("advice_id")

	ctx := c.Request().Context()
	advice, err := h.service.MarkAdviceRead(ctx, userID, adviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "advice not found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, advice)
}
