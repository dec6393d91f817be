package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"prompt-storefront/internal/activity"
)

type ActivityFeed interface {
	Recent(limit int) []activity.Event
	ServeWS(w http.ResponseWriter, r *http.Request) error
}

type ActivityHandler struct {
	feed ActivityFeed
}

func NewActivityHandler(feed ActivityFeed) *ActivityHandler {
	return &ActivityHandler{feed: feed}
}

func (h *ActivityHandler) Recent(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 50 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 50")
		}
		limit = n
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": h.feed.Recent(limit),
	})
}

// Stream upgrades to a websocket; the upgrader writes its own error response.
func (h *ActivityHandler) Stream(c echo.Context) error {
	_ = h.feed.ServeWS(c.Response(), c.Request())
	return nil
}
