package events

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes subscription management over HTTP.
type Handler struct {
	dispatcher *Dispatcher
}

// NewHandler creates a subscription management handler.
func NewHandler(dispatcher *Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

// RegisterRoutes binds subscription routes to the given group.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("", h.Subscribe)
	g.GET("", h.ListSubscriptions)
	g.DELETE("/:id", h.Unsubscribe)
	g.GET("/:id/deliveries", h.ListDeliveries)
}

type subscribeRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

// Subscribe handles POST /event-subscriptions.
func (h *Handler) Subscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ep, err := h.dispatcher.Subscribe(c.Request().Context(), req.URL, req.Secret, req.Events)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, ep)
}

// ListSubscriptions handles GET /event-subscriptions.
func (h *Handler) ListSubscriptions(c echo.Context) error {
	eps, err := h.dispatcher.store.ListEndpoints(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  eps,
		"total": len(eps),
	})
}

// Unsubscribe handles DELETE /event-subscriptions/:id.
func (h *Handler) Unsubscribe(c echo.Context) error {
	if err := h.dispatcher.store.DeleteEndpoint(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// ListDeliveries handles GET /event-subscriptions/:id/deliveries.
func (h *Handler) ListDeliveries(c echo.Context) error {
	attempts, err := h.dispatcher.Deliveries(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  attempts,
		"total": len(attempts),
	})
}
