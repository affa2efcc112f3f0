package analytics

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/pm/platform/internal/platform/events"
	"github.com/pm/platform/pkg/pagination"
)

// Handler exposes event ingestion and aggregate queries.
type Handler struct {
	svc    *Service
	secret string
}

// NewHandler creates an analytics handler. secret verifies inbound
// event signatures; an empty secret disables verification.
func NewHandler(svc *Service, secret string) *Handler {
	return &Handler{svc: svc, secret: secret}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/events", h.IngestEvent)
	api.GET("/events", h.ListEvents)
	api.GET("/stats", h.GetStats)
}

// IngestEvent receives signed event deliveries.
func (h *Handler) IngestEvent(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "reading body")
	}

	if h.secret != "" {
		sig := strings.TrimPrefix(c.Request().Header.Get(events.SignatureHeader), "sha256=")
		if sig == "" || !events.VerifySignature(body, h.secret, sig) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
		}
	}

	var event events.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event payload")
	}

	if err := h.svc.Ingest(c.Request().Context(), &event); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusAccepted)
}

// ListEvents returns recorded events, newest first.
func (h *Handler) ListEvents(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), c.QueryParam("type"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Event{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// GetStats returns aggregate event counts.
func (h *Handler) GetStats(c echo.Context) error {
	sinceDays, _ := strconv.Atoi(c.QueryParam("days"))
	stats, err := h.svc.Stats(c.Request().Context(), sinceDays)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
