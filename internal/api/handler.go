// Package api exposes adjudication, grouping and tariff lookup over HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gyeh/cbgtariff/internal/adjudicate"
	"github.com/gyeh/cbgtariff/internal/grouping"
	"github.com/gyeh/cbgtariff/internal/model"
	"github.com/gyeh/cbgtariff/internal/refdata"
	"github.com/gyeh/cbgtariff/internal/tariff"
)

// Handler provides the REST endpoints.
type Handler struct {
	svc  *adjudicate.Service
	live *refdata.Live
	log  zerolog.Logger
}

// NewHandler creates a handler. live may be nil when the service reads
// Postgres directly; the reload endpoint is then not registered.
func NewHandler(svc *adjudicate.Service, live *refdata.Live, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, live: live, log: log}
}

// RegisterRoutes registers the API routes and the health check on e.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	v1 := e.Group("/api/v1")
	v1.POST("/claims/adjudicate", h.Adjudicate)
	v1.POST("/grouping/resolve", h.Resolve)
	v1.GET("/tariffs/:code", h.GetTariff)
	if h.live != nil {
		v1.POST("/admin/reference/reload", h.Reload)
	}
}

// ResolveResponse is the body of POST /api/v1/grouping/resolve.
type ResolveResponse struct {
	Resolved   bool                    `json:"resolved"`
	Result     *model.ResolutionResult `json:"result,omitempty"`
	Unresolved *model.NotResolvable    `json:"unresolved,omitempty"`
}

// SnapshotInfo describes the reference snapshot in service.
type SnapshotInfo struct {
	Version  string         `json:"version"`
	LoadedAt string         `json:"loaded_at"`
	Counts   refdata.Counts `json:"counts"`
}

// Adjudicate handles POST /api/v1/claims/adjudicate.
func (h *Handler) Adjudicate(c echo.Context) error {
	var req adjudicate.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	resp, err := h.svc.Adjudicate(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Resolve handles POST /api/v1/grouping/resolve. Pricing fields in the
// body are ignored.
func (h *Handler) Resolve(c echo.Context) error {
	var req adjudicate.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	claim, err := adjudicate.ClaimFromRequest(req)
	if err != nil {
		return h.fail(c, err)
	}
	out, err := h.svc.Resolve(c.Request().Context(), claim)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, ResolveResponse{
		Resolved:   out.Resolved(),
		Result:     out.Result,
		Unresolved: out.Unresolved,
	})
}

// GetTariff handles
// GET /api/v1/tariffs/:code?service=&regional=&class=&type=&tier=
func (h *Handler) GetTariff(c echo.Context) error {
	svc, err := model.ParseServiceContext(c.QueryParam("service"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	tier := 0
	if v := c.QueryParam("tier"); v != "" {
		if tier, err = strconv.Atoi(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "tier must be an integer")
		}
	}
	price, err := h.svc.Price(c.Request().Context(), tariff.Query{
		Code:          c.Param("code"),
		Service:       svc,
		Regional:      c.QueryParam("regional"),
		HospitalClass: c.QueryParam("class"),
		HospitalType:  c.QueryParam("type"),
		Tier:          tier,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, adjudicate.TariffAmounts{
		Tier1:         price.Row.Tier1,
		Tier2:         price.Row.Tier2,
		Tier3:         price.Row.Tier3,
		RequestedTier: int(price.Tier),
		Amount:        price.Amount,
		Description:   price.Row.Description,
	})
}

// Reload handles POST /api/v1/admin/reference/reload.
func (h *Handler) Reload(c echo.Context) error {
	s, err := h.live.Reload(c.Request().Context())
	if err != nil {
		h.log.Error().Err(err).Msg("reference reload failed")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "reference reload failed; previous snapshot still in service")
	}
	return c.JSON(http.StatusOK, snapshotInfo(s))
}

// Health handles GET /healthz.
func (h *Handler) Health(c echo.Context) error {
	body := map[string]any{"status": "ok"}
	if h.live != nil {
		body["reference"] = snapshotInfo(h.live.Current())
	}
	return c.JSON(http.StatusOK, body)
}

func snapshotInfo(s *refdata.Snapshot) SnapshotInfo {
	return SnapshotInfo{
		Version:  s.Version(),
		LoadedAt: s.LoadedAt().Format("2006-01-02T15:04:05Z07:00"),
		Counts:   s.Counts(),
	}
}

// fail maps service errors onto HTTP statuses: bad input is 400, a code
// with no tariff row is 404, anything else is an unavailable reference store.
func (h *Handler) fail(c echo.Context, err error) error {
	var (
		inputErr *grouping.InputError
		queryErr *tariff.QueryError
	)
	switch {
	case errors.As(err, &inputErr), errors.As(err, &queryErr):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, tariff.ErrNotPriced):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	h.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
	return echo.NewHTTPError(http.StatusServiceUnavailable, "reference data unavailable")
}
