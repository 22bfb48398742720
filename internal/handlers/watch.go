package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/models"
	"github.com/mauv0809/thesis-engine/internal/watch"
)

// watchTarget adapts one calculator's registry to the watch endpoints.
type watchTarget struct {
	registry *watch.Registry
	keys     []string
	gather   func(ctx context.Context, companyID int64, cf *facts.CompanyFacts, keys []string)
}

// target resolves :metric. The user namespace is unrestricted and gathers
// only the keys named in the request.
func (h *Handler) target(metric string) (watchTarget, bool) {
	name := strings.ToLower(metric)
	if calc, ok := h.calc.Growth[name]; ok {
		return watchTarget{
			registry: calc.Registry(),
			keys:     calc.Config().Mandatory(),
			gather: func(ctx context.Context, id int64, cf *facts.CompanyFacts, _ []string) {
				calc.Gather(ctx, id, cf)
			},
		}, true
	}

	switch name {
	case "roic":
		return watchTarget{
			registry: h.calc.ROIC.Registry(),
			keys:     h.calc.ROIC.Keys().Mandatory(),
			gather: func(ctx context.Context, id int64, cf *facts.CompanyFacts, _ []string) {
				h.calc.ROIC.Gather(ctx, id, cf)
			},
		}, true
	case "efficiency":
		return watchTarget{
			registry: h.calc.Efficiency.Registry(),
			keys:     h.calc.Efficiency.Keys().All(),
			gather: func(ctx context.Context, id int64, cf *facts.CompanyFacts, _ []string) {
				h.calc.Efficiency.Gather(ctx, id, cf)
			},
		}, true
	case "user":
		if h.calc.User == nil {
			return watchTarget{}, false
		}
		return watchTarget{
			registry: h.calc.User,
			gather: func(ctx context.Context, id int64, cf *facts.CompanyFacts, keys []string) {
				h.calc.User.Gather(ctx, id, cf, keys)
			},
		}, true
	}
	return watchTarget{}, false
}

func (t watchTarget) report(id int64, cf *facts.CompanyFacts, metric string) models.WatchReport {
	tracked := t.registry.Facts(id)
	out := models.WatchReport{
		Company:    companyOf(id, cf),
		Metric:     metric,
		Namespace:  t.registry.Config().Namespace,
		Facts:      make([]models.WatchFact, 0, len(tracked)),
		ReadyYears: nonNil(t.registry.SelectedYears(id, t.keys)),
	}
	for _, f := range tracked {
		out.Facts = append(out.Facts, models.WatchFact{Key: f.Key, Year: f.Year})
	}
	return out
}

// ToggleRequest is the body of the toggle endpoint.
type ToggleRequest struct {
	Key  string `json:"key"`
	Year int    `json:"year"`
}

// GatherRequest is the optional body of the gather endpoint.
type GatherRequest struct {
	Keys []string `json:"keys"`
}

// Watch handles GET /api/companies/:cik/watch/:metric
// Returns the tracked facts and the years whose keys are all tracked.
func (h *Handler) Watch(c echo.Context) error {
	t, ok := h.target(c.Param("metric"))
	if !ok {
		return failure(http.StatusNotFound, "Unknown metric %q", c.Param("metric"))
	}
	id, _, err := companyParam(c)
	if err != nil {
		return failure(http.StatusBadRequest, "Invalid CIK: %v", err)
	}
	return c.JSON(http.StatusOK, t.report(id, nil, c.Param("metric")))
}

// ToggleWatch handles POST /api/companies/:cik/watch/:metric/toggle
func (h *Handler) ToggleWatch(c echo.Context) error {
	t, ok := h.target(c.Param("metric"))
	if !ok {
		return failure(http.StatusNotFound, "Unknown metric %q", c.Param("metric"))
	}
	id, _, err := companyParam(c)
	if err != nil {
		return failure(http.StatusBadRequest, "Invalid CIK: %v", err)
	}

	var req ToggleRequest
	if err := c.Bind(&req); err != nil {
		return failure(http.StatusBadRequest, "Invalid request body: %v", err)
	}
	if req.Key == "" || req.Year == 0 {
		return failure(http.StatusBadRequest, "key and year are required")
	}
	if !t.registry.Allows(req.Key) {
		return failure(http.StatusBadRequest, "Key %s is not tracked by %s", req.Key, c.Param("metric"))
	}

	watched := t.registry.Toggle(c.Request().Context(), id, req.Key, req.Year)
	h.logger.Info().Int64("company", id).Str("key", req.Key).Int("year", req.Year).Bool("watched", watched).Msg("watch toggled")
	return c.JSON(http.StatusOK, map[string]any{
		"key":     req.Key,
		"year":    req.Year,
		"watched": watched,
	})
}

// GatherWatch handles POST /api/companies/:cik/watch/:metric/gather
// Tracks every annual fact of the metric's keys. The user metric requires
// a body naming the keys.
func (h *Handler) GatherWatch(c echo.Context) error {
	metric := c.Param("metric")
	t, ok := h.target(metric)
	if !ok {
		return failure(http.StatusNotFound, "Unknown metric %q", metric)
	}

	var req GatherRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return failure(http.StatusBadRequest, "Invalid request body: %v", err)
		}
	}
	if t.keys == nil && len(req.Keys) == 0 {
		return failure(http.StatusBadRequest, "keys are required for %s", metric)
	}

	id, cf, err := h.loadFacts(c)
	if err != nil {
		return err
	}

	t.gather(c.Request().Context(), id, cf, req.Keys)
	return c.JSON(http.StatusOK, t.report(id, cf, metric))
}

// ClearCompanyWatch handles DELETE /api/companies/:cik/watch/:metric
func (h *Handler) ClearCompanyWatch(c echo.Context) error {
	t, ok := h.target(c.Param("metric"))
	if !ok {
		return failure(http.StatusNotFound, "Unknown metric %q", c.Param("metric"))
	}
	id, padded, err := companyParam(c)
	if err != nil {
		return failure(http.StatusBadRequest, "Invalid CIK: %v", err)
	}

	t.registry.ClearCompany(c.Request().Context(), id)
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Cleared " + c.Param("metric") + " watch set for CIK " + padded,
	})
}

// ClearAllWatch handles DELETE /api/watch/:metric
func (h *Handler) ClearAllWatch(c echo.Context) error {
	t, ok := h.target(c.Param("metric"))
	if !ok {
		return failure(http.StatusNotFound, "Unknown metric %q", c.Param("metric"))
	}

	count := len(t.registry.Companies())
	t.registry.ClearAll(c.Request().Context())
	return c.JSON(http.StatusOK, Response{
		Success: true,
		Message: "Cleared " + c.Param("metric") + " watch sets",
		Count:   count,
	})
}
