package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/thesis-engine/internal/efficiency"
	"github.com/mauv0809/thesis-engine/internal/growth"
	"github.com/mauv0809/thesis-engine/internal/ingest"
	"github.com/mauv0809/thesis-engine/internal/models"
	"github.com/mauv0809/thesis-engine/internal/thesis"
)

// Thesis handles GET /api/companies/:cik/thesis
// Gathers every calculator and returns the full snapshot.
// Query params:
// - pe: current price/earnings ratio (optional)
func (h *Handler) Thesis(c echo.Context) error {
	quote, err := quoteParam(c)
	if err != nil {
		return failure(http.StatusBadRequest, "%v", err)
	}
	id, cf, err := h.loadFacts(c)
	if err != nil {
		return err
	}

	snap := h.thesis.Generate(c.Request().Context(), id, cf, thesis.Options{Quote: quote})
	return c.JSON(http.StatusOK, snap)
}

// Scores handles GET /api/companies/:cik/scores
// Query params:
// - pe: current price/earnings ratio (optional)
func (h *Handler) Scores(c echo.Context) error {
	quote, err := quoteParam(c)
	if err != nil {
		return failure(http.StatusBadRequest, "%v", err)
	}
	id, cf, err := h.loadFacts(c)
	if err != nil {
		return err
	}

	h.thesis.Gather(c.Request().Context(), id, cf)
	return c.JSON(http.StatusOK, map[string]any{
		"company": companyOf(id, cf),
		"scores":  h.scores.Calculate(id, cf, quote),
	})
}

// ROICReport is the response body of the roic metric.
type ROICReport struct {
	Company    models.Company                     `json:"company"`
	Breakdowns []efficiency.Breakdown             `json:"breakdowns"`
	Averages   []models.PeriodValue               `json:"averages"`
	Historical map[int]efficiency.HistoricalRates `json:"historical"`
}

// EfficiencyReport is the response body of the efficiency metric.
type EfficiencyReport struct {
	Company    models.Company     `json:"company"`
	ReadyYears []int              `json:"ready_years"`
	Returns    []models.YearValue `json:"returns"`
	Watched    []models.YearValue `json:"watched"`
}

// Metric handles GET /api/companies/:cik/metrics/:metric
// metric is one of sales, eps, equity, fcf, bookvalue, roic, efficiency.
func (h *Handler) Metric(c echo.Context) error {
	name := strings.ToLower(c.Param("metric"))
	calc, isGrowth := h.calc.Growth[name]
	if !isGrowth && name != "roic" && name != "efficiency" {
		return failure(http.StatusNotFound, "Unknown metric %q", name)
	}

	id, cf, err := h.loadFacts(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	switch name {
	case "roic":
		h.calc.ROIC.Gather(ctx, id, cf)
		breakdowns := h.calc.ROIC.Breakdowns(id, cf)
		if breakdowns == nil {
			breakdowns = []efficiency.Breakdown{}
		}
		return c.JSON(http.StatusOK, ROICReport{
			Company:    companyOf(id, cf),
			Breakdowns: breakdowns,
			Averages:   periodValues(h.calc.ROIC.TrailingAverages(id, cf, growth.DefaultPeriods)),
			Historical: h.calc.ROIC.HistoricalRatesByYear(id, cf),
		})

	case "efficiency":
		h.calc.Efficiency.Gather(ctx, id, cf)
		return c.JSON(http.StatusOK, EfficiencyReport{
			Company:    companyOf(id, cf),
			ReadyYears: nonNil(h.calc.Efficiency.ReadyYears(id, cf)),
			Returns:    yearValues(h.calc.Efficiency.ReturnsByYear(id, cf)),
			Watched:    yearValues(h.calc.Efficiency.WatchedReturns(id, cf)),
		})
	}

	calc.Gather(ctx, id, cf)
	return c.JSON(http.StatusOK, models.MetricReport{
		Company:    companyOf(id, cf),
		Metric:     calc.Name(),
		ReadyYears: nonNil(calc.ReadyYears(id, cf)),
		Values:     yearValues(calc.Values(id, cf)),
		Growth:     yearValues(calc.GrowthRates(id, cf)),
		Averages:   periodValues(calc.TrailingAverages(id, cf, growth.DefaultPeriods)),
	})
}

// Lookup handles GET /api/lookup/:ticker
func (h *Handler) Lookup(c echo.Context) error {
	ticker := c.Param("ticker")
	entry, err := h.source.LookupCIK(c.Request().Context(), ticker)
	if errors.Is(err, ingest.ErrNotFound) {
		return failure(http.StatusNotFound, "Unknown ticker %q", strings.ToUpper(ticker))
	}
	if err != nil {
		h.logger.Error().Err(err).Str("ticker", ticker).Msg("looking up ticker")
		return failure(http.StatusBadGateway, "Ticker lookup failed: %v", err)
	}
	return c.JSON(http.StatusOK, models.Company{
		CIK:    entry.CIK,
		Ticker: entry.Ticker,
		Name:   entry.Title,
	})
}

func nonNil(years []int) []int {
	if years == nil {
		return []int{}
	}
	return years
}
