package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/thesis-engine/internal/composite"
	"github.com/mauv0809/thesis-engine/internal/efficiency"
	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/growth"
	"github.com/mauv0809/thesis-engine/internal/ingest"
	"github.com/mauv0809/thesis-engine/internal/models"
	"github.com/mauv0809/thesis-engine/internal/thesis"
	"github.com/mauv0809/thesis-engine/internal/watch"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// FactSource retrieves company facts and resolves tickers.
type FactSource interface {
	FetchCompanyFacts(ctx context.Context, cik string) (*facts.CompanyFacts, error)
	LookupCIK(ctx context.Context, ticker string) (ingest.TickerEntry, error)
}

// Calculators are the engine components exposed over HTTP.
type Calculators struct {
	Growth     map[string]*growth.Calculator
	ROIC       *efficiency.Calculator
	Efficiency *efficiency.CapitalEfficiency
	User       *watch.Registry
}

// Handler serves the company and watch endpoints.
type Handler struct {
	source FactSource
	calc   Calculators
	thesis *thesis.Aggregator
	scores *composite.Service
	logger zerolog.Logger
}

// New creates a handler.
func New(source FactSource, calc Calculators, agg *thesis.Aggregator, scores *composite.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		source: source,
		calc:   calc,
		thesis: agg,
		scores: scores,
		logger: logger.With().Str("component", "http").Logger(),
	}
}

// Register mounts the health, company and watch routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("/lookup/:ticker", h.Lookup)
	api.DELETE("/watch/:metric", h.ClearAllWatch)

	company := api.Group("/companies/:cik")
	company.GET("/thesis", h.Thesis)
	company.GET("/scores", h.Scores)
	company.GET("/metrics/:metric", h.Metric)
	company.GET("/watch/:metric", h.Watch)
	company.DELETE("/watch/:metric", h.ClearCompanyWatch)
	company.POST("/watch/:metric/toggle", h.ToggleWatch)
	company.POST("/watch/:metric/gather", h.GatherWatch)
}

// Response is the JSON body for errors and simple acknowledgements.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
}

// Health returns application health status
// @Summary Health check
// @Description Returns the health status of the application
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// failure builds an HTTP error rendered as a Response body.
func failure(status int, format string, args ...any) *echo.HTTPError {
	return echo.NewHTTPError(status, Response{
		Success: false,
		Message: fmt.Sprintf(format, args...),
	})
}

// companyParam parses :cik into its numeric and padded forms.
func companyParam(c echo.Context) (int64, string, error) {
	return ingest.NormalizeCIK(c.Param("cik"))
}

// loadFacts fetches facts for :cik.
func (h *Handler) loadFacts(c echo.Context) (int64, *facts.CompanyFacts, error) {
	id, padded, err := companyParam(c)
	if err != nil {
		return 0, nil, failure(http.StatusBadRequest, "Invalid CIK: %v", err)
	}

	cf, err := h.source.FetchCompanyFacts(c.Request().Context(), padded)
	if err != nil {
		h.logger.Error().Err(err).Str("cik", padded).Msg("fetching company facts")
		if errors.Is(err, ingest.ErrNotFound) {
			return 0, nil, failure(http.StatusNotFound, "No company facts for CIK %s", padded)
		}
		return 0, nil, failure(http.StatusBadGateway, "Failed to fetch company facts: %v", err)
	}
	return id, cf, nil
}

// quoteParam reads the optional ?pe= price/earnings ratio.
func quoteParam(c echo.Context) (composite.Quote, error) {
	raw := c.QueryParam("pe")
	if raw == "" {
		return composite.Quote{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return composite.Quote{}, fmt.Errorf("invalid pe %q", raw)
	}
	pe := d.InexactFloat64()
	return composite.Quote{PE: &pe}, nil
}

func companyOf(id int64, cf *facts.CompanyFacts) models.Company {
	c := models.Company{CIK: id}
	if cf != nil {
		c.Name = cf.EntityName
	}
	return c
}

// round converts a computed float to a 4-place decimal for responses.
func round(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(4)
}

func yearValues(m map[int]float64) []models.YearValue {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	out := make([]models.YearValue, 0, len(years))
	for _, y := range years {
		out = append(out, models.YearValue{Year: y, Value: round(m[y])})
	}
	return out
}

func periodValues(m map[int]float64) []models.PeriodValue {
	periods := make([]int, 0, len(m))
	for p := range m {
		periods = append(periods, p)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(periods)))
	out := make([]models.PeriodValue, 0, len(periods))
	for _, p := range periods {
		out = append(out, models.PeriodValue{Period: p, Value: round(m[p])})
	}
	return out
}
