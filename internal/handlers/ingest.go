package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mauv0809/thesis-engine/internal/ingest"
	"github.com/mauv0809/thesis-engine/internal/watch"
	"github.com/rs/zerolog"
)

// testCIK is Apple Inc., used to probe the SEC API.
const testCIK = "0000320193"

// StatusSource reports client activity.
type StatusSource interface {
	Status() ingest.Status
}

// IngestHandler handles the SEC connectivity endpoints.
type IngestHandler struct {
	source FactSource
	status StatusSource
	store  watch.Store
	logger zerolog.Logger
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(source FactSource, status StatusSource, store watch.Store, logger zerolog.Logger) *IngestHandler {
	return &IngestHandler{
		source: source,
		status: status,
		store:  store,
		logger: logger.With().Str("component", "ingest-http").Logger(),
	}
}

// Register mounts the admin routes.
func (h *IngestHandler) Register(e *echo.Echo) {
	admin := e.Group("/admin")
	admin.GET("/ingest/status", h.IngestStatus)
	admin.GET("/ingest/test", h.IngestTest)
}

// IngestResponse is the JSON response for the test endpoint.
type IngestResponse struct {
	Response
	Entity   string `json:"entity,omitempty"`
	Concepts int    `json:"concepts"`
}

// IngestTest handles GET /admin/ingest/test
// Fetches Apple's company facts to verify the connection works.
func (h *IngestHandler) IngestTest(c echo.Context) error {
	start := time.Now()

	cf, err := h.source.FetchCompanyFacts(c.Request().Context(), testCIK)
	if err != nil {
		h.logger.Error().Err(err).Msg("API test failed")
		return failure(http.StatusBadGateway, "API test failed: %v", err)
	}

	elapsed := time.Since(start)
	concepts := len(cf.Keys())
	h.logger.Info().Int("concepts", concepts).Dur("elapsed", elapsed).Msg("API test succeeded")

	return c.JSON(http.StatusOK, IngestResponse{
		Response: Response{
			Success: true,
			Message: "API connection successful",
			Count:   concepts,
			Elapsed: elapsed.String(),
		},
		Entity:   cf.EntityName,
		Concepts: concepts,
	})
}

// IngestStatus handles GET /admin/ingest/status
// Returns client counters and whether the legacy watch migration ran.
func (h *IngestHandler) IngestStatus(c echo.Context) error {
	migrated, err := h.migrated(c.Request().Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("reading migration flag")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"client":   h.status.Status(),
		"migrated": migrated,
	})
}

func (h *IngestHandler) migrated(ctx context.Context) (bool, error) {
	if h.store == nil {
		return false, nil
	}
	_, ok, err := h.store.Get(ctx, watch.MigrationFlag)
	return ok, err
}
