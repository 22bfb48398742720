// Package thesis gathers every calculator for one company and assembles a
// single snapshot of ROIC, growth and composite scores.
package thesis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mauv0809/thesis-engine/internal/composite"
	"github.com/mauv0809/thesis-engine/internal/efficiency"
	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/growth"
	"github.com/rs/zerolog"
)

// Series names used as snapshot map keys.
type Series string

const (
	SeriesROIC   Series = "roic"
	SeriesSales  Series = "sales"
	SeriesEPS    Series = "eps"
	SeriesEquity Series = "equity"
	SeriesFCF    Series = "fcf"
)

// Snapshot is the derived view of one company at one point in time.
type Snapshot struct {
	ID          uuid.UUID                          `json:"id"`
	CompanyID   int64                              `json:"company_id"`
	EntityName  string                             `json:"entity_name"`
	GeneratedAt time.Time                          `json:"generated_at"`
	ROIC        map[int]float64                    `json:"roic"`
	Growth      map[Series]map[int]float64         `json:"growth"`
	Averages    map[Series]map[int]float64         `json:"averages"`
	Historical  map[int]efficiency.HistoricalRates `json:"historical,omitempty"`
	Scores      composite.Scores                   `json:"scores"`
}

// Options tune Build.
type Options struct {
	Periods []int
	Quote   composite.Quote
}

// Aggregator owns the five calculators and the composite service.
type Aggregator struct {
	roic      *efficiency.Calculator
	sales     *growth.Calculator
	eps       *growth.Calculator
	equity    *growth.Calculator
	fcf       *growth.Calculator
	composite *composite.Service
	logger    zerolog.Logger
	now       func() time.Time
}

// New creates an aggregator.
func New(roic *efficiency.Calculator, sales, eps, equity, fcf *growth.Calculator, svc *composite.Service, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		roic:      roic,
		sales:     sales,
		eps:       eps,
		equity:    equity,
		fcf:       fcf,
		composite: svc,
		logger:    logger.With().Str("component", "thesis").Logger(),
		now:       time.Now,
	}
}

type namedCalculator struct {
	name Series
	calc *growth.Calculator
}

func (a *Aggregator) growthSeries() []namedCalculator {
	return []namedCalculator{
		{SeriesSales, a.sales},
		{SeriesEPS, a.eps},
		{SeriesEquity, a.equity},
		{SeriesFCF, a.fcf},
	}
}

// Gather tracks every relevant fact in all five calculators.
func (a *Aggregator) Gather(ctx context.Context, companyID int64, cf *facts.CompanyFacts) {
	if cf == nil {
		return
	}
	a.roic.Gather(ctx, companyID, cf)
	for _, s := range a.growthSeries() {
		s.calc.Gather(ctx, companyID, cf)
	}
}

// Build computes the snapshot from the current watch state. Each series
// reports only the years it can compute.
func (a *Aggregator) Build(companyID int64, cf *facts.CompanyFacts, opts Options) Snapshot {
	periods := opts.Periods
	if len(periods) == 0 {
		periods = growth.DefaultPeriods
	}

	snap := Snapshot{
		ID:          uuid.New(),
		CompanyID:   companyID,
		GeneratedAt: a.now().UTC(),
		ROIC:        map[int]float64{},
		Growth:      make(map[Series]map[int]float64),
		Averages:    make(map[Series]map[int]float64),
		Historical:  map[int]efficiency.HistoricalRates{},
	}
	if cf == nil {
		return snap
	}
	snap.EntityName = cf.EntityName

	snap.ROIC = a.roic.ROICByYear(companyID, cf)
	snap.Averages[SeriesROIC] = a.roic.TrailingAverages(companyID, cf, periods)
	snap.Historical = a.roic.HistoricalRatesByYear(companyID, cf)

	for _, s := range a.growthSeries() {
		snap.Growth[s.name] = s.calc.GrowthRates(companyID, cf)
		snap.Averages[s.name] = s.calc.TrailingAverages(companyID, cf, periods)
	}

	if a.composite != nil {
		snap.Scores = a.composite.Calculate(companyID, cf, opts.Quote)
	}

	a.logger.Info().
		Int64("company", companyID).
		Int("roic_years", len(snap.ROIC)).
		Str("snapshot", snap.ID.String()).
		Msg("thesis built")
	return snap
}

// Generate gathers and then builds.
func (a *Aggregator) Generate(ctx context.Context, companyID int64, cf *facts.CompanyFacts, opts Options) Snapshot {
	a.Gather(ctx, companyID, cf)
	return a.Build(companyID, cf, opts)
}
