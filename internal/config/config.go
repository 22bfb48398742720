// Package config reads service settings from the environment and the
// optional metrics key file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mauv0809/thesis-engine/internal/efficiency"
	"github.com/mauv0809/thesis-engine/internal/facts"
	"github.com/mauv0809/thesis-engine/internal/growth"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPort      = "8080"
	DefaultStateFile = "data/watch.json"
	DefaultLogLevel  = "info"
	DefaultUserAgent = "thesis-engine admin@example.com"
)

// Config holds everything cmd/app needs to start.
type Config struct {
	DatabaseURL  string
	Port         string
	SECUserAgent string
	StateFile    string
	MetricsFile  string
	LogLevel     string
	Metrics      Metrics
}

// Metrics maps each calculator input onto an XBRL concept.
type Metrics struct {
	Revenue             string                 `yaml:"revenue"`
	EPS                 string                 `yaml:"eps"`
	Equity              string                 `yaml:"equity"`
	SharesOutstanding   string                 `yaml:"shares_outstanding"`
	OperatingCashFlow   string                 `yaml:"operating_cash_flow"`
	CapitalExpenditures string                 `yaml:"capital_expenditures"`
	ROIC                efficiency.Keys        `yaml:"roic"`
	Efficiency          efficiency.CapitalKeys `yaml:"efficiency"`
}

// DefaultMetrics returns the stock us-gaap concepts.
func DefaultMetrics() Metrics {
	return Metrics{
		Revenue:             facts.KeyRevenue,
		EPS:                 facts.KeyEPSDiluted,
		Equity:              facts.KeyStockholdersEquity,
		SharesOutstanding:   facts.KeySharesOutstanding,
		OperatingCashFlow:   facts.KeyOperatingCashFlow,
		CapitalExpenditures: facts.KeyCapitalExpenditures,
		ROIC:                efficiency.DefaultKeys(),
		Efficiency:          efficiency.DefaultCapitalKeys(),
	}
}

// Load reads .env when present, then the environment, then the metrics
// file named by METRICS_CONFIG.
func Load() (*Config, error) {
	// .env is optional outside local dev
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		Port:         getenv("PORT", DefaultPort),
		SECUserAgent: getenv("SEC_USER_AGENT", DefaultUserAgent),
		StateFile:    getenv("STATE_FILE", DefaultStateFile),
		MetricsFile:  os.Getenv("METRICS_CONFIG"),
		LogLevel:     getenv("LOG_LEVEL", DefaultLogLevel),
		Metrics:      DefaultMetrics(),
	}

	if cfg.MetricsFile != "" {
		m, err := LoadMetrics(cfg.MetricsFile)
		if err != nil {
			return nil, err
		}
		cfg.Metrics = m
	}
	return cfg, nil
}

// LoadMetrics reads key overrides from a YAML file on top of the defaults.
func LoadMetrics(path string) (Metrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metrics{}, fmt.Errorf("reading metrics config: %w", err)
	}
	return ParseMetrics(data)
}

// ParseMetrics applies YAML overrides to the defaults. Keys left out keep
// their default; keys set to an empty string are rejected.
func ParseMetrics(data []byte) (Metrics, error) {
	m := DefaultMetrics()
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Metrics{}, fmt.Errorf("parsing metrics config: %w", err)
	}
	if err := m.validate(); err != nil {
		return Metrics{}, err
	}
	return m, nil
}

func (m Metrics) validate() error {
	fields := map[string]string{
		"revenue":                        m.Revenue,
		"eps":                            m.EPS,
		"equity":                         m.Equity,
		"shares_outstanding":             m.SharesOutstanding,
		"operating_cash_flow":            m.OperatingCashFlow,
		"capital_expenditures":           m.CapitalExpenditures,
		"roic.operating_income":          m.ROIC.OperatingIncome,
		"roic.assets":                    m.ROIC.Assets,
		"roic.cash":                      m.ROIC.Cash,
		"roic.liabilities":               m.ROIC.Liabilities,
		"roic.long_term_debt":            m.ROIC.LongTermDebt,
		"roic.long_term_investments":     m.ROIC.LongTermInvestments,
		"roic.income_tax_expense":        m.ROIC.IncomeTaxExpense,
		"roic.income_before_tax":         m.ROIC.IncomeBeforeTax,
		"efficiency.net_income":          m.Efficiency.NetIncome,
		"efficiency.assets":              m.Efficiency.Assets,
		"efficiency.current_liabilities": m.Efficiency.CurrentLiabilities,
	}
	var errs []error
	for name, v := range fields {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("metrics config: %s must not be empty", name))
		}
	}
	return errors.Join(errs...)
}

// Growth returns the growth calculator configurations.
func (m Metrics) Growth() (sales, eps, equity, fcf, bookValue growth.Config) {
	return growth.Sales(m.Revenue),
		growth.EPS(m.EPS),
		growth.Equity(m.Equity),
		growth.FCF(m.OperatingCashFlow, m.CapitalExpenditures),
		growth.BookValue(m.Equity, m.SharesOutstanding)
}

// Sources returns the Big-Five inputs for the configured concepts.
func (m Metrics) Sources() efficiency.Sources {
	return efficiency.Sources{
		Sales:  growth.KeyValue(m.Revenue),
		EPS:    growth.KeyValue(m.EPS),
		Equity: growth.KeyValue(m.Equity),
		FCF:    growth.StrictFCFValue(m.OperatingCashFlow, m.CapitalExpenditures),
	}
}

// UsePostgres reports whether watch state goes to the database.
func (c *Config) UsePostgres() bool {
	return c.DatabaseURL != ""
}

// Logger builds the service logger. Unknown levels fall back to info.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	return NewLogger(w, c.LogLevel)
}

// NewLogger builds a console logger at level, falling back to info.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
