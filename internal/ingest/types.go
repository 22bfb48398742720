package ingest

import (
	"github.com/shopspring/decimal"
)

// CompanyFactsResponse is the raw SEC companyfacts document.
// Layout: facts -> taxonomy -> concept -> units -> unit -> points.
type CompanyFactsResponse struct {
	CIK        int64                         `json:"cik"`
	EntityName string                        `json:"entityName"`
	Facts      map[string]map[string]Concept `json:"facts"`
}

// Concept is one XBRL concept with its points grouped by unit.
type Concept struct {
	Label       string                `json:"label"`
	Description string                `json:"description"`
	Units       map[string][]RawPoint `json:"units"`
}

// RawPoint is one disclosed value as SEC serves it.
type RawPoint struct {
	Start string          `json:"start,omitempty"`
	End   string          `json:"end"`
	Val   decimal.Decimal `json:"val"`
	Accn  string          `json:"accn"`
	// FY is null for some frames-only points.
	FY    *int   `json:"fy"`
	FP    string `json:"fp"`
	Form  string `json:"form"`
	Filed string `json:"filed"`
	Frame string `json:"frame,omitempty"`
}

// TickerEntry is one row of SEC company_tickers.json.
type TickerEntry struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// Status summarises client activity.
type Status struct {
	Requests  int64  `json:"requests"`
	Failures  int64  `json:"failures"`
	Retries   int64  `json:"retries"`
	LastCIK   string `json:"last_cik,omitempty"`
	LastError string `json:"last_error,omitempty"`
}
