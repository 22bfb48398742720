package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mauv0809/thesis-engine/internal/facts"
)

const dateLayout = "2006-01-02"

// NormalizeCIK accepts "320193", "0000320193" or "CIK0000320193" and returns
// the numeric CIK and its 10-digit form.
func NormalizeCIK(raw string) (int64, string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(strings.ToUpper(s), "CIK")
	if s == "" {
		return 0, "", fmt.Errorf("empty CIK")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("invalid CIK %q", raw)
	}
	padded := fmt.Sprintf("%010d", id)
	if len(padded) > 10 {
		return 0, "", fmt.Errorf("invalid CIK %q: more than 10 digits", raw)
	}
	return id, padded, nil
}

// parseDate parses an ISO date string.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	return time.Parse(dateLayout, s)
}

// ParseCompanyFacts converts the SEC document into the fact store model.
// Points without a fiscal year or with unreadable dates are skipped and
// counted.
func ParseCompanyFacts(resp *CompanyFactsResponse) (*facts.CompanyFacts, int) {
	cf := facts.New(resp.CIK, resp.EntityName)
	skipped := 0

	for taxonomy, concepts := range resp.Facts {
		for key, concept := range concepts {
			for unit, raw := range concept.Units {
				points := make([]facts.DataPoint, 0, len(raw))
				for _, r := range raw {
					p, ok := toDataPoint(r)
					if !ok {
						skipped++
						continue
					}
					points = append(points, p)
				}
				if len(points) > 0 {
					cf.Add(taxonomy, key, unit, points...)
				}
			}
		}
	}
	return cf, skipped
}

func toDataPoint(r RawPoint) (facts.DataPoint, bool) {
	if r.FY == nil {
		return facts.DataPoint{}, false
	}
	filed, err := parseDate(r.Filed)
	if err != nil {
		return facts.DataPoint{}, false
	}
	end, err := parseDate(r.End)
	if err != nil {
		return facts.DataPoint{}, false
	}

	p := facts.DataPoint{
		FiscalYear:   *r.FY,
		FiscalPeriod: r.FP,
		Value:        r.Val.InexactFloat64(),
		FilingType:   r.Form,
		FiledDate:    filed,
		PeriodEnd:    end,
	}
	if r.Start != "" {
		if start, err := parseDate(r.Start); err == nil {
			p.PeriodStart = &start
		}
	}
	return p, true
}
