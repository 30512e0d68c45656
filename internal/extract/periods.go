package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openfipe/fipe-harvester/internal/model"
	"github.com/openfipe/fipe-harvester/pkg/fipe"
)

// monthNumbers maps the Portuguese month names of the reference table
// listing to their two-digit form.
var monthNumbers = map[string]string{
	"janeiro":   "01",
	"fevereiro": "02",
	"março":     "03",
	"abril":     "04",
	"maio":      "05",
	"junho":     "06",
	"julho":     "07",
	"agosto":    "08",
	"setembro":  "09",
	"outubro":   "10",
	"novembro":  "11",
	"dezembro":  "12",
}

// PeriodQuery is the (empty) query of the period extractor: the listing
// takes no parameters.
type PeriodQuery struct{}

// PeriodExtractor extracts the available reference periods.
type PeriodExtractor struct {
	client fipe.Client
}

var _ Extractor[PeriodQuery, model.ReferencePeriod] = (*PeriodExtractor)(nil)

// NewPeriodExtractor creates a period extractor on the given client.
func NewPeriodExtractor(client fipe.Client) *PeriodExtractor {
	return &PeriodExtractor{client: client}
}

// Extract lists every reference period, normalized to "MM/yyyy" and
// deduplicated by period string within the response.
func (e *PeriodExtractor) Extract(ctx context.Context, _ PeriodQuery) ([]model.ReferencePeriod, error) {
	tables, err := e.client.ReferenceTables(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "extract: reference periods")
	}

	periods := make([]model.ReferencePeriod, 0, len(tables))
	seen := make(map[string]struct{}, len(tables))
	for _, table := range tables {
		period := normalizePeriod(table.Month)
		if _, ok := seen[period]; ok {
			continue
		}
		seen[period] = struct{}{}
		periods = append(periods, model.ReferencePeriod{Period: period, Code: table.Code})
	}

	zap.L().Info("extracted reference periods", zap.Int("count", len(periods)))
	return periods, nil
}

// normalizePeriod converts "janeiro/2024" into "01/2024". Inputs that do
// not match the month/year shape pass through unchanged.
func normalizePeriod(month string) string {
	parts := strings.Split(month, "/")
	if len(parts) != 2 {
		return strings.TrimSpace(month)
	}

	name := strings.ToLower(strings.TrimSpace(parts[0]))
	year := strings.TrimSpace(parts[1])

	num, ok := monthNumbers[name]
	if !ok {
		num = "01"
	}
	return num + "/" + year
}

// FilterRange keeps the periods within [start, end], both optional and
// inclusive, compared by parsed (year, month) rather than raw string.
func FilterRange(periods []model.ReferencePeriod, start, end string) []model.ReferencePeriod {
	if start == "" && end == "" {
		return periods
	}

	lo := 0
	if start != "" {
		lo = model.PeriodOrdinal(start)
	}
	hi := int(^uint(0) >> 1)
	if end != "" {
		hi = model.PeriodOrdinal(end)
	}

	filtered := make([]model.ReferencePeriod, 0, len(periods))
	for _, p := range periods {
		ord := model.PeriodOrdinal(p.Period)
		if ord >= lo && ord <= hi {
			filtered = append(filtered, p)
		}
	}

	zap.L().Info("filtered reference periods",
		zap.Int("selected", len(filtered)),
		zap.Int("total", len(periods)),
		zap.String("start", start),
		zap.String("end", end),
	)
	return filtered
}

// LatestPeriod returns the most recent period by parsed (year, month).
// It returns false for an empty slice.
func LatestPeriod(periods []model.ReferencePeriod) (model.ReferencePeriod, bool) {
	if len(periods) == 0 {
		return model.ReferencePeriod{}, false
	}
	latest := periods[0]
	for _, p := range periods[1:] {
		if model.PeriodOrdinal(p.Period) > model.PeriodOrdinal(latest.Period) {
			latest = p
		}
	}
	return latest, true
}
