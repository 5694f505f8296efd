package engine

import (
	"sort"
	"strings"

	"github.com/andes-audit/concilia/internal/model"
)

// UnknownMonth is the bucket for dates that do not split into three parts.
const UnknownMonth = "Desconocido"

// MonthKey derives a YYYY-MM bucket from a raw date string. The date is
// split on "-" or "/"; with exactly three parts, a 4-digit first part is
// taken as the year, otherwise the third part is. The month part is not
// validated against 01-12 and DD/MM vs MM/DD is not disambiguated beyond
// the 4-digit-year positional rule; ambiguous shapes land in their literal
// bucket, unknown shapes in UnknownMonth. Empty segments do not count as
// parts, so shapes like "2024--" bucket as unknown rather than producing
// a bucket with an empty month.
func MonthKey(fecha string) string {
	parts := strings.FieldsFunc(strings.TrimSpace(fecha), func(r rune) bool {
		return r == '-' || r == '/'
	})
	if len(parts) != 3 {
		return UnknownMonth
	}

	var year, month string
	if len(parts[0]) == 4 {
		year, month = parts[0], parts[1]
	} else {
		year, month = parts[2], parts[1]
	}
	if len(month) == 1 {
		month = "0" + month
	}
	return year + "-" + month
}

// AggregateByMonth groups records into month buckets with per-bucket count
// and amount totals, sorted ascending by month key.
func AggregateByMonth(records []model.Record) []model.MonthBucket {
	byMonth := make(map[string]*model.MonthBucket)
	for _, rec := range records {
		key := MonthKey(rec.Fecha)
		b, ok := byMonth[key]
		if !ok {
			b = &model.MonthBucket{Month: key}
			byMonth[key] = b
		}
		b.Count++
		b.Total += rec.Monto
	}

	buckets := make([]model.MonthBucket, 0, len(byMonth))
	for _, b := range byMonth {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Month < buckets[j].Month
	})
	return buckets
}
