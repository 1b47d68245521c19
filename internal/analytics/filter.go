package analytics

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/invoice-insights/internal/shared"
)

// Filter is the predicate shared by the chart queries. Every field is optional;
// StartDate and EndDate must be given together and bound the invoice date inclusively.
type Filter struct {
	SupplierIDs []string
	StartDate   *time.Time
	EndDate     *time.Time
	StatusID    *int64
}

// Validate reports a ValidationFailed error when only one date bound is set.
func (f Filter) Validate() error {
	if (f.StartDate == nil) != (f.EndDate == nil) {
		return &shared.Error{
			Kind: shared.KindValidationFailed,
			Op:   "analytics: filter",
			Fields: []shared.FieldError{{
				Field:   "start_date",
				Rule:    "pair",
				Message: "start_date and end_date must be supplied together",
			}},
			Err: errors.New("incomplete date range"),
		}
	}
	return nil
}

// cacheToken renders the filter deterministically for cache keys.
func (f Filter) cacheToken() string {
	ids := append([]string(nil), f.SupplierIDs...)
	sort.Strings(ids)
	parts := []string{"s=" + strings.Join(ids, ",")}
	if f.StartDate != nil && f.EndDate != nil {
		parts = append(parts, "d="+f.StartDate.Format(time.DateOnly)+".."+f.EndDate.Format(time.DateOnly))
	} else {
		parts = append(parts, "d=-")
	}
	if f.StatusID != nil {
		parts = append(parts, "st="+strconv.FormatInt(*f.StatusID, 10))
	} else {
		parts = append(parts, "st=-")
	}
	return strings.Join(parts, "|")
}

// ChartPoint is one labelled value of a chart series.
type ChartPoint struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MetricDelta pairs the current-week value with its percent change.
type MetricDelta struct {
	Difference int64 `json:"difference"`
	Amount     int64 `json:"amount"`
}

// WeeklyMetrics compares the last seven days with the seven days before.
type WeeklyMetrics struct {
	Earnings MetricDelta `json:"earnings"`
	Invoices MetricDelta `json:"invoices"`
	Overdue  MetricDelta `json:"overdue"`
}

// WindowTotals are the raw metrics of one date window.
type WindowTotals struct {
	TotalCost    float64
	InvoiceCount int64
	OverdueCount int64
}

// PercentChange returns the rounded percent change from previous to current.
// A zero previous value yields 0 when current is also zero and 100 otherwise.
func PercentChange(current, previous float64) int64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return roundHalfUp((current - previous) / previous * 100)
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int64 {
	return int64(math.Floor(v + 0.5))
}

// MonthLabel formats the first day of a month as "March 2024".
func MonthLabel(month time.Time) string {
	return month.Month().String() + " " + strconv.Itoa(month.Year())
}

// DayLabel formats a date as DD/MM/YYYY.
func DayLabel(day time.Time) string {
	return day.Format("02/01/2006")
}
