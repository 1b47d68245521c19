package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/invoice-insights/internal/analytics"
)

// WriteChartCSV serialises a chart series as two columns.
func WriteChartCSV(w io.Writer, label, value string, points []analytics.ChartPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{label, value}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{point.Name, formatFloat(point.Value)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteWeeklyCSV emits the weekly comparison with one row per metric.
func WriteWeeklyCSV(w io.Writer, metrics analytics.WeeklyMetrics) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Metric", "Amount", "Difference %"}); err != nil {
		return err
	}
	records := []struct {
		name  string
		delta analytics.MetricDelta
	}{
		{"Earnings", metrics.Earnings},
		{"Invoices", metrics.Invoices},
		{"Overdue", metrics.Overdue},
	}
	for _, record := range records {
		if err := writer.Write([]string{
			record.name,
			strconv.FormatInt(record.delta.Amount, 10),
			strconv.FormatInt(record.delta.Difference, 10),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
