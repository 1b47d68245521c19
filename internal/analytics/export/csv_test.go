package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoice-insights/internal/analytics"
)

func TestWriteChartCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteChartCSV(&buf, "Month", "Total", []analytics.ChartPoint{
		{Name: "March 2024", Value: 150},
		{Name: "April 2024", Value: 12.5},
	})
	require.NoError(t, err)
	require.Equal(t, "Month,Total\nMarch 2024,150.00\nApril 2024,12.50\n", buf.String())
}

func TestWriteChartCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChartCSV(&buf, "Status", "Amount", nil))
	require.Equal(t, "Status,Amount\n", buf.String())
}

func TestWriteWeeklyCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteWeeklyCSV(&buf, analytics.WeeklyMetrics{
		Earnings: analytics.MetricDelta{Difference: -25, Amount: 300},
		Invoices: analytics.MetricDelta{Difference: 100, Amount: 3},
		Overdue:  analytics.MetricDelta{Difference: 0, Amount: 0},
	})
	require.NoError(t, err)
	require.Equal(t, "Metric,Amount,Difference %\nEarnings,300,-25\nInvoices,3,100\nOverdue,0,0\n", buf.String())
}
