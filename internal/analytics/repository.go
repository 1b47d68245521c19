package analytics

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/invoice-insights/internal/platform/db"
	"github.com/odyssey-erp/invoice-insights/internal/reference"
)

// DatedCount is a count grouped by calendar day.
type DatedCount struct {
	Day   time.Time
	Count int64
}

// MonthTotal is a cost sum grouped by calendar month.
type MonthTotal struct {
	Month time.Time
	Total float64
}

// Repository runs the aggregation queries.
type Repository interface {
	AmountsByStatus(ctx context.Context, f Filter) ([]ChartPoint, error)
	OverdueByDueDate(ctx context.Context, f Filter) ([]DatedCount, error)
	MonthlyTotals(ctx context.Context, f Filter) ([]MonthTotal, error)
	SupplierTotals(ctx context.Context, f Filter) ([]ChartPoint, error)
	WindowTotals(ctx context.Context, from, to time.Time) (WindowTotals, error)
}

type repository struct {
	db db.Querier
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(q db.Querier) Repository {
	return &repository{db: q}
}

// conditions appends the filter predicates to where and args.
func conditions(f Filter, where []string, args []any) ([]string, []any) {
	if len(f.SupplierIDs) > 0 {
		args = append(args, f.SupplierIDs)
		where = append(where, "i.supplier_internal_id = ANY($"+strconv.Itoa(len(args))+")")
	}
	if f.StartDate != nil && f.EndDate != nil {
		args = append(args, *f.StartDate, *f.EndDate)
		where = append(where, "i.date BETWEEN $"+strconv.Itoa(len(args)-1)+" AND $"+strconv.Itoa(len(args)))
	}
	if f.StatusID != nil {
		args = append(args, *f.StatusID)
		where = append(where, "i.status_id = $"+strconv.Itoa(len(args)))
	}
	return where, args
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(where, " AND ")
}

func (r *repository) AmountsByStatus(ctx context.Context, f Filter) ([]ChartPoint, error) {
	where, args := conditions(f, nil, nil)
	rows, err := r.db.Query(ctx, `SELECT s.name, SUM(i.cost)::float8
		FROM invoices i JOIN invoice_status s ON s.id = i.status_id`+whereClause(where)+`
		GROUP BY s.name ORDER BY s.name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChartPoint
	for rows.Next() {
		var p ChartPoint
		if err := rows.Scan(&p.Name, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) OverdueByDueDate(ctx context.Context, f Filter) ([]DatedCount, error) {
	where, args := conditions(f, []string{"s.name = $1"}, []any{reference.StatusOverdue})
	rows, err := r.db.Query(ctx, `SELECT i.due_date, COUNT(i.id)
		FROM invoices i JOIN invoice_status s ON s.id = i.status_id`+whereClause(where)+`
		GROUP BY i.due_date ORDER BY i.due_date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DatedCount
	for rows.Next() {
		var c DatedCount
		if err := rows.Scan(&c.Day, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) MonthlyTotals(ctx context.Context, f Filter) ([]MonthTotal, error) {
	where, args := conditions(f, nil, nil)
	rows, err := r.db.Query(ctx, `SELECT date_trunc('month', i.date)::date AS month, SUM(i.cost)::float8
		FROM invoices i`+whereClause(where)+`
		GROUP BY month ORDER BY month`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MonthTotal
	for rows.Next() {
		var m MonthTotal
		if err := rows.Scan(&m.Month, &m.Total); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) SupplierTotals(ctx context.Context, f Filter) ([]ChartPoint, error) {
	where, args := conditions(f, nil, nil)
	rows, err := r.db.Query(ctx, `SELECT sp.company_name, SUM(i.cost)::float8
		FROM invoices i JOIN suppliers sp ON sp.internal_id = i.supplier_internal_id`+whereClause(where)+`
		GROUP BY sp.company_name ORDER BY 2 DESC, sp.company_name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChartPoint
	for rows.Next() {
		var p ChartPoint
		if err := rows.Scan(&p.Name, &p.Value); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// WindowTotals aggregates invoices dated within [from, to] inclusive.
func (r *repository) WindowTotals(ctx context.Context, from, to time.Time) (WindowTotals, error) {
	var t WindowTotals
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(i.cost), 0)::float8,
			COUNT(i.id),
			COUNT(i.id) FILTER (WHERE s.name = $3)
		FROM invoices i JOIN invoice_status s ON s.id = i.status_id
		WHERE i.date BETWEEN $1 AND $2`, from, to, reference.StatusOverdue).
		Scan(&t.TotalCost, &t.InvoiceCount, &t.OverdueCount)
	return t, err
}
