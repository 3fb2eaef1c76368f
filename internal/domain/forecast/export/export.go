// Package export renders projections as CSV or XLSX spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	"github.com/FACorreiaa/couple-finance/pkg/money"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts "csv" or "xlsx", defaulting to csv when empty
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename builds the download name for a projection starting on start
func (f Format) Filename(start time.Time) string {
	return fmt.Sprintf("projection-%s.%s", start.Format(time.DateOnly), f)
}

// Row is one projected day as exported
type Row struct {
	Date           string `csv:"date"`
	Balance        string `csv:"balance"`
	BalanceMinor   int64  `csv:"balance_minor"`
	NetChangeMinor int64  `csv:"net_change_minor"`
	IsNegative     bool   `csv:"is_negative"`
	Transactions   string `csv:"transactions"`
	Alert          string `csv:"alert"`
}

// Rows flattens a projection into one row per day
func Rows(p *forecast.Projection) []Row {
	alerts := make(map[string]string, len(p.Alerts))
	for _, a := range p.Alerts {
		alerts[a.Date.Format(time.DateOnly)] = joinNonEmpty(alerts[a.Date.Format(time.DateOnly)], string(a.Kind))
	}

	rows := make([]Row, 0, len(p.Days))
	for _, d := range p.Days {
		date := d.Date.Format(time.DateOnly)
		rows = append(rows, Row{
			Date:           date,
			Balance:        money.New(d.BalanceMinor, p.CurrencyCode).String(),
			BalanceMinor:   d.BalanceMinor,
			NetChangeMinor: d.NetChange(),
			IsNegative:     d.IsNegative,
			Transactions:   describeTransactions(d.Transactions, p.CurrencyCode),
			Alert:          alerts[date],
		})
	}
	return rows
}

// WriteCSV writes the projection as CSV with a header row
func WriteCSV(w io.Writer, p *forecast.Projection) error {
	if err := gocsv.Marshal(Rows(p), w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// Write renders the projection in the given format
func Write(w io.Writer, format Format, p *forecast.Projection) error {
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, p)
	default:
		return WriteCSV(w, p)
	}
}

func describeTransactions(txs []forecast.ProjectedTransaction, currency string) string {
	parts := make([]string, 0, len(txs))
	for _, tx := range txs {
		label := tx.Description
		if tx.IsSimulation {
			label += " [what-if]"
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", label, money.New(tx.SignedAmount(), currency).String()))
	}
	return strings.Join(parts, "; ")
}

func joinNonEmpty(a, b string) string {
	if a == "" {
		return b
	}
	return a + "," + b
}
