package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/couple-finance/internal/domain/forecast"
	"github.com/FACorreiaa/couple-finance/pkg/money"
)

const (
	projectionSheet = "Projection"
	alertsSheet     = "Alerts"
)

// WriteXLSX writes a workbook with a day by day sheet and an alerts sheet.
// Balances are written as numbers in currency units so they can be charted.
func WriteXLSX(w io.Writer, p *forecast.Projection) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", projectionSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"Date", "Balance", "Net change", "Negative", "Transactions", "Alert"}
	if err := f.SetSheetRow(projectionSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	negative, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Color: "9C0006"},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
		NumFmt: 4,
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	_ = f.SetCellStyle(projectionSheet, "A1", "F1", bold)

	for i, r := range Rows(p) {
		rowIdx := i + 2
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx)
		values := []any{
			r.Date,
			unitsOf(r.BalanceMinor, p.CurrencyCode),
			unitsOf(r.NetChangeMinor, p.CurrencyCode),
			r.IsNegative,
			r.Transactions,
			r.Alert,
		}
		if err := f.SetSheetRow(projectionSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowIdx, err)
		}

		style := amount
		if r.IsNegative {
			style = negative
		}
		from, _ := excelize.CoordinatesToCellName(2, rowIdx)
		to, _ := excelize.CoordinatesToCellName(3, rowIdx)
		_ = f.SetCellStyle(projectionSheet, from, to, style)
	}

	_ = f.SetColWidth(projectionSheet, "A", "A", 12)
	_ = f.SetColWidth(projectionSheet, "B", "C", 14)
	_ = f.SetColWidth(projectionSheet, "E", "E", 60)

	if _, err := f.NewSheet(alertsSheet); err != nil {
		return fmt.Errorf("failed to create alerts sheet: %w", err)
	}
	alertHeader := []any{"Date", "Kind", "Message", "Balance"}
	if err := f.SetSheetRow(alertsSheet, "A1", &alertHeader); err != nil {
		return fmt.Errorf("failed to write alerts header: %w", err)
	}
	_ = f.SetCellStyle(alertsSheet, "A1", "D1", bold)
	for i, a := range p.Alerts {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{a.Date.Format(time.DateOnly), string(a.Kind), a.Message, unitsOf(a.BalanceMinor, p.CurrencyCode)}
		if err := f.SetSheetRow(alertsSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write alert: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func unitsOf(minor int64, currency string) float64 {
	return money.New(minor, currency).ToDecimal().InexactFloat64()
}
