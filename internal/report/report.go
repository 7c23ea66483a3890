// Package report renders prediction history as an Excel workbook.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/sfgaluminium1-spec/sfg-app-portfolio-sub004/internal/store"
)

// SheetName is the worksheet holding the prediction rows.
const SheetName = "Predictions"

const timeLayout = "2006-01-02 15:04:05"

// Header is the first row of the worksheet.
var Header = []string{
	"ID",
	"Created",
	"Product",
	"Category",
	"Customer",
	"Quantity",
	"Predicted Price (£)",
	"Confidence",
	"Model",
	"Target ID",
	"Target Type",
}

// numeric format ids built into Excel
const (
	numFmtTwoDecimals = 2
	numFmtPercent     = 9
)

// WritePredictions writes predictions as an xlsx workbook to w.
func WritePredictions(w io.Writer, predictions []store.PredictionSummary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	header := make([]any, len(Header))
	for i, h := range Header {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, p := range predictions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			p.ID,
			p.CreatedAt.UTC().Format(timeLayout),
			p.Product,
			p.Category,
			p.CustomerName,
			p.Quantity,
			p.PredictedPrice,
			p.Confidence,
			p.ModelUsed,
			p.TargetID,
			p.TargetType,
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := styleSheet(f, len(predictions)); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func styleSheet(f *excelize.File, rows int) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "K", 18); err != nil {
		return err
	}
	if rows == 0 {
		return nil
	}

	price, err := f.NewStyle(&excelize.Style{NumFmt: numFmtTwoDecimals})
	if err != nil {
		return err
	}
	percent, err := f.NewStyle(&excelize.Style{NumFmt: numFmtPercent})
	if err != nil {
		return err
	}
	last := rows + 1
	if err := f.SetCellStyle(SheetName, "G2", fmt.Sprintf("G%d", last), price); err != nil {
		return err
	}
	return f.SetCellStyle(SheetName, "H2", fmt.Sprintf("H%d", last), percent)
}
