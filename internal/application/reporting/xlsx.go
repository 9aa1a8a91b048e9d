package reporting

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

const defaultSheet = "Sheet1"

// WriteReportXLSX writes a workbook with one sheet per report section and an
// Alerts sheet.
func WriteReportXLSX(w io.Writer, rep *report.Report, alerts []alert.Alert) error {
	if rep == nil {
		return errors.New(errors.ErrCodeReportRenderFailed, "report is nil")
	}
	tables := append(ReportTables(rep), AlertTable(alerts))
	return writeWorkbook(w, tables)
}

// WriteChequesXLSX writes the cheque export as a single-sheet workbook.
func WriteChequesXLSX(w io.Writer, cheques []*cheque.Cheque) error {
	return writeWorkbook(w, []Table{ChequeTable(cheques)})
}

// WriteAlertsXLSX writes the alert list as a single-sheet workbook.
func WriteAlertsXLSX(w io.Writer, alerts []alert.Alert) error {
	return writeWorkbook(w, []Table{AlertTable(alerts)})
}

func writeWorkbook(w io.Writer, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to create header style")
	}

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, t.Name); err != nil {
				return renderFailed(err, t.Name)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return renderFailed(err, t.Name)
		}
		if err := writeSheet(f, t, header); err != nil {
			return renderFailed(err, t.Name)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to write workbook")
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	for col, h := range t.Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(t.Name, cell, h); err != nil {
			return err
		}
	}
	if len(t.Header) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Header), 1)
		if err := f.SetCellStyle(t.Name, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range t.Rows {
		for col, v := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(t.Name, cell, sheetValue(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

// sheetValue keeps numbers numeric in the sheet.
func sheetValue(v interface{}) interface{} {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}
	return v
}

func renderFailed(err error, sheet string) error {
	return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to render sheet").WithDetail("sheet=" + sheet)
}
