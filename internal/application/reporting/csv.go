package reporting

import (
	"encoding/csv"
	"io"

	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// WriteChequesCSV writes the header row and one row per cheque. Fields are
// quoted per RFC 4180, so a bank name or note containing a comma, quote or
// newline stays in its column.
func WriteChequesCSV(w io.Writer, cheques []*cheque.Cheque) error {
	return writeCSV(w, ChequeTable(cheques))
}

// WriteAlertsCSV writes one row per alert.
func WriteAlertsCSV(w io.Writer, alerts []alert.Alert) error {
	return writeCSV(w, AlertTable(alerts))
}

// WriteReportCSV writes each report section as a block: a title row, the
// header, the rows and a blank separator line.
func WriteReportCSV(w io.Writer, rep *report.Report) error {
	if rep == nil {
		return errors.New(errors.ErrCodeReportRenderFailed, "report is nil")
	}
	tables := ReportTables(rep)
	for i, t := range tables {
		if err := writeCSV(w, t, t.Name); err != nil {
			return err
		}
		if i < len(tables)-1 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to write csv")
			}
		}
	}
	return nil
}

func writeCSV(w io.Writer, t Table, title ...string) error {
	cw := csv.NewWriter(w)
	if len(title) > 0 {
		if err := cw.Write(title); err != nil {
			return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to write csv")
		}
	}
	if err := cw.Write(t.Header); err != nil {
		return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to write csv")
	}
	record := make([]string, len(t.Header))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = CellString(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to write csv").
				WithDetail("table=" + t.Name)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeReportRenderFailed, "failed to flush csv")
	}
	return nil
}
