// Package reporting turns computed passes into files: CSV and XLSX renderings
// of the cheque portfolio, the report and the alert list, and the upload of
// those files to object storage. It never computes statistics itself.
package reporting

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// ============================================================================
// Formats & Kinds
// ============================================================================

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", errors.New(errors.ErrCodeReportFormatUnsupported, "unsupported export format").
			WithDetail("value=" + v)
	}
}

// ContentType returns the MIME type of files in f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Kind is the dataset being exported.
type Kind string

const (
	KindCheques Kind = "cheques"
	KindReport  Kind = "report"
	KindAlerts  Kind = "alerts"
)

// ParseKind parses a dataset name.
func ParseKind(v string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(v))); k {
	case KindCheques, KindReport, KindAlerts:
		return k, nil
	default:
		return "", errors.New(errors.ErrCodeBadRequest, "unknown export kind").WithDetail("value=" + v)
	}
}

// ============================================================================
// Tables
// ============================================================================

// Table is a named grid of typed cells. Cells are string, int, float64 or
// decimal.Decimal; each writer decides how to encode them.
type Table struct {
	Name   string
	Header []string
	Rows   [][]interface{}
}

// ChequeColumns is the header of the cheque export.
var ChequeColumns = []string{
	"id", "bank_name", "check_amount", "check_date", "dishonor_date",
	"legal_notice_date", "notice_status", "case_filed_date", "client_id",
	"case_id", "notes", "created_at",
}

// ChequeTable lays out one row per cheque in input order.
func ChequeTable(cheques []*cheque.Cheque) Table {
	t := Table{Name: "Cheques", Header: ChequeColumns, Rows: make([][]interface{}, 0, len(cheques))}
	for _, c := range cheques {
		var amount interface{} = ""
		if c.Amount.Valid {
			amount = c.Amount.Decimal
		}
		t.Rows = append(t.Rows, []interface{}{
			c.ID,
			c.BankName,
			amount,
			c.CheckDate.String(),
			optionalDate(c.DishonorDate),
			optionalDate(c.LegalNoticeDate),
			string(c.NoticeStatus),
			optionalDate(c.CaseFiledDate),
			c.ClientID,
			c.CaseID,
			c.Notes,
			instant(c.CreatedAt),
		})
	}
	return t
}

// ReportTables lays out the report sections: summary, banks, statuses,
// monthly series and deadline counters.
func ReportTables(rep *report.Report) []Table {
	summary := Table{
		Name:   "Summary",
		Header: []string{"metric", "value"},
		Rows: [][]interface{}{
			{"generated_at", instant(rep.GeneratedAt)},
			{"total_count", rep.TotalCount},
			{"total_amount", rep.TotalAmount},
		},
	}

	banks := Table{Name: "By Bank", Header: []string{"bank", "count", "amount", "completedCount", "rate"}}
	for _, b := range rep.ByBank {
		banks.Rows = append(banks.Rows, []interface{}{b.Bank, b.Count, b.Amount, b.CompletedCount, b.Rate})
	}

	statuses := Table{Name: "By Status", Header: []string{"status", "count", "amount", "percent"}}
	for _, s := range rep.ByStatus {
		statuses.Rows = append(statuses.Rows, []interface{}{string(s.Status), s.Count, s.Amount, s.Percent})
	}

	monthly := Table{Name: "Monthly", Header: []string{"month", "count", "amount"}}
	for _, m := range rep.Monthly {
		monthly.Rows = append(monthly.Rows, []interface{}{m.Month, m.Count, m.Amount})
	}

	deadlines := Table{Name: "Deadlines", Header: []string{"stage", "overdue", "upcoming"}}
	for _, s := range cheque.Stages() {
		deadlines.Rows = append(deadlines.Rows, []interface{}{s.String(), rep.Deadlines.Overdue(s), rep.Deadlines.Upcoming(s)})
	}

	return []Table{summary, banks, statuses, monthly, deadlines}
}

// AlertTable lays out alerts in the order given.
func AlertTable(alerts []alert.Alert) Table {
	t := Table{
		Name:   "Alerts",
		Header: []string{"check_id", "bank_name", "stage", "severity", "days_remaining", "days_overdue", "due_date", "message"},
		Rows:   make([][]interface{}, 0, len(alerts)),
	}
	for _, a := range alerts {
		t.Rows = append(t.Rows, []interface{}{
			a.ChequeID,
			a.BankName,
			a.Stage.String(),
			string(a.Severity),
			optionalInt(a.DaysRemaining),
			optionalInt(a.DaysOverdue),
			a.DueDate.String(),
			a.Message,
		})
	}
	return t
}

func optionalDate(d *cheque.Date) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func optionalInt(n *int) interface{} {
	if n == nil {
		return ""
	}
	return *n
}

func instant(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// CellString is the textual form of a cell. Amounts show at least two
// decimals and are never rounded.
func CellString(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case decimal.Decimal:
		if x.Equal(x.Round(2)) {
			return x.StringFixed(2)
		}
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}
