package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// Dates are "YYYY-MM-DD" strings throughout.

// Cheque is a stored cheque record.
type Cheque struct {
	ID              string              `json:"id"`
	BankName        string              `json:"bank_name"`
	Amount          decimal.NullDecimal `json:"check_amount"`
	CheckDate       string              `json:"check_date"`
	DishonorDate    *string             `json:"dishonor_date"`
	LegalNoticeDate *string             `json:"legal_notice_date"`
	NoticeStatus    string              `json:"notice_status"`
	CaseFiledDate   *string             `json:"case_filed_date"`
	ClientID        string              `json:"client_id,omitempty"`
	CaseID          string              `json:"case_id,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Record is an unstored cheque submitted for evaluation.
type Record struct {
	ID              string           `json:"id"`
	BankName        string           `json:"bank_name"`
	CheckAmount     *decimal.Decimal `json:"check_amount,omitempty"`
	CheckDate       string           `json:"check_date"`
	DishonorDate    *string          `json:"dishonor_date,omitempty"`
	LegalNoticeDate *string          `json:"legal_notice_date,omitempty"`
	NoticeStatus    string           `json:"notice_status"`
	CaseFiledDate   *string          `json:"case_filed_date,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
}

// StageProgress is the state of one legal stage.
type StageProgress struct {
	Stage         string  `json:"stage"`
	State         string  `json:"state"`
	Progress      int     `json:"progress"`
	DaysRemaining *int    `json:"days_remaining,omitempty"`
	DaysOverdue   *int    `json:"days_overdue,omitempty"`
	StartDate     *string `json:"start_date,omitempty"`
	DueDate       *string `json:"due_date,omitempty"`
	CompletedOn   *string `json:"completed_on,omitempty"`
	CompletedLate bool    `json:"completed_late,omitempty"`
}

// Evaluation holds the three stages of a cheque in order.
type Evaluation struct {
	ChequeID    string          `json:"check_id"`
	EvaluatedOn string          `json:"evaluated_on"`
	Stages      []StageProgress `json:"stages"`
}

type Alert struct {
	ChequeID      string `json:"check_id"`
	BankName      string `json:"bank_name"`
	Stage         string `json:"stage"`
	Severity      string `json:"severity"`
	Message       string `json:"message"`
	IsOverdue     bool   `json:"is_overdue"`
	DaysRemaining *int   `json:"days_remaining,omitempty"`
	DaysOverdue   *int   `json:"days_overdue,omitempty"`
	DueDate       string `json:"due_date"`
}

// ChequeStages is the stage view of one cheque.
type ChequeStages struct {
	Cheque     *Cheque    `json:"cheque"`
	Evaluation Evaluation `json:"evaluation"`
	Alerts     []Alert    `json:"alerts"`
}

// AlertList counts every matching alert. Truncated reports that Alerts was
// cut to the requested limit.
type AlertList struct {
	PassID    string    `json:"pass_id"`
	Now       time.Time `json:"now"`
	Total     int       `json:"total"`
	Critical  int       `json:"critical"`
	Warning   int       `json:"warning"`
	Truncated bool      `json:"truncated"`
	Alerts    []Alert   `json:"alerts"`
}

// AlertQuery narrows an alert listing. Zero fields do not filter.
type AlertQuery struct {
	Stage    string
	Severity string
	ChequeID string
	Limit    int
}

func (q AlertQuery) values() url.Values {
	v := url.Values{}
	if q.Stage != "" {
		v.Set("stage", q.Stage)
	}
	if q.Severity != "" {
		v.Set("severity", q.Severity)
	}
	if q.ChequeID != "" {
		v.Set("check_id", q.ChequeID)
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

type BankStat struct {
	Bank           string          `json:"bank"`
	Count          int             `json:"count"`
	Amount         decimal.Decimal `json:"amount"`
	CompletedCount int             `json:"completedCount"`
	Rate           float64         `json:"rate"`
}

type StatusStat struct {
	Status  string          `json:"status"`
	Count   int             `json:"count"`
	Amount  decimal.Decimal `json:"amount"`
	Percent float64         `json:"percent"`
}

type MonthStat struct {
	Month  string          `json:"month"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type DeadlineAnalysis struct {
	DishonorOverdue  int `json:"dishonorOverdue"`
	DishonorUpcoming int `json:"dishonorUpcoming"`
	NoticeOverdue    int `json:"noticeOverdue"`
	NoticeUpcoming   int `json:"noticeUpcoming"`
	FilingOverdue    int `json:"filingOverdue"`
	FilingUpcoming   int `json:"filingUpcoming"`
}

// Report is the portfolio summary.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	TotalCount  int              `json:"total_count"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	ByBank      []BankStat       `json:"by_bank"`
	ByStatus    []StatusStat     `json:"by_status"`
	Monthly     []MonthStat      `json:"monthly"`
	Deadlines   DeadlineAnalysis `json:"deadlines"`
}

// ExportResult describes an uploaded export.
type ExportResult struct {
	Kind        string    `json:"kind"`
	Format      string    `json:"format"`
	Key         string    `json:"key"`
	URL         string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Stages returns the stage view of a stored cheque.
func (c *Client) Stages(ctx context.Context, chequeID string) (*ChequeStages, error) {
	if chequeID == "" {
		return nil, errors.InvalidParam("cheque id is required")
	}
	var out ChequeStages
	if err := c.getJSON(ctx, http.MethodGet, "/cheques/"+url.PathEscape(chequeID)+"/stages", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Evaluate computes stages for rec without storing it.
func (c *Client) Evaluate(ctx context.Context, rec Record) (*ChequeStages, error) {
	var out ChequeStages
	if err := c.getJSON(ctx, http.MethodPost, "/stages/evaluate", nil, rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Alerts(ctx context.Context, q AlertQuery) (*AlertList, error) {
	var out AlertList
	if err := c.getJSON(ctx, http.MethodGet, "/alerts", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Report(ctx context.Context) (*Report, error) {
	var out Report
	if err := c.getJSON(ctx, http.MethodGet, "/reports/summary", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ChequesCSV downloads every cheque as CSV.
func (c *Client) ChequesCSV(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/exports/cheques.csv", nil, nil)
}

// ReportXLSX downloads the report workbook.
func (c *Client) ReportXLSX(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/exports/report.xlsx", nil, nil)
}

// CreateExport renders kind in format on the server, uploads it and returns
// a download link.
func (c *Client) CreateExport(ctx context.Context, kind, format string) (*ExportResult, error) {
	req := struct {
		Kind   string `json:"kind"`
		Format string `json:"format"`
	}{Kind: kind, Format: format}
	var out ExportResult
	if err := c.getJSON(ctx, http.MethodPost, "/exports", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
