// Package cheque models dishonored cheques moving through the statutory
// legal process (dishonor, legal notice, case filing) and derives the state
// of each stage from the recorded milestone dates.
package cheque

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// NoticeStatus
// ─────────────────────────────────────────────────────────────────────────────

// NoticeStatus is the delivery outcome of the legal notice.
type NoticeStatus string

const (
	// NoticeStatusPending means no delivery outcome has been recorded.
	NoticeStatusPending NoticeStatus = "pending"
	// NoticeStatusADReceived means the acknowledgment of delivery came back.
	NoticeStatusADReceived NoticeStatus = "ad_received"
	// NoticeStatusRecipientNotFound means the addressee could not be located.
	NoticeStatusRecipientNotFound NoticeStatus = "recipient_not_found"
	// NoticeStatusReturnedUnaccepted means the addressee refused the notice.
	NoticeStatusReturnedUnaccepted NoticeStatus = "returned_unaccepted"
	// NoticeStatusDelivered means the notice was delivered.
	NoticeStatusDelivered NoticeStatus = "delivered"
)

// NoticeStatuses lists every status in display order.
func NoticeStatuses() []NoticeStatus {
	return []NoticeStatus{
		NoticeStatusPending,
		NoticeStatusADReceived,
		NoticeStatusRecipientNotFound,
		NoticeStatusReturnedUnaccepted,
		NoticeStatusDelivered,
	}
}

// IsValid reports whether s is one of the known statuses.
func (s NoticeStatus) IsValid() bool {
	switch s {
	case NoticeStatusPending, NoticeStatusADReceived, NoticeStatusRecipientNotFound,
		NoticeStatusReturnedUnaccepted, NoticeStatusDelivered:
		return true
	}
	return false
}

// ParseNoticeStatus parses a status literal. An empty value is the column
// default, pending.
func ParseNoticeStatus(s string) (NoticeStatus, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NoticeStatusPending, nil
	}
	st := NoticeStatus(strings.ToLower(s))
	if !st.IsValid() {
		return "", errors.New(errors.ErrCodeChequeInvalidStatus, "unknown notice status").
			WithDetail("value=" + s)
	}
	return st, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Cheque
// ─────────────────────────────────────────────────────────────────────────────

// Cheque is a dishonored cheque and the milestones recorded against it. Nil
// milestone dates mean the milestone has not happened yet.
type Cheque struct {
	ID              string              `json:"id"`
	BankName        string              `json:"bank_name"`
	Amount          decimal.NullDecimal `json:"check_amount"`
	CheckDate       Date                `json:"check_date"`
	DishonorDate    *Date               `json:"dishonor_date"`
	LegalNoticeDate *Date               `json:"legal_notice_date"`
	NoticeStatus    NoticeStatus        `json:"notice_status"`
	CaseFiledDate   *Date               `json:"case_filed_date"`
	ClientID        string              `json:"client_id,omitempty"`
	CaseID          string              `json:"case_id,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// AmountOrZero returns the face amount, or zero when it was never recorded.
func (c *Cheque) AmountOrZero() decimal.Decimal {
	if !c.Amount.Valid {
		return decimal.Zero
	}
	return c.Amount.Decimal
}

// IsCaseFiled reports whether the terminal milestone has been recorded.
func (c *Cheque) IsCaseFiled() bool {
	return c.CaseFiledDate != nil
}

// Validate checks the fields every stage computation depends on.
func (c *Cheque) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New(errors.ErrCodeChequeMissingField, "cheque id is required")
	}
	if c.CheckDate.IsZero() {
		return errors.New(errors.ErrCodeChequeMissingField, "check_date is required").
			WithDetail("cheque_id=" + c.ID)
	}
	if !c.NoticeStatus.IsValid() {
		return errors.New(errors.ErrCodeChequeInvalidStatus, "unknown notice status").
			WithDetail("cheque_id=" + c.ID + " value=" + string(c.NoticeStatus))
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Record
// ─────────────────────────────────────────────────────────────────────────────

// Record is a cheque as supplied by a record store or an import file, with
// dates still in their textual form.
type Record struct {
	ID              string           `json:"id"`
	BankName        string           `json:"bank_name"`
	CheckAmount     *decimal.Decimal `json:"check_amount,omitempty"`
	CheckDate       string           `json:"check_date"`
	DishonorDate    *string          `json:"dishonor_date,omitempty"`
	LegalNoticeDate *string          `json:"legal_notice_date,omitempty"`
	NoticeStatus    string           `json:"notice_status"`
	CaseFiledDate   *string          `json:"case_filed_date,omitempty"`
	ClientID        *string          `json:"client_id,omitempty"`
	CaseID          *string          `json:"case_id,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ToCheque converts the record, failing on the first malformed field. Blank
// optional dates are treated as absent.
func (r Record) ToCheque() (*Cheque, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, errors.New(errors.ErrCodeChequeMissingField, "cheque id is required")
	}
	if strings.TrimSpace(r.CheckDate) == "" {
		return nil, errors.New(errors.ErrCodeChequeMissingField, "check_date is required").
			WithDetail("cheque_id=" + r.ID)
	}

	c := &Cheque{
		ID:        r.ID,
		BankName:  r.BankName,
		ClientID:  deref(r.ClientID),
		CaseID:    deref(r.CaseID),
		Notes:     deref(r.Notes),
		CreatedAt: r.CreatedAt,
	}
	if r.CheckAmount != nil {
		c.Amount = decimal.NewNullDecimal(*r.CheckAmount)
	}

	var err error
	if c.CheckDate, err = parseField(r.ID, "check_date", r.CheckDate); err != nil {
		return nil, err
	}
	if c.DishonorDate, err = parseOptional(r.ID, "dishonor_date", r.DishonorDate); err != nil {
		return nil, err
	}
	if c.LegalNoticeDate, err = parseOptional(r.ID, "legal_notice_date", r.LegalNoticeDate); err != nil {
		return nil, err
	}
	if c.CaseFiledDate, err = parseOptional(r.ID, "case_filed_date", r.CaseFiledDate); err != nil {
		return nil, err
	}
	if c.NoticeStatus, err = ParseNoticeStatus(r.NoticeStatus); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeChequeInvalidStatus, "invalid cheque record").
			WithDetail("cheque_id=" + r.ID)
	}
	return c, nil
}

// ToCheques converts a batch, stopping at the first bad record.
func ToCheques(records []Record) ([]*Cheque, error) {
	out := make([]*Cheque, 0, len(records))
	for i := range records {
		c, err := records[i].ToCheque()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseField(id, field, raw string) (Date, error) {
	d, err := ParseDate(raw)
	if err != nil {
		return Date{}, errors.Wrap(err, errors.ErrCodeChequeInvalidDate, "invalid cheque record").
			WithDetail("cheque_id=" + id + " field=" + field + " value=" + raw)
	}
	return d, nil
}

func parseOptional(id, field string, raw *string) (*Date, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	d, err := parseField(id, field, *raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
