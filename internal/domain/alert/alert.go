// Package alert turns stage progress across a cheque portfolio into a
// severity-ordered list of deadline alerts. Alerts are derived on every pass
// and never stored.
package alert

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// Severity ranks alerts.
type Severity string

const (
	// SeverityCritical marks an overdue stage.
	SeverityCritical Severity = "critical"
	// SeverityWarning marks a stage within its upcoming threshold.
	SeverityWarning Severity = "warning"
)

func (s Severity) rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// ParseSeverity parses a severity literal.
func ParseSeverity(v string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(v))) {
	case SeverityCritical:
		return SeverityCritical, nil
	case SeverityWarning:
		return SeverityWarning, nil
	default:
		return "", errors.New(errors.ErrCodeBadRequest, "unknown severity").WithDetail("value=" + v)
	}
}

// Alert flags one stage of one cheque that needs attention.
type Alert struct {
	ChequeID      string       `json:"check_id"`
	BankName      string       `json:"bank_name"`
	Stage         cheque.Stage `json:"stage"`
	Severity      Severity     `json:"severity"`
	Message       string       `json:"message"`
	IsOverdue     bool         `json:"is_overdue"`
	DaysRemaining *int         `json:"days_remaining,omitempty"`
	DaysOverdue   *int         `json:"days_overdue,omitempty"`
	DueDate       cheque.Date  `json:"due_date"`
}

// daysToDue is negative for overdue alerts so that one ascending sort puts
// the most overdue first.
func (a Alert) daysToDue() int {
	switch {
	case a.DaysRemaining != nil:
		return *a.DaysRemaining
	case a.DaysOverdue != nil:
		return -*a.DaysOverdue
	default:
		return 0
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Generator
// ─────────────────────────────────────────────────────────────────────────────

// Generator runs the deadline engine over a portfolio.
type Generator struct {
	engine *cheque.Engine
}

// NewGenerator returns a Generator backed by engine.
func NewGenerator(engine *cheque.Engine) *Generator {
	if engine == nil {
		engine = cheque.NewEngine(nil)
	}
	return &Generator{engine: engine}
}

// Generate evaluates every cheque as of now and returns at most one alert
// per (cheque, stage), critical first, then by days to due, then by cheque
// id. The first cheque that cannot be classified aborts the pass.
func (g *Generator) Generate(cheques []*cheque.Cheque, now time.Time) ([]Alert, error) {
	alerts := make([]Alert, 0)
	for _, c := range cheques {
		ev, err := g.engine.Evaluate(c, now)
		if err != nil {
			return nil, classificationFailed(c, err)
		}
		alerts = append(alerts, FromEvaluation(c, ev)...)
	}
	Sort(alerts)
	return alerts, nil
}

// FromEvaluation builds the alerts for one evaluated cheque, in stage order.
func FromEvaluation(c *cheque.Cheque, ev cheque.Evaluation) []Alert {
	var out []Alert
	for _, s := range cheque.Stages() {
		p := ev.Stage(s)
		if a, ok := build(c, p); ok {
			out = append(out, a)
		}
	}
	return out
}

func build(c *cheque.Cheque, p cheque.StageProgress) (Alert, bool) {
	a := Alert{
		ChequeID: c.ID,
		BankName: c.BankName,
		Stage:    p.Stage,
	}
	if p.DueDate != nil {
		a.DueDate = *p.DueDate
	}

	switch cheque.Classify(p) {
	case cheque.UrgencyOverdue:
		a.Severity = SeverityCritical
		a.IsOverdue = true
		a.DaysOverdue = p.DaysOverdue
		a.Message = fmt.Sprintf("%s deadline overdue by %s for cheque %s%s",
			p.Stage.Label(), pluralDays(deref(p.DaysOverdue)), c.ID, bankSuffix(c.BankName))
	case cheque.UrgencyUpcoming:
		a.Severity = SeverityWarning
		a.DaysRemaining = p.DaysRemaining
		a.Message = fmt.Sprintf("%s due in %s for cheque %s%s",
			p.Stage.Label(), pluralDays(deref(p.DaysRemaining)), c.ID, bankSuffix(c.BankName))
	default:
		return Alert{}, false
	}
	return a, true
}

// Sort orders alerts in place: severity, days to due, cheque id, stage.
func Sort(alerts []Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		a, b := alerts[i], alerts[j]
		if a.Severity.rank() != b.Severity.rank() {
			return a.Severity.rank() < b.Severity.rank()
		}
		if a.daysToDue() != b.daysToDue() {
			return a.daysToDue() < b.daysToDue()
		}
		if a.ChequeID != b.ChequeID {
			return a.ChequeID < b.ChequeID
		}
		return a.Stage < b.Stage
	})
}

func classificationFailed(c *cheque.Cheque, err error) error {
	id := "<nil>"
	if c != nil {
		id = c.ID
	}
	return errors.Wrap(err, errors.ErrCodeClassificationFailed, "cannot classify cheque").
		WithDetail("cheque_id=" + id)
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func bankSuffix(bank string) string {
	bank = strings.TrimSpace(bank)
	if bank == "" {
		return ""
	}
	return " (" + bank + ")"
}

func deref(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// ─────────────────────────────────────────────────────────────────────────────
// Filtering
// ─────────────────────────────────────────────────────────────────────────────

// Filter narrows an alert list. Zero fields match everything.
type Filter struct {
	Stage    *cheque.Stage
	Severity Severity
	ChequeID string
	Limit    int
}

// Apply returns the alerts matching f, preserving order.
func Apply(alerts []Alert, f Filter) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Stage != nil && a.Stage != *f.Stage {
			continue
		}
		if f.Severity != "" && a.Severity != f.Severity {
			continue
		}
		if f.ChequeID != "" && a.ChequeID != f.ChequeID {
			continue
		}
		out = append(out, a)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Counts tallies alerts by severity.
func Counts(alerts []Alert) (critical, warning int) {
	for _, a := range alerts {
		switch a.Severity {
		case SeverityCritical:
			critical++
		case SeverityWarning:
			warning++
		}
	}
	return critical, warning
}
