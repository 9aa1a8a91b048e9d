// Package report reduces a cheque portfolio to the statistics behind the
// reports screen: per bank, per notice status, per month and per deadline
// bucket. Aggregation is pure; rendering lives in the application layer.
package report

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// MonthlyBuckets is the number of trailing months in the monthly series.
const MonthlyBuckets = 6

// UnknownBank labels cheques recorded without a bank name.
const UnknownBank = "Unknown"

// BankStat aggregates the cheques of one bank.
type BankStat struct {
	Bank           string          `json:"bank"`
	Count          int             `json:"count"`
	Amount         decimal.Decimal `json:"amount"`
	CompletedCount int             `json:"completedCount"`
	// Rate is CompletedCount/Count, rounded to four places.
	Rate float64 `json:"rate"`
}

// StatusStat aggregates the cheques sharing a notice status.
type StatusStat struct {
	Status cheque.NoticeStatus `json:"status"`
	Count  int                 `json:"count"`
	Amount decimal.Decimal     `json:"amount"`
	// Percent is the share of all cheques, rounded to two places.
	Percent float64 `json:"percent"`
}

// MonthStat aggregates cheques created in one calendar month.
type MonthStat struct {
	Month  string          `json:"month"` // YYYY-MM
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// DeadlineAnalysis counts overdue and upcoming stages across the portfolio.
type DeadlineAnalysis struct {
	DishonorOverdue  int `json:"dishonorOverdue"`
	DishonorUpcoming int `json:"dishonorUpcoming"`
	NoticeOverdue    int `json:"noticeOverdue"`
	NoticeUpcoming   int `json:"noticeUpcoming"`
	FilingOverdue    int `json:"filingOverdue"`
	FilingUpcoming   int `json:"filingUpcoming"`
}

// Overdue returns the overdue counter of s.
func (d DeadlineAnalysis) Overdue(s cheque.Stage) int {
	switch s {
	case cheque.StageDishonor:
		return d.DishonorOverdue
	case cheque.StageNotice:
		return d.NoticeOverdue
	case cheque.StageFiling:
		return d.FilingOverdue
	default:
		return 0
	}
}

// Upcoming returns the upcoming counter of s.
func (d DeadlineAnalysis) Upcoming(s cheque.Stage) int {
	switch s {
	case cheque.StageDishonor:
		return d.DishonorUpcoming
	case cheque.StageNotice:
		return d.NoticeUpcoming
	case cheque.StageFiling:
		return d.FilingUpcoming
	default:
		return 0
	}
}

func (d *DeadlineAnalysis) add(s cheque.Stage, u cheque.Urgency) error {
	if u == cheque.UrgencyNone {
		return nil
	}
	overdue := u == cheque.UrgencyOverdue
	switch s {
	case cheque.StageDishonor:
		if overdue {
			d.DishonorOverdue++
		} else {
			d.DishonorUpcoming++
		}
	case cheque.StageNotice:
		if overdue {
			d.NoticeOverdue++
		} else {
			d.NoticeUpcoming++
		}
	case cheque.StageFiling:
		if overdue {
			d.FilingOverdue++
		} else {
			d.FilingUpcoming++
		}
	default:
		return errors.Newf(errors.ErrCodeChequeUnknownStage, "unknown stage %d", int(s))
	}
	return nil
}

// Report is the full set of portfolio statistics for one pass.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	TotalCount  int              `json:"total_count"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
	ByBank      []BankStat       `json:"by_bank"`
	ByStatus    []StatusStat     `json:"by_status"`
	Monthly     []MonthStat      `json:"monthly"`
	Deadlines   DeadlineAnalysis `json:"deadlines"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Aggregator
// ─────────────────────────────────────────────────────────────────────────────

// Aggregator computes reports. It classifies stages with the same engine and
// rule the alert generator uses.
type Aggregator struct {
	engine *cheque.Engine
}

// NewAggregator returns an Aggregator backed by engine.
func NewAggregator(engine *cheque.Engine) *Aggregator {
	if engine == nil {
		engine = cheque.NewEngine(nil)
	}
	return &Aggregator{engine: engine}
}

// Aggregate builds the report for cheques as of now.
func (a *Aggregator) Aggregate(cheques []*cheque.Cheque, now time.Time) (*Report, error) {
	deadlines, err := a.Deadlines(cheques, now)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, c := range cheques {
		total = total.Add(c.AmountOrZero())
	}

	byStatus, err := ByStatus(cheques)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: now.In(a.engine.Location()),
		TotalCount:  len(cheques),
		TotalAmount: total,
		ByBank:      ByBank(cheques),
		ByStatus:    byStatus,
		Monthly:     Monthly(cheques, now, a.engine.Location()),
		Deadlines:   deadlines,
	}, nil
}

// Deadlines counts overdue and upcoming stages. A cheque that cannot be
// classified aborts the reduction rather than being skipped.
func (a *Aggregator) Deadlines(cheques []*cheque.Cheque, now time.Time) (DeadlineAnalysis, error) {
	var d DeadlineAnalysis
	for _, c := range cheques {
		ev, err := a.engine.Evaluate(c, now)
		if err != nil {
			id := "<nil>"
			if c != nil {
				id = c.ID
			}
			return DeadlineAnalysis{}, errors.Wrap(err, errors.ErrCodeClassificationFailed, "cannot classify cheque").
				WithDetail("cheque_id=" + id)
		}
		for _, s := range cheque.Stages() {
			if err := d.add(s, cheque.Classify(ev.Stage(s))); err != nil {
				return DeadlineAnalysis{}, err
			}
		}
	}
	return d, nil
}

// ByBank groups cheques by trimmed bank name, largest count first, then by
// name.
func ByBank(cheques []*cheque.Cheque) []BankStat {
	index := make(map[string]int)
	stats := make([]BankStat, 0)
	for _, c := range cheques {
		bank := strings.TrimSpace(c.BankName)
		if bank == "" {
			bank = UnknownBank
		}
		i, ok := index[bank]
		if !ok {
			i = len(stats)
			index[bank] = i
			stats = append(stats, BankStat{Bank: bank, Amount: decimal.Zero})
		}
		stats[i].Count++
		stats[i].Amount = stats[i].Amount.Add(c.AmountOrZero())
		if c.IsCaseFiled() {
			stats[i].CompletedCount++
		}
	}
	for i := range stats {
		stats[i].Rate = round(float64(stats[i].CompletedCount)/float64(stats[i].Count), 4)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Count != stats[j].Count {
			return stats[i].Count > stats[j].Count
		}
		return stats[i].Bank < stats[j].Bank
	})
	return stats
}

// ByStatus returns one row per notice status, in enum order, zero-filled.
func ByStatus(cheques []*cheque.Cheque) ([]StatusStat, error) {
	statuses := cheque.NoticeStatuses()
	stats := make([]StatusStat, len(statuses))
	index := make(map[cheque.NoticeStatus]int, len(statuses))
	for i, s := range statuses {
		stats[i] = StatusStat{Status: s, Amount: decimal.Zero}
		index[s] = i
	}

	for _, c := range cheques {
		i, ok := index[c.NoticeStatus]
		if !ok {
			return nil, errors.New(errors.ErrCodeChequeInvalidStatus, "unknown notice status").
				WithDetail("cheque_id=" + c.ID + " value=" + string(c.NoticeStatus))
		}
		stats[i].Count++
		stats[i].Amount = stats[i].Amount.Add(c.AmountOrZero())
	}

	if n := len(cheques); n > 0 {
		for i := range stats {
			stats[i].Percent = round(float64(stats[i].Count)/float64(n)*100, 2)
		}
	}
	return stats, nil
}

// Monthly returns exactly MonthlyBuckets entries, oldest first, ending with
// the month of now in loc. Cheques created outside the range are ignored.
func Monthly(cheques []*cheque.Cheque, now time.Time, loc *time.Location) []MonthStat {
	if loc == nil {
		loc = time.UTC
	}
	y, m, _ := now.In(loc).Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, loc).AddDate(0, -(MonthlyBuckets - 1), 0)

	stats := make([]MonthStat, MonthlyBuckets)
	index := make(map[string]int, MonthlyBuckets)
	for i := 0; i < MonthlyBuckets; i++ {
		key := first.AddDate(0, i, 0).Format("2006-01")
		stats[i] = MonthStat{Month: key, Amount: decimal.Zero}
		index[key] = i
	}

	for _, c := range cheques {
		if c.CreatedAt.IsZero() {
			continue
		}
		i, ok := index[c.CreatedAt.In(loc).Format("2006-01")]
		if !ok {
			continue
		}
		stats[i].Count++
		stats[i].Amount = stats[i].Amount.Add(c.AmountOrZero())
	}
	return stats
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
