package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

var now = time.Date(2024, 9, 15, 8, 0, 0, 0, time.UTC)

func daysAgo(n int) cheque.Date { return cheque.DateOf(now).AddDays(-n) }

func ptr(d cheque.Date) *cheque.Date { return &d }

func mk(id, bank, amount string, checkAgo int, status cheque.NoticeStatus, created time.Time) *cheque.Cheque {
	c := &cheque.Cheque{
		ID:           id,
		BankName:     bank,
		CheckDate:    daysAgo(checkAgo),
		NoticeStatus: status,
		CreatedAt:    created,
	}
	if amount != "" {
		c.Amount = decimal.NewNullDecimal(decimal.RequireFromString(amount))
	}
	return c
}

func portfolio() []*cheque.Cheque {
	filed := mk("c-1", "SBI", "1000", 150, cheque.NoticeStatusDelivered, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	filed.DishonorDate = ptr(daysAgo(140))
	filed.LegalNoticeDate = ptr(daysAgo(120))
	filed.CaseFiledDate = ptr(daysAgo(100))

	noticeSoon := mk("c-2", " SBI ", "250.50", 100, cheque.NoticeStatusPending, time.Date(2024, 7, 20, 0, 0, 0, 0, time.UTC))
	noticeSoon.DishonorDate = ptr(daysAgo(25))

	overdue := mk("c-3", "HDFC", "", 200, cheque.NoticeStatusPending, time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	upcoming := mk("c-4", "", "99.50", 160, cheque.NoticeStatusADReceived, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))

	filingLate := mk("c-5", "HDFC", "10", 300, cheque.NoticeStatusReturnedUnaccepted, time.Date(2024, 9, 14, 23, 0, 0, 0, time.UTC))
	filingLate.DishonorDate = ptr(daysAgo(280))
	filingLate.LegalNoticeDate = ptr(daysAgo(70))

	return []*cheque.Cheque{filed, noticeSoon, overdue, upcoming, filingLate}
}

func TestAggregate(t *testing.T) {
	r, err := NewAggregator(nil).Aggregate(portfolio(), now)
	require.NoError(t, err)

	assert.Equal(t, 5, r.TotalCount)
	assert.Equal(t, "1360", r.TotalAmount.String())
	assert.Equal(t, now, r.GeneratedAt)

	require.Len(t, r.ByBank, 3)
	assert.Equal(t, "HDFC", r.ByBank[0].Bank)
	assert.Equal(t, 2, r.ByBank[0].Count)
	assert.Equal(t, "10", r.ByBank[0].Amount.String())
	assert.Equal(t, "SBI", r.ByBank[1].Bank)
	assert.Equal(t, 2, r.ByBank[1].Count)
	assert.Equal(t, "1250.5", r.ByBank[1].Amount.String())
	assert.Equal(t, 1, r.ByBank[1].CompletedCount)
	assert.Equal(t, 0.5, r.ByBank[1].Rate)
	assert.Equal(t, UnknownBank, r.ByBank[2].Bank)

	require.Len(t, r.ByStatus, 5)
	assert.Equal(t, cheque.NoticeStatusPending, r.ByStatus[0].Status)
	assert.Equal(t, 2, r.ByStatus[0].Count)
	assert.Equal(t, 40.0, r.ByStatus[0].Percent)
	assert.Equal(t, "250.5", r.ByStatus[0].Amount.String())
	assert.Equal(t, cheque.NoticeStatusRecipientNotFound, r.ByStatus[2].Status)
	assert.Equal(t, 0, r.ByStatus[2].Count)
	assert.Equal(t, 0.0, r.ByStatus[2].Percent)

	assert.Equal(t, DeadlineAnalysis{
		DishonorOverdue:  1,
		DishonorUpcoming: 1,
		NoticeOverdue:    0,
		NoticeUpcoming:   1,
		FilingOverdue:    1,
		FilingUpcoming:   0,
	}, r.Deadlines)
}

func TestAggregate_DeadlinesMatchAlerts(t *testing.T) {
	engine := cheque.NewEngine(nil)
	cheques := portfolio()

	r, err := NewAggregator(engine).Aggregate(cheques, now)
	require.NoError(t, err)
	alerts, err := alert.NewGenerator(engine).Generate(cheques, now)
	require.NoError(t, err)

	for _, s := range cheque.Stages() {
		st := s
		crit := alert.Apply(alerts, alert.Filter{Stage: &st, Severity: alert.SeverityCritical})
		warn := alert.Apply(alerts, alert.Filter{Stage: &st, Severity: alert.SeverityWarning})
		assert.Equal(t, len(crit), r.Deadlines.Overdue(s), s.String())
		assert.Equal(t, len(warn), r.Deadlines.Upcoming(s), s.String())
	}
}

func TestMonthly_AlwaysSixBuckets(t *testing.T) {
	empty := Monthly(nil, now, time.UTC)
	require.Len(t, empty, MonthlyBuckets)
	assert.Equal(t, "2024-04", empty[0].Month)
	assert.Equal(t, "2024-09", empty[5].Month)
	for _, m := range empty {
		assert.Zero(t, m.Count)
		assert.True(t, m.Amount.IsZero())
	}

	filled := Monthly(portfolio(), now, time.UTC)
	require.Len(t, filled, MonthlyBuckets)
	counts := make(map[string]int)
	for _, m := range filled {
		counts[m.Month] = m.Count
	}
	assert.Equal(t, map[string]int{
		"2024-04": 1, "2024-05": 0, "2024-06": 0, "2024-07": 1, "2024-08": 0, "2024-09": 2,
	}, counts)
}

func TestMonthly_YearRollover(t *testing.T) {
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	m := Monthly(nil, feb, nil)
	assert.Equal(t, "2024-09", m[0].Month)
	assert.Equal(t, "2025-02", m[5].Month)
}

func TestMonthly_UsesLocation(t *testing.T) {
	ist := time.FixedZone("IST", 19800)
	c := mk("late", "X", "1", 1, cheque.NoticeStatusPending, time.Date(2024, 8, 31, 20, 0, 0, 0, time.UTC))

	utc := Monthly([]*cheque.Cheque{c}, now, time.UTC)
	local := Monthly([]*cheque.Cheque{c}, now, ist)
	assert.Equal(t, 1, utc[4].Count)
	assert.Equal(t, 1, local[5].Count)
}

func TestByBank_PartitionsPortfolio(t *testing.T) {
	cheques := portfolio()
	sum := 0
	for _, b := range ByBank(cheques) {
		sum += b.Count
	}
	assert.Equal(t, len(cheques), sum)
	assert.Empty(t, ByBank(nil))
}

func TestByStatus_RejectsUnknownStatus(t *testing.T) {
	c := mk("odd", "X", "", 1, cheque.NoticeStatus("lost"), now)
	_, err := ByStatus([]*cheque.Cheque{c})
	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeInvalidStatus))
}

func TestAggregate_SurfacesClassificationFailure(t *testing.T) {
	bad := &cheque.Cheque{ID: "nodate", NoticeStatus: cheque.NoticeStatusPending}
	r, err := NewAggregator(nil).Aggregate(append(portfolio(), bad), now)
	assert.Nil(t, r)
	assert.True(t, errors.IsCode(err, errors.ErrCodeClassificationFailed))
}

func TestAggregate_EmptyPortfolio(t *testing.T) {
	r, err := NewAggregator(nil).Aggregate(nil, now)
	require.NoError(t, err)
	assert.Zero(t, r.TotalCount)
	assert.Empty(t, r.ByBank)
	assert.Len(t, r.ByStatus, 5)
	assert.Len(t, r.Monthly, MonthlyBuckets)
	assert.Equal(t, DeadlineAnalysis{}, r.Deadlines)
}

func TestAggregate_Idempotent(t *testing.T) {
	agg := NewAggregator(cheque.NewEngine(time.FixedZone("IST", 19800)))

	first, err := agg.Aggregate(portfolio(), now)
	require.NoError(t, err)
	second, err := agg.Aggregate(portfolio(), now)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
