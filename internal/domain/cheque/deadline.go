package cheque

import (
	"math"
	"time"

	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// StageProgress is the derived state of one stage of one cheque.
type StageProgress struct {
	Stage Stage `json:"stage"`
	State State `json:"state"`
	// Progress is the share of the window consumed, always within [0,100].
	Progress int `json:"progress"`
	// DaysRemaining is set only while the stage is pending.
	DaysRemaining *int `json:"days_remaining,omitempty"`
	// DaysOverdue is set only when the stage is overdue.
	DaysOverdue *int  `json:"days_overdue,omitempty"`
	StartDate   *Date `json:"start_date,omitempty"`
	DueDate     *Date `json:"due_date,omitempty"`
	CompletedOn *Date `json:"completed_on,omitempty"`
	// CompletedLate marks a completion recorded after the due date.
	CompletedLate bool `json:"completed_late,omitempty"`
}

// Evaluation holds the progress of every stage of one cheque, in pipeline
// order.
type Evaluation struct {
	ChequeID    string                     `json:"check_id"`
	EvaluatedOn Date                       `json:"evaluated_on"`
	Stages      [stageCount]StageProgress `json:"stages"`
}

// Stage returns the progress of s.
func (e Evaluation) Stage(s Stage) StageProgress {
	if !s.IsValid() {
		return StageProgress{}
	}
	return e.Stages[s]
}

// ─────────────────────────────────────────────────────────────────────────────
// Engine
// ─────────────────────────────────────────────────────────────────────────────

// Engine derives stage progress from milestone dates. It holds no state other
// than the location used to turn "now" into a calendar day, so one Engine can
// serve concurrent passes.
type Engine struct {
	loc *time.Location
}

// NewEngine returns an Engine that reads "today" in loc. A nil loc means UTC.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{loc: loc}
}

// Location returns the location the engine computes calendar days in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Today returns the calendar day of now in the engine location.
func (e *Engine) Today(now time.Time) Date {
	return DateOf(now.In(e.loc))
}

// Evaluate derives all three stages of c as of now.
func (e *Engine) Evaluate(c *Cheque, now time.Time) (Evaluation, error) {
	if c == nil {
		return Evaluation{}, errors.New(errors.ErrCodeChequeMissingField, "cheque is nil")
	}
	if err := c.Validate(); err != nil {
		return Evaluation{}, err
	}

	today := e.Today(now)
	ev := Evaluation{ChequeID: c.ID, EvaluatedOn: today}
	for _, s := range Stages() {
		p, err := EvaluateStage(c, s, today)
		if err != nil {
			return Evaluation{}, err
		}
		ev.Stages[s] = p
	}
	return ev, nil
}

// EvaluateStage derives one stage of c as of the calendar day today.
func EvaluateStage(c *Cheque, s Stage, today Date) (StageProgress, error) {
	start, done, err := s.Milestones(c)
	if err != nil {
		return StageProgress{}, err
	}

	p := StageProgress{Stage: s}
	if start == nil {
		p.State = StateWaiting
		return p, nil
	}

	window := s.WindowDays()
	due := start.AddDays(window)
	p.StartDate = start
	p.DueDate = &due

	elapsed := today.DaysSince(*start)

	switch {
	case done != nil:
		p.State = StateCompleted
		p.Progress = 100
		p.CompletedOn = done
		p.CompletedLate = done.After(due)
	case elapsed > window:
		overdue := elapsed - window
		p.State = StateOverdue
		p.Progress = 100
		p.DaysOverdue = &overdue
	default:
		remaining := window - elapsed
		p.State = StatePending
		p.Progress = progressPercent(elapsed, window)
		p.DaysRemaining = &remaining
	}
	return p, nil
}

// progressPercent is round(elapsed/window*100) clamped to [0,100]. A future
// prerequisite date gives a negative elapsed count, hence the clamp.
func progressPercent(elapsed, window int) int {
	if window <= 0 {
		return 100
	}
	pct := int(math.Round(float64(elapsed) / float64(window) * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ─────────────────────────────────────────────────────────────────────────────
// Urgency
// ─────────────────────────────────────────────────────────────────────────────

// Urgency buckets a stage for alerting and deadline analysis.
type Urgency int

const (
	// UrgencyNone covers waiting, completed and comfortably pending stages.
	UrgencyNone Urgency = iota
	// UrgencyUpcoming is a pending stage within its upcoming threshold.
	UrgencyUpcoming
	// UrgencyOverdue is a stage past its window.
	UrgencyOverdue
)

func (u Urgency) String() string {
	switch u {
	case UrgencyUpcoming:
		return "upcoming"
	case UrgencyOverdue:
		return "overdue"
	default:
		return "none"
	}
}

// Classify is the single rule the alert generator and the report aggregator
// share to decide whether a stage is overdue or upcoming.
func Classify(p StageProgress) Urgency {
	switch p.State {
	case StateOverdue:
		return UrgencyOverdue
	case StatePending:
		if p.DaysRemaining != nil && *p.DaysRemaining <= p.Stage.UpcomingThresholdDays() {
			return UrgencyUpcoming
		}
	}
	return UrgencyNone
}
