package cheque

import (
	"strings"

	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// Stage is one step of the legal process. The set is closed: StageDishonor,
// StageNotice and StageFiling. Switches over Stage list all three and treat
// anything else as ErrCodeChequeUnknownStage.
type Stage int

const (
	// StageDishonor runs from the cheque date until the bank dishonors it.
	StageDishonor Stage = iota
	// StageNotice runs from dishonor until the legal notice is sent.
	StageNotice
	// StageFiling runs from the legal notice until the case is filed.
	StageFiling

	stageCount = 3
)

// Statutory windows, in days, from the prerequisite milestone.
const (
	DishonorWindowDays = 180
	NoticeWindowDays   = 30
	FilingWindowDays   = 60
)

// Days remaining at or below which a pending stage counts as upcoming.
const (
	DishonorUpcomingDays = 30
	NoticeUpcomingDays   = 10
	FilingUpcomingDays   = 15
)

type stageRule struct {
	name     string
	label    string
	window   int
	upcoming int
}

var stageRules = [stageCount]stageRule{
	StageDishonor: {name: "dishonor", label: "Dishonor", window: DishonorWindowDays, upcoming: DishonorUpcomingDays},
	StageNotice:   {name: "notice", label: "Legal notice", window: NoticeWindowDays, upcoming: NoticeUpcomingDays},
	StageFiling:   {name: "filing", label: "Case filing", window: FilingWindowDays, upcoming: FilingUpcomingDays},
}

// Stages returns the stages in pipeline order.
func Stages() []Stage {
	return []Stage{StageDishonor, StageNotice, StageFiling}
}

// IsValid reports whether s is a known stage.
func (s Stage) IsValid() bool {
	return s >= StageDishonor && s < stageCount
}

func (s Stage) String() string {
	if !s.IsValid() {
		return "unknown"
	}
	return stageRules[s].name
}

// Label is the human-readable stage name used in messages.
func (s Stage) Label() string {
	if !s.IsValid() {
		return "Unknown stage"
	}
	return stageRules[s].label
}

// WindowDays is the statutory window of the stage.
func (s Stage) WindowDays() int {
	if !s.IsValid() {
		return 0
	}
	return stageRules[s].window
}

// UpcomingThresholdDays is the days-remaining threshold for an upcoming alert.
func (s Stage) UpcomingThresholdDays() int {
	if !s.IsValid() {
		return 0
	}
	return stageRules[s].upcoming
}

// Milestones returns the prerequisite date that starts the stage clock and the
// completion date that ends it.
func (s Stage) Milestones(c *Cheque) (start, done *Date, err error) {
	switch s {
	case StageDishonor:
		if c.CheckDate.IsZero() {
			return nil, c.DishonorDate, nil
		}
		checkDate := c.CheckDate
		return &checkDate, c.DishonorDate, nil
	case StageNotice:
		return c.DishonorDate, c.LegalNoticeDate, nil
	case StageFiling:
		return c.LegalNoticeDate, c.CaseFiledDate, nil
	default:
		return nil, nil, unknownStage(s)
	}
}

// ParseStage accepts the stage name in any case.
func ParseStage(v string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "dishonor":
		return StageDishonor, nil
	case "notice":
		return StageNotice, nil
	case "filing":
		return StageFiling, nil
	default:
		return 0, errors.New(errors.ErrCodeChequeUnknownStage, "unknown stage").WithDetail("value=" + v)
	}
}

// MarshalText encodes the stage name.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, unknownStage(s)
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a stage name.
func (s *Stage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func unknownStage(s Stage) error {
	return errors.Newf(errors.ErrCodeChequeUnknownStage, "unknown stage %d", int(s))
}

// ─────────────────────────────────────────────────────────────────────────────
// State
// ─────────────────────────────────────────────────────────────────────────────

// State is the derived condition of one stage.
type State string

const (
	// StateWaiting means the prerequisite milestone has not been reached.
	StateWaiting State = "waiting"
	// StatePending means the stage clock is running within its window.
	StatePending State = "pending"
	// StateCompleted means the completion milestone is recorded.
	StateCompleted State = "completed"
	// StateOverdue means the window elapsed without completion.
	StateOverdue State = "overdue"
)
