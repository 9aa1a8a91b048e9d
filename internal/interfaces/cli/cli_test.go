package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// As of 2024-09-15: c-1 is 69 days past its dishonor deadline, c-2 is 149
// days past its notice deadline and c-3 has 9 days left to send notice.
const portfolio = `[
  {"id": "c-1", "bank_name": "HBL", "check_date": "2024-01-10", "notice_status": "pending",
   "created_at": "2024-01-11T09:00:00Z"},
  {"id": "c-2", "bank_name": "MCB", "check_amount": "2500.75", "check_date": "2024-03-05",
   "dishonor_date": "2024-03-20", "notice_status": "pending", "created_at": "2024-03-06T09:00:00Z"},
  {"id": "c-3", "bank_name": "HBL", "check_amount": "900", "check_date": "2024-08-01",
   "dishonor_date": "2024-08-25", "notice_status": "pending", "created_at": "2024-08-02T09:00:00Z"}
]`

const asOf = "2024-09-15"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// run executes the CLI against the fixture portfolio.
func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	input := writeFile(t, "portfolio.json", portfolio)
	full := append([]string{"--input", input, "--as-of", asOf, "--no-color"}, args...)
	var out, errOut bytes.Buffer
	err = Run(context.Background(), full, &out, &errOut)
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "chequeguard", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"alerts", "stages", "report", "export", "migrate", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "log-level", "output", "input", "as-of", "verbose", "no-color", "timeout"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
	assert.Equal(t, OutputTable, cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestAlerts_Table(t *testing.T) {
	out, _, err := run(t, "alerts")
	require.NoError(t, err)

	assert.Contains(t, out, "3 alerts as of 2024-09-15 (2 critical, 1 warning)")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7, out)
	assert.True(t, strings.HasPrefix(lines[2], "CHEQUE"))
	assert.True(t, strings.HasPrefix(lines[4], "c-2"))
	assert.Contains(t, lines[4], "149 overdue")
	assert.True(t, strings.HasPrefix(lines[5], "c-1"))
	assert.Contains(t, lines[5], "69 overdue")
	assert.Contains(t, lines[5], "2024-07-08")
	assert.True(t, strings.HasPrefix(lines[6], "c-3"))
	assert.Contains(t, lines[6], "9 left")
}

func TestAlerts_JSON(t *testing.T) {
	out, _, err := run(t, "-o", "json", "alerts")
	require.NoError(t, err)

	var list tracking.AlertList
	require.NoError(t, json.Unmarshal([]byte(out), &list), out)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, 2, list.Critical)
	assert.Equal(t, 1, list.Warning)

	ids := make([]string, len(list.Alerts))
	for i, a := range list.Alerts {
		ids[i] = a.ChequeID
	}
	assert.Equal(t, []string{"c-2", "c-1", "c-3"}, ids)
	assert.Equal(t, cheque.StageNotice, list.Alerts[2].Stage)
	require.NotNil(t, list.Alerts[2].DaysRemaining)
	assert.Equal(t, 9, *list.Alerts[2].DaysRemaining)
}

func TestAlerts_Filters(t *testing.T) {
	tests := []struct {
		name string
		args []string
		ids  []string
	}{
		{"severity", []string{"--severity", "warning"}, []string{"c-3"}},
		{"stage", []string{"--stage", "dishonor"}, []string{"c-1"}},
		{"cheque", []string{"--cheque", "c-2"}, []string{"c-2"}},
		{"limit", []string{"--limit", "1"}, []string{"c-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"-o", "json", "alerts"}, tt.args...)...)
			require.NoError(t, err)

			var list tracking.AlertList
			require.NoError(t, json.Unmarshal([]byte(out), &list))
			ids := []string{}
			for _, a := range list.Alerts {
				ids = append(ids, a.ChequeID)
			}
			assert.Equal(t, tt.ids, ids)
		})
	}
}

func TestAlerts_LimitKeepsTotals(t *testing.T) {
	out, _, err := run(t, "alerts", "--limit", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "3 alerts as of 2024-09-15 (2 critical, 1 warning)")
	assert.Contains(t, out, "showing 1 of 3")
}

func TestAlerts_InvalidFlags(t *testing.T) {
	_, stderr, err := run(t, "alerts", "--stage", "appeal")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeUnknownStage))
	assert.Contains(t, stderr, "Error:")

	_, _, err = run(t, "alerts", "--severity", "minor")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, _, err = run(t, "alerts", "--limit", "-2")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestStages_StoredCheque(t *testing.T) {
	out, _, err := run(t, "stages", "c-2")
	require.NoError(t, err)

	assert.Contains(t, out, "c-2  MCB  amount 2500.75")
	assert.Contains(t, out, "Evaluated on 2024-09-15")
	assert.Contains(t, out, "[critical] Legal notice deadline overdue by 149 days")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Case filing") {
			assert.Contains(t, line, "waiting")
		}
	}
}

func TestStages_JSON(t *testing.T) {
	out, _, err := run(t, "-o", "json", "stages", "c-3")
	require.NoError(t, err)

	var view tracking.ChequeStages
	require.NoError(t, json.Unmarshal([]byte(out), &view), out)
	assert.Equal(t, "c-3", view.Evaluation.ChequeID)
	assert.Equal(t, cheque.StateCompleted, view.Evaluation.Stages[cheque.StageDishonor].State)
	notice := view.Evaluation.Stages[cheque.StageNotice]
	assert.Equal(t, cheque.StatePending, notice.State)
	assert.Equal(t, 70, notice.Progress)
	assert.Len(t, view.Alerts, 1)
}

func TestStages_NotFound(t *testing.T) {
	_, _, err := run(t, "stages", "c-404")

	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeNotFound))
}

func TestStages_Record(t *testing.T) {
	rec := writeFile(t, "record.json", `{"id": "draft", "check_date": "2024-09-01"}`)

	out, _, err := run(t, "-o", "json", "stages", "--record", rec)
	require.NoError(t, err)

	var view tracking.ChequeStages
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	dishonor := view.Evaluation.Stages[cheque.StageDishonor]
	assert.Equal(t, cheque.StatePending, dishonor.State)
	require.NotNil(t, dishonor.DaysRemaining)
	assert.Equal(t, 166, *dishonor.DaysRemaining)
	assert.Empty(t, view.Alerts)
}

func TestStages_ArgumentRules(t *testing.T) {
	rec := writeFile(t, "record.json", `{"id": "draft", "check_date": "2024-09-01"}`)

	_, _, err := run(t, "stages")
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	_, _, err = run(t, "stages", "c-1", "--record", rec)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	bad := writeFile(t, "bad.json", `{"id": "draft"`)
	_, _, err = run(t, "stages", "--record", bad)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestReport_Table(t *testing.T) {
	out, _, err := run(t, "report")
	require.NoError(t, err)

	for _, section := range []string{"Summary", "By Bank", "By Status", "Monthly", "Deadlines"} {
		assert.Contains(t, out, section)
	}
	assert.Contains(t, out, "total_amount  3400.75")
}

func TestReport_JSON(t *testing.T) {
	out, _, err := run(t, "-o", "json", "report")
	require.NoError(t, err)

	var rep report.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, 3, rep.TotalCount)
	assert.Equal(t, 1, rep.Deadlines.DishonorOverdue)
	assert.Equal(t, 1, rep.Deadlines.NoticeOverdue)
	assert.Equal(t, 1, rep.Deadlines.NoticeUpcoming)
}

func TestExport_CSVToStdout(t *testing.T) {
	out, _, err := run(t, "export", "--kind", "cheques")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(reporting.ChequeColumns, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "c-2,MCB,2500.75,2024-03-05"))
}

func TestExport_XLSXToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")

	_, stderr, err := run(t, "export", "--kind", "report", "--format", "xlsx", "--out", path)
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("PK")), "xlsx is a zip container")
	assert.Contains(t, stderr, "Wrote "+path)
}

func TestExport_Rejected(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code errors.ErrorCode
	}{
		{"unknown format", []string{"--format", "pdf"}, errors.ErrCodeReportFormatUnsupported},
		{"unknown kind", []string{"--kind", "ledger"}, errors.ErrCodeBadRequest},
		{"xlsx to stdout", []string{"--format", "xlsx"}, errors.ErrCodeBadRequest},
		{"upload and out", []string{"--upload", "--out", "x.csv"}, errors.ErrCodeBadRequest},
		{"storage disabled", []string{"--upload"}, errors.ErrCodeFeatureDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, append([]string{"export"}, tt.args...)...)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code), err.Error())
		})
	}
}

func TestMigrateDown_InvalidSteps(t *testing.T) {
	_, _, err := run(t, "migrate", "down", "zero")

	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "chequeguard "+Version))

	out, _, err = run(t, "-o", "json", "version")
	require.NoError(t, err)
	var info BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.GoVersion)
}

func TestUnsupportedOutputFormat(t *testing.T) {
	_, _, err := run(t, "-o", "yaml", "alerts")

	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestMissingSnapshotFile(t *testing.T) {
	var out, errOut bytes.Buffer
	err := Run(context.Background(), []string{"--input", filepath.Join(t.TempDir(), "none.json"), "alerts"}, &out, &errOut)

	assert.True(t, errors.IsCode(err, errors.ErrCodeChequeSnapshotUnreadable))
}

func TestFormatTable(t *testing.T) {
	color.NoColor = true
	got := FormatTable([]string{"ID", "BANK"}, [][]string{{"c-10", "HBL"}, {"c-2"}})

	want := "ID    BANK\n" +
		"----  ----\n" +
		"c-10  HBL\n" +
		"c-2   \n"
	assert.Equal(t, want, got)
	assert.Empty(t, FormatTable(nil, nil))
}
