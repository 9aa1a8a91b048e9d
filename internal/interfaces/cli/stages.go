package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

func newStagesCmd() *cobra.Command {
	var recordPath string
	cmd := &cobra.Command{
		Use:   "stages [cheque-id]",
		Short: "Show the three legal stages of one cheque",
		Long: "Show the dishonor, legal notice and case filing stages of a stored cheque,\n" +
			"or of an unsaved record read from a JSON file with --record.",
		Example: "  chequeguard stages CHQ-0042\n" +
			"  chequeguard stages --record draft.json -o json",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			switch {
			case len(args) == 1 && recordPath == "":
				return runStages(cmd, cliCtx, args[0])
			case len(args) == 0 && recordPath != "":
				return runEvaluateRecord(cmd, cliCtx, recordPath)
			default:
				return errors.InvalidParam("give either a cheque id or --record")
			}
		},
	}
	cmd.Flags().StringVar(&recordPath, "record", "", "evaluate the cheque record in this JSON file")
	return cmd
}

func runStages(cmd *cobra.Command, cliCtx *CLIContext, id string) error {
	trk, _, err := cliCtx.Services(cmd.Context())
	if err != nil {
		return err
	}
	view, err := trk.Stages(cmd.Context(), id)
	if err != nil {
		return err
	}
	return PrintResult(cmd, view, func(w io.Writer) { printStages(w, view) })
}

func runEvaluateRecord(cmd *cobra.Command, cliCtx *CLIContext, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "failed to read record file").WithDetail("path=" + path)
	}
	var rec cheque.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return errors.Wrap(err, errors.ErrCodeBadRequest, "malformed record file").WithDetail("path=" + path)
	}

	trk, _, err := cliCtx.Services(cmd.Context())
	if err != nil {
		return err
	}
	view, err := trk.EvaluateRecord(cmd.Context(), rec)
	if err != nil {
		return err
	}
	return PrintResult(cmd, view, func(w io.Writer) { printStages(w, view) })
}

func printStages(w io.Writer, view *tracking.ChequeStages) {
	c := view.Cheque
	amount := "-"
	if c.Amount.Valid {
		amount = c.Amount.Decimal.StringFixed(2)
	}
	bank := c.BankName
	if bank == "" {
		bank = "-"
	}
	fmt.Fprintf(w, "%s  %s  amount %s  cheque date %s  notice %s\n",
		headingColor.Sprint(c.ID), bank, amount, c.CheckDate.String(), c.NoticeStatus)
	fmt.Fprintf(w, "Evaluated on %s\n\n", view.Evaluation.EvaluatedOn.String())

	rows := make([]tableRow, 0, len(view.Evaluation.Stages))
	for _, p := range view.Evaluation.Stages {
		state := string(p.State)
		if p.CompletedLate {
			state += " (late)"
		}
		rows = append(rows, tableRow{
			cells: []string{
				p.Stage.Label(),
				state,
				strconv.Itoa(p.Progress) + "%",
				optionalDate(p.StartDate),
				optionalDate(p.DueDate),
				optionalDate(p.CompletedOn),
				dayCount(p.DaysRemaining, p.DaysOverdue),
			},
			paint: stateColor(p.State),
		})
	}
	fmt.Fprint(w, formatTable([]string{"STAGE", "STATE", "PROGRESS", "START", "DUE", "COMPLETED", "DAYS"}, rows))

	if len(view.Alerts) == 0 {
		return
	}
	fmt.Fprintln(w)
	for _, a := range view.Alerts {
		fmt.Fprintln(w, severityColor(a.Severity).Sprintf("[%s] %s", a.Severity, a.Message))
	}
}
