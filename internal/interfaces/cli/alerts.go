package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChequeGuard/internal/application/tracking"
	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

type alertsOptions struct {
	stage    string
	severity string
	chequeID string
	limit    int
}

func newAlertsCmd() *cobra.Command {
	opts := &alertsOptions{}
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List deadline alerts, most urgent first",
		Long: "List the overdue (critical) and upcoming (warning) stages of every cheque.\n" +
			"Critical alerts come first, then the closest deadlines.",
		Example: "  chequeguard alerts --severity critical\n" +
			"  chequeguard --input portfolio.json alerts --stage notice -o json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runAlerts(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.stage, "stage", "", "only this stage: dishonor|notice|filing")
	f.StringVar(&opts.severity, "severity", "", "only this severity: critical|warning")
	f.StringVar(&opts.chequeID, "cheque", "", "only alerts of this cheque id")
	f.IntVar(&opts.limit, "limit", 0, "maximum number of alerts (0 for all)")
	return cmd
}

func (o *alertsOptions) filter() (alert.Filter, error) {
	f := alert.Filter{ChequeID: o.chequeID}
	if o.limit < 0 {
		return f, errors.InvalidParam("limit must not be negative")
	}
	f.Limit = o.limit
	if o.stage != "" {
		s, err := cheque.ParseStage(o.stage)
		if err != nil {
			return f, err
		}
		f.Stage = &s
	}
	if o.severity != "" {
		sev, err := alert.ParseSeverity(o.severity)
		if err != nil {
			return f, err
		}
		f.Severity = sev
	}
	return f, nil
}

func runAlerts(cmd *cobra.Command, cliCtx *CLIContext, opts *alertsOptions) error {
	filter, err := opts.filter()
	if err != nil {
		return err
	}
	trk, _, err := cliCtx.Services(cmd.Context())
	if err != nil {
		return err
	}
	list, err := trk.Alerts(cmd.Context(), filter)
	if err != nil {
		return err
	}
	cliCtx.Logger.Debug("Alerts listed",
		logging.String("pass_id", list.PassID),
		logging.Int("total", list.Total))
	today := cliCtx.today(list.Now)
	return PrintResult(cmd, list, func(w io.Writer) { printAlerts(w, list, today) })
}

func printAlerts(w io.Writer, list *tracking.AlertList, today cheque.Date) {
	fmt.Fprintf(w, "%s as of %s (%s, %s)\n\n",
		plural(list.Total, "alert"),
		today.String(),
		criticalColor.Sprintf("%d critical", list.Critical),
		warningColor.Sprintf("%d warning", list.Warning))
	if list.Total == 0 {
		return
	}

	rows := make([]tableRow, 0, len(list.Alerts))
	for _, a := range list.Alerts {
		rows = append(rows, tableRow{
			cells: []string{
				a.ChequeID,
				a.BankName,
				a.Stage.Label(),
				string(a.Severity),
				a.DueDate.String(),
				dayCount(a.DaysRemaining, a.DaysOverdue),
				a.Message,
			},
			paint: severityColor(a.Severity),
		})
	}
	fmt.Fprint(w, formatTable([]string{"CHEQUE", "BANK", "STAGE", "SEVERITY", "DUE", "DAYS", "MESSAGE"}, rows))
	if list.Truncated {
		fmt.Fprintf(w, "\nshowing %d of %d; raise --limit to see the rest\n", len(list.Alerts), list.Total)
	}
}
