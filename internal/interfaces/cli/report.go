package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/domain/report"
)

func newReportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print the portfolio report",
		Long: "Print portfolio totals, per-bank and per-status breakdowns, the monthly\n" +
			"series and the overdue and upcoming counts of each stage.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			trk, _, err := cliCtx.Services(cmd.Context())
			if err != nil {
				return err
			}
			rep, err := trk.Report(cmd.Context())
			if err != nil {
				return err
			}
			return PrintResult(cmd, rep, func(w io.Writer) { printReport(w, rep) })
		},
	}
}

func printReport(w io.Writer, rep *report.Report) {
	for i, t := range reporting.ReportTables(rep) {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headingColor.Sprint(t.Name))
		rows := make([][]string, len(t.Rows))
		for r, cells := range t.Rows {
			rows[r] = make([]string, len(cells))
			for c, v := range cells {
				rows[r][c] = reporting.CellString(v)
			}
		}
		fmt.Fprint(w, FormatTable(t.Header, rows))
	}
}
