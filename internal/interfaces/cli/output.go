package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/ChequeGuard/internal/domain/alert"
	"github.com/turtacn/ChequeGuard/internal/domain/cheque"
)

var (
	criticalColor = color.New(color.FgRed, color.Bold)
	warningColor  = color.New(color.FgYellow)
	doneColor     = color.New(color.FgGreen)
	headingColor  = color.New(color.Bold)
)

// tableRow is one table line. paint, when set, colors the padded line.
type tableRow struct {
	cells []string
	paint *color.Color
}

// PrintResult writes data as JSON or hands the writer to table.
func PrintResult(cmd *cobra.Command, data interface{}, table func(w io.Writer)) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil || cliCtx.OutputFormat == OutputJSON {
		return printJSON(cmd.OutOrStdout(), data)
	}
	table(cmd.OutOrStdout())
	return nil
}

func printJSON(w io.Writer, data interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// PrintError writes a formatted error message to w.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", criticalColor.Sprint("Error:"), err.Error())
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	plain := make([]tableRow, len(rows))
	for i, r := range rows {
		plain[i] = tableRow{cells: r}
	}
	return formatTable(headers, plain)
}

func formatTable(headers []string, rows []tableRow) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row.cells) && i < len(widths); i++ {
			if len(row.cells[i]) > widths[i] {
				widths[i] = len(row.cells[i])
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(headingColor.Sprint(joinPadded(headers, widths)))
	sb.WriteString("\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	sb.WriteString(joinPadded(sep, widths))
	sb.WriteString("\n")

	for _, row := range rows {
		line := joinPadded(row.cells, widths)
		if row.paint != nil {
			line = row.paint.Sprint(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// joinPadded pads every cell to its column width. The last column is not
// padded so lines carry no trailing blanks.
func joinPadded(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i := range widths {
		v := ""
		if i < len(cells) {
			v = cells[i]
		}
		if i < len(widths)-1 {
			v = padRight(v, widths[i])
		}
		parts[i] = v
	}
	return strings.Join(parts, "  ")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

func severityColor(s alert.Severity) *color.Color {
	switch s {
	case alert.SeverityCritical:
		return criticalColor
	case alert.SeverityWarning:
		return warningColor
	default:
		return nil
	}
}

func stateColor(s cheque.State) *color.Color {
	switch s {
	case cheque.StateOverdue:
		return criticalColor
	case cheque.StateCompleted:
		return doneColor
	default:
		return nil
	}
}

// dayCount renders the remaining or overdue days of an alert or stage.
func dayCount(remaining, overdue *int) string {
	switch {
	case overdue != nil:
		return fmt.Sprintf("%d overdue", *overdue)
	case remaining != nil:
		return fmt.Sprintf("%d left", *remaining)
	default:
		return ""
	}
}

func optionalDate(d *cheque.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
