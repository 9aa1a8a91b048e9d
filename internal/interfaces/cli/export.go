package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChequeGuard/internal/application/reporting"
	"github.com/turtacn/ChequeGuard/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

type exportOptions struct {
	kind   string
	format string
	out    string
	upload bool
}

func newExportCmd() *cobra.Command {
	opts := &exportOptions{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export cheques, the report or alerts as CSV or XLSX",
		Example: "  chequeguard export --kind cheques --format csv > cheques.csv\n" +
			"  chequeguard export --kind report --format xlsx --out report.xlsx\n" +
			"  chequeguard export --kind alerts --format xlsx --upload",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			return runExport(cmd, cliCtx, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.kind, "kind", string(reporting.KindCheques), "dataset: cheques|report|alerts")
	f.StringVar(&opts.format, "format", string(reporting.FormatCSV), "file format: csv|xlsx")
	f.StringVar(&opts.out, "out", "", "output file (default stdout, csv only)")
	f.BoolVar(&opts.upload, "upload", false, "upload to object storage and print a download link")
	return cmd
}

func runExport(cmd *cobra.Command, cliCtx *CLIContext, opts *exportOptions) error {
	kind, err := reporting.ParseKind(opts.kind)
	if err != nil {
		return err
	}
	format, err := reporting.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.upload && opts.out != "" {
		return errors.InvalidParam("--upload and --out are exclusive")
	}
	if !opts.upload && opts.out == "" && format == reporting.FormatXLSX {
		return errors.InvalidParam("xlsx exports need --out or --upload")
	}

	_, rep, err := cliCtx.Services(cmd.Context())
	if err != nil {
		return err
	}

	if opts.upload {
		res, err := rep.Export(cmd.Context(), kind, format)
		if err != nil {
			return err
		}
		return PrintResult(cmd, res, func(w io.Writer) {
			fmt.Fprintf(w, "Uploaded %s (%d bytes), link valid until %s\n%s\n",
				res.Key, res.Size, res.ExpiresAt.Format("2006-01-02 15:04 MST"), res.URL)
		})
	}

	var buf bytes.Buffer
	if err := rep.Render(cmd.Context(), kind, format, &buf); err != nil {
		return err
	}
	if opts.out == "" {
		_, err := buf.WriteTo(cmd.OutOrStdout())
		return err
	}
	if err := os.WriteFile(opts.out, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "failed to write export").WithDetail("path=" + opts.out)
	}
	cliCtx.Logger.Info("Export written",
		logging.String("kind", string(kind)),
		logging.String("format", string(format)),
		logging.String("path", opts.out),
		logging.Int("bytes", buf.Len()))
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d bytes)\n", opts.out, buf.Len())
	return nil
}
