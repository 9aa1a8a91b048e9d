package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/ChequeGuard/internal/infrastructure/database/postgres"
	"github.com/turtacn/ChequeGuard/pkg/errors"
)

// MigrationStatus is the schema version after a migrate command.
type MigrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, func(m *postgres.Migrator) error { return m.Up() })
		},
	}

	down := &cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default one step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return errors.InvalidParam("steps must be a positive integer").WithDetail("value=" + args[0])
				}
				steps = n
			}
			return runMigration(cmd, func(m *postgres.Migrator) error { return m.Down(steps) })
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd, nil)
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// runMigration applies op, when given, then prints the schema version.
func runMigration(cmd *cobra.Command, op func(*postgres.Migrator) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := postgres.NewMigrator(postgres.ConnString(cliCtx.Config.Database), cliCtx.Logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if op != nil {
		if err := op(m); err != nil {
			return err
		}
	}
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	status := MigrationStatus{Version: v, Dirty: dirty}
	return PrintResult(cmd, status, func(w io.Writer) {
		line := fmt.Sprintf("Schema version %d", v)
		if dirty {
			line = criticalColor.Sprint(line + " (dirty)")
		}
		fmt.Fprintln(w, line)
	})
}
