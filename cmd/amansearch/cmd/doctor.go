package cmd

import (
	"github.com/spf13/cobra"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
	"github.com/Aman-CERP/amansearch/internal/output"
	"github.com/Aman-CERP/amansearch/internal/preflight"
)

// doctorReport is the JSON shape of doctor output.
type doctorReport struct {
	Root   string                  `json:"root"`
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func newDoctorCmd(a *app) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the index root and diagnose issues",
		Long: `Run diagnostics against the index root.

Checks:
  - Index root exists and is writable
  - Disk space (100MB minimum)
  - File descriptor limits (1024 recommended)
  - Catalog database opens
  - No index is locked by another process

Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  amansearch doctor
  amansearch doctor --verbose
  amansearch doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			root := a.cfg.Index.Root
			checker := preflight.New(
				preflight.WithVerbose(verbose),
				preflight.WithOutput(cmd.OutOrStdout()),
			)
			results := checker.RunAll(cmd.Context(), root)

			if jsonOutput {
				report := doctorReport{Root: root, Status: checker.SummaryStatus(results), Checks: results}
				if err := output.New(cmd.OutOrStdout()).JSON(report); err != nil {
					return err
				}
			} else {
				checker.PrintResults(results)
			}

			if checker.HasCriticalFailures(results) {
				return amerrors.New(amerrors.ErrCodeDirectoryUnavailable, "system check failed", nil).
					WithDetail("root", root)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}
