package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"caveat/internal/report"
	"caveat/internal/session"
	"caveat/internal/summary"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <journal>",
		Short: "Render the report of a recorded session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := session.ReadJournal(args[0])
			if err != nil {
				return usageError(err)
			}
			out := cmd.OutOrStdout()
			colorOn, err := useColor(cmd, out)
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}
			width := report.DefaultWidth
			if f, ok := out.(*os.File); ok {
				width = report.TerminalWidth(int(f.Fd()))
			}

			w := report.New(out, report.Options{Width: width, Color: colorOn, Verbose: verbose})
			for _, o := range j.Outcomes {
				w.Node(o)
			}
			w.Failures(j.Outcomes)
			w.Finish(j.Outcomes, summary.Render(j.Aggregate().All(), j.Dedup), j.Elapsed)
			if err := w.Err(); err != nil {
				return &exitError{code: exitInterrupted, err: fmt.Errorf("write report: %w", err)}
			}
			if _, failed := report.Count(j.Outcomes); failed > 0 {
				return &exitError{code: exitTestsFailed, err: errTestsFailed}
			}
			return nil
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "list every test with its outcome")
	return cmd
}
