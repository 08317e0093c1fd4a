package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llmlogs/botwatch/internal/botlog"
)

// newReportCmd builds the windowed JSON report and cumulative CSV.
func newReportCmd() *cobra.Command {
	var asOf string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the bot traffic report from stored daily summaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			date := time.Now().UTC()
			if asOf != "" {
				date, err = time.ParseInLocation(botlog.DateLayout, asOf, time.UTC)
				if err != nil {
					return fmt.Errorf("invalid --as-of date %q, want YYYY-MM-DD", asOf)
				}
			}

			result, err := a.Pipeline.BuildReport(cmd.Context(), date)
			if err != nil {
				return err
			}
			a.Logger.Info("report complete",
				zap.Int("dates", result.Dates),
				zap.String("report_uri", result.ReportURI),
				zap.String("cumulative_uri", result.CumulativeURI))
			return nil
		},
	}

	cmd.Flags().StringVar(&asOf, "as-of", "", "report as-of date (default today, YYYY-MM-DD)")
	return cmd
}
