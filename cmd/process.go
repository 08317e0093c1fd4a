package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llmlogs/botwatch/internal/botlog"
)

// newProcessCmd derives the daily summary for one or more dates.
func newProcessCmd() *cobra.Command {
	var yesterday bool

	cmd := &cobra.Command{
		Use:   "process [date ...]",
		Short: "Parse, classify and summarize the raw logs for the given dates",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			var dates []time.Time
			for _, arg := range args {
				date, err := time.ParseInLocation(botlog.DateLayout, arg, time.UTC)
				if err != nil {
					return fmt.Errorf("invalid date %q, want YYYY-MM-DD", arg)
				}
				dates = append(dates, date)
			}
			if yesterday {
				dates = append(dates, time.Now().UTC().AddDate(0, 0, -1))
			}
			if len(dates) == 0 {
				return fmt.Errorf("no dates given; pass YYYY-MM-DD arguments or --yesterday")
			}

			for _, date := range dates {
				result, err := a.Pipeline.ProcessDate(cmd.Context(), date)
				if err != nil {
					return err
				}
				a.Logger.Info("process complete",
					zap.String("date", result.Date),
					zap.Int("files", result.Files),
					zap.Int64("parsed_lines", result.ParsedLines),
					zap.Int64("malformed_lines", result.MalformedLines),
					zap.Int64("classified_hits", result.ClassifiedHits))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yesterday, "yesterday", false, "process yesterday's date")
	return cmd
}
