package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/tonal/pkg/tracker"
)

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		since  string
		recent int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show provider usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			from := time.Time{}
			if since != "" {
				if from, err = time.Parse(time.DateOnly, since); err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := context.Background()

			if recent > 0 {
				recs, err := tr.Recent(ctx, recent)
				if err != nil {
					return err
				}
				if len(recs) == 0 {
					fmt.Println("No provider calls recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIME\tREQUEST\tPASS\tMODEL\tOUTCOME\tTOKENS\tLATENCY")
				for _, r := range recs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%dms\n",
						r.CreatedAt.Format("2006-01-02T15:04:05"), r.RequestID, r.Pass, r.Model, r.Outcome, r.TotalTokens, r.LatencyMs)
				}
				return w.Flush()
			}

			summaries, err := tr.Summary(ctx, from)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "MODEL\tPASS\tCALLS\tFAILED\tPROMPT\tCOMPLETION\tTOTAL\tAVG LATENCY")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%dms\n",
					s.Model, s.Pass, s.CallCount, s.FailedCount, s.TotalPrompt, s.TotalCompletion, s.TotalTokens, s.AvgLatencyMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only include calls on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recent provider calls instead of a summary")
	return cmd
}
