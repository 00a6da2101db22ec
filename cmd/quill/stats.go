package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/quill/pkg/models"
	"github.com/pario-ai/quill/pkg/usage"
)

func newStatsCmd(configPath *string) *cobra.Command {
	var (
		actionName string
		since      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show provider usage statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			ledger, err := usage.New(cfg.Storage.DBPath)
			if err != nil {
				return err
			}
			defer ledger.Close()

			ctx := cmd.Context()
			act := models.Action(actionName)
			out := cmd.OutOrStdout()

			if since > 0 {
				total, err := ledger.TotalTokens(ctx, act, time.Now().Add(-since))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Tokens in the last %s: %d\n\n", since, total)
			}

			summaries, err := ledger.Summary(ctx, act)
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(out, "No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTION\tPROVIDER\tREQUESTS\tTOKENS\tAVG LATENCY")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%dms\n",
					s.Action, s.Provider, s.RequestCount, s.TotalTokens, s.AvgLatencyMs)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&actionName, "action", "", "filter by action")
	cmd.Flags().DurationVar(&since, "since", 0, "also report tokens used within this window (e.g. 24h)")
	return cmd
}
