package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newCacheCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the result cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := openCache(context.Background(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			stats := c.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries: %d\n", stats.TotalEntries)
			if stats.TotalEntries > 0 {
				fmt.Fprintf(out, "Oldest:  %s\nNewest:  %s\n", formatMs(stats.OldestEntryMs), formatMs(stats.NewestEntryMs))
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List cache entries, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := openCache(context.Background(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			entries, err := c.Entries(cmd.Context())
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is empty.")
				return nil
			}

			now := time.Now().UnixMilli()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTION\tPROVIDER\tSTORED\tEXPIRED\tHASH")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%.12s\n",
					e.Action, e.Response.ProviderName, formatMs(e.TimestampMs), e.IsExpired(now), e.InputHash)
			}
			return w.Flush()
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := openCache(context.Background(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			if expiredOnly {
				n, err := c.PurgeExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired cache entries.\n", n)
				return nil
			}
			if err := c.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All cache entries cleared.")
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Evict the oldest entries beyond max_cache_entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := openCache(context.Background(), *configPath)
			if err != nil {
				return err
			}
			defer done()

			n, err := c.CleanupOldEntries(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Evicted %d cache entries.\n", n)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, listCmd, clearCmd, cleanupCmd)
	return cmd
}

func formatMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
