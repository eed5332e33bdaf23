package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show report counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				stats, err := s.ctrl.Stats(c, time.Now())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				rows := [][]string{
					{"Total reports", strconv.Itoa(stats.TotalReports)},
					{"This month", strconv.Itoa(stats.ThisMonth)},
					{"Pending review", strconv.Itoa(stats.PendingReview)},
					{"Completed", strconv.Itoa(stats.Completed)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}
