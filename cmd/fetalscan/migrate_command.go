package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fetalscan/internal/lifecycle"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Rewrite stored records in the current schema and assign missing ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				result, err := s.ctrl.Migrate(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				out := cmd.OutOrStdout()
				if !result.Changed() {
					fmt.Fprintln(out, "Stored records are already current")
					return nil
				}
				parts := []struct {
					name  string
					stats lifecycle.CollectionMigration
				}{
					{"draft", result.Draft},
					{"archived", result.Archived},
					{"final", result.Final},
					{"edit request", result.EditRequest},
				}
				rows := make([][]string, 0, len(parts))
				for _, part := range parts {
					rows = append(rows, []string{
						part.name,
						strconv.Itoa(part.stats.Records),
						strconv.Itoa(part.stats.Upgraded),
						strconv.Itoa(part.stats.AssignedIDs),
					})
				}
				aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight}
				fmt.Fprintln(out, renderTable([]string{"Collection", "Records", "Upgraded", "New IDs"}, rows, aligns))
				return nil
			})
		},
	}
}
