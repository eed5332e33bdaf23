package main

import (
	"bytes"
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fetalscan/internal/lifecycle"
	"fetalscan/internal/report"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:     "archive",
		Aliases: []string{"archived"},
		Short:   "Work with archived drafts awaiting review",
	}

	archiveCmd.AddCommand(newListCommand(ctx, report.StateArchivedDraft))
	archiveCmd.AddCommand(newPromoteCommand(ctx))
	archiveCmd.AddCommand(newDeleteCommand(ctx, report.StateArchivedDraft))
	archiveCmd.AddCommand(newEditCommand(ctx, report.StateArchivedDraft))
	archiveCmd.AddCommand(newRecordDocumentCommand(ctx, report.StateArchivedDraft))

	return archiveCmd
}

func newFinalCommand(ctx *commandContext) *cobra.Command {
	finalCmd := &cobra.Command{
		Use:   "final",
		Short: "Work with finalized reports",
	}

	finalCmd.AddCommand(newListCommand(ctx, report.StateFinal))
	finalCmd.AddCommand(newDeleteCommand(ctx, report.StateFinal))
	finalCmd.AddCommand(newEditCommand(ctx, report.StateFinal))
	finalCmd.AddCommand(newRecordDocumentCommand(ctx, report.StateFinal))

	return finalCmd
}

func newListCommand(ctx *commandContext, source report.State) *cobra.Command {
	var search string
	var status string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				var records []report.Record
				var err error
				if source == report.StateFinal {
					records, err = s.ctrl.ListFinal(c)
				} else {
					records, err = s.ctrl.ListArchived(c)
				}
				if err != nil {
					return err
				}
				return printRecords(cmd, ctx, lifecycle.Search(records, search, status))
			})
		},
	}

	cmd.Flags().StringVarP(&search, "search", "s", "", "Match patient name or id")
	cmd.Flags().StringVar(&status, "status", "", "Match record status (all to disable)")
	return cmd
}

func newPromoteCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "promote <id>",
		Short: "Mark an archived draft reviewed and move it to the final reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return confirmationRequired("promote " + args[0])
			}
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				rec, err := s.ctrl.PromoteToFinal(c, args[0], true)
				if err != nil {
					return err
				}
				return printRecord(cmd, ctx, "Promoted", rec)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the promotion")
	return cmd
}

func newDeleteCommand(ctx *commandContext, source report.State) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a stored record",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return confirmationRequired("delete " + args[0])
			}
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				var rec report.Record
				var err error
				if source == report.StateFinal {
					rec, err = s.ctrl.DeleteFinal(c, args[0], true)
				} else {
					rec, err = s.ctrl.DeleteArchived(c, args[0], true)
				}
				if err != nil {
					return err
				}
				return printRecord(cmd, ctx, "Deleted", rec)
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func newEditCommand(ctx *commandContext, source report.State) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Load a stored record into the working draft",
		Long: "Load a stored record into the working draft. The draft is replaced and\n" +
			"the stored record stays where it is.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				state, err := s.ctrl.OpenForEdit(c, source, args[0])
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, state)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Editing %s as the working draft\n", fallback(state.Draft.Data.Patient.Name, args[0]))
				return nil
			})
		},
	}
}

func newRecordDocumentCommand(ctx *commandContext, source report.State) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "document <id>",
		Short: "Render a stored record as a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				var buf bytes.Buffer
				rendered, err := s.ctrl.RenderRecord(c, source, args[0], &buf)
				if err != nil {
					return err
				}
				return deliverDocument(cmd, s.cfg, output, rendered.FileName, buf.Bytes())
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory, or - for stdout")
	return cmd
}
