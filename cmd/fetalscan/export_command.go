package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fetalscan/internal/lifecycle"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var output string
	var all bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export final reports, or everything with --all, as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				now := time.Now()
				var buf bytes.Buffer
				var name, summary string
				if all {
					backup, err := s.ctrl.Backup(c, &buf)
					if err != nil {
						return err
					}
					name = lifecycle.BackupFileName(now)
					summary = fmt.Sprintf("%d final, %d archived", len(backup.Reports), len(backup.Archived))
				} else {
					count, err := s.ctrl.ExportFinal(c, &buf)
					if err != nil {
						return err
					}
					name = lifecycle.ExportFileName(now)
					summary = fmt.Sprintf("%d final", count)
				}
				path, err := deliver(cmd, output, s.cfg.Paths.OutputDir, name, buf.Bytes(), false)
				if err != nil {
					return err
				}
				if path != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", summary, path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory, or - for stdout")
	cmd.Flags().BoolVar(&all, "all", false, "Include archived drafts, the working draft and settings")
	return cmd
}
