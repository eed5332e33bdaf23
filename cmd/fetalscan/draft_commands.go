package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fetalscan/internal/config"
	"fetalscan/internal/report"
)

func newDraftCommand(ctx *commandContext) *cobra.Command {
	draftCmd := &cobra.Command{
		Use:   "draft",
		Short: "Edit and submit the working draft",
	}

	draftCmd.AddCommand(newDraftShowCommand(ctx))
	draftCmd.AddCommand(newDraftSetCommand(ctx))
	draftCmd.AddCommand(newDraftFieldsCommand())
	draftCmd.AddCommand(newDraftClearCommand(ctx))
	draftCmd.AddCommand(newDraftArchiveCommand(ctx))
	draftCmd.AddCommand(newDraftFinalizeCommand(ctx))
	draftCmd.AddCommand(newDraftValidateCommand(ctx))
	draftCmd.AddCommand(newDraftWarningsCommand(ctx))
	draftCmd.AddCommand(newDraftDocumentCommand(ctx))

	return draftCmd
}

func newDraftShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the working draft and its clinical warnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(_ context.Context, s *session) error {
				return printState(cmd, ctx, s.ctrl.State())
			})
		},
	}
}

func newDraftSetCommand(ctx *commandContext) *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "set <field=value>...",
		Short: "Change draft fields in one batch",
		Long: "Change draft fields in one batch. Every assignment is applied or none is.\n" +
			"Run `fetalscan draft fields` for the accepted paths. An empty value clears a\n" +
			"field; ai.structures.<name>= removes a structure.",
		Example: "  fetalscan draft set patient.name='Jane Doe' patient.age=29 scan.fhr=145\n" +
			"  fetalscan draft set --image scan.png",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && strings.TrimSpace(imagePath) == "" {
				return errors.New("no fields given")
			}
			patches := make([]report.Patch, 0, len(args)+1)
			for _, arg := range args {
				patch, err := report.ParsePatch(arg)
				if err != nil {
					return err
				}
				patches = append(patches, patch)
			}
			if strings.TrimSpace(imagePath) != "" {
				dataURL, err := imageDataURL(imagePath)
				if err != nil {
					return err
				}
				patches = append(patches, report.Patch{Path: "image", Value: dataURL})
			}
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				state, err := s.ctrl.Update(c, patches...)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, state)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated %d field(s)\n", len(patches))
				printWarnings(out, state.Warnings)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "Attach a PNG, JPEG or GIF scan image from a file")
	return cmd
}

func newDraftFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "fields",
		Short:       "List field paths accepted by draft set",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range report.FieldPaths() {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

func newDraftClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Discard the working draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return confirmationRequired("clear the working draft")
			}
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				state, err := s.ctrl.ClearDraft(c)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, state)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Draft cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm discarding the draft")
	return cmd
}

func newDraftArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Save a snapshot of the draft to the archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				rec, err := s.ctrl.SaveDraftToArchive(c)
				if err != nil {
					return err
				}
				return printRecord(cmd, ctx, "Archived", rec)
			})
		},
	}
}

func newDraftFinalizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Validate the draft and save it as a final report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				rec, err := s.ctrl.SaveAsFinalReport(c)
				if err != nil {
					return reportValidation(cmd, err)
				}
				return printRecord(cmd, ctx, "Finalized", rec)
			})
		},
	}
}

func newDraftValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the draft against the required-field and range rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(_ context.Context, s *session) error {
				errs := s.ctrl.Validate()
				if ctx.jsonOutput() {
					if err := writeJSON(cmd, map[string]any{"valid": len(errs) == 0, "errors": errs}); err != nil {
						return err
					}
					return errs.Err()
				}
				if len(errs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Draft is valid")
					return nil
				}
				return reportValidation(cmd, errs.Err())
			})
		},
	}
}

func newDraftWarningsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "warnings",
		Short: "List advisory clinical warnings for the draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(_ context.Context, s *session) error {
				warnings := s.ctrl.Warnings()
				if ctx.jsonOutput() {
					return writeJSON(cmd, warnings)
				}
				printWarnings(cmd.OutOrStdout(), warnings)
				return nil
			})
		},
	}
}

func newDraftDocumentCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "document",
		Short: "Render the validated draft as a PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				var buf bytes.Buffer
				rendered, err := s.ctrl.GenerateDocument(c, &buf)
				if err != nil {
					return reportValidation(cmd, err)
				}
				return deliverDocument(cmd, s.cfg, output, rendered.FileName, buf.Bytes())
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file or directory, or - for stdout")
	return cmd
}

func deliverDocument(cmd *cobra.Command, cfg *config.Config, output, name string, body []byte) error {
	path, err := deliver(cmd, output, cfg.Paths.OutputDir, name, body, true)
	if err != nil {
		return err
	}
	if path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	}
	return nil
}

// reportValidation prints each field error before returning err unchanged.
func reportValidation(cmd *cobra.Command, err error) error {
	var validationErr *report.ValidationError
	if !errors.As(err, &validationErr) {
		return err
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "Please fix the following errors:")
	for _, key := range validationErr.Errors.Keys() {
		fmt.Fprintf(out, "  %s: %s\n", key, validationErr.Errors[key])
	}
	return err
}

func imageDataURL(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	switch mimeType {
	case "image/png", "image/jpeg", "image/gif":
	default:
		return "", fmt.Errorf("unsupported image type %s", mimeType)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
