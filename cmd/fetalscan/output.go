package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"fetalscan/internal/document"
	"fetalscan/internal/fileutil"
	"fetalscan/internal/lifecycle"
	"fetalscan/internal/report"
)

var errTerminalOutput = errors.New("refusing to write binary output to a terminal; redirect stdout or use --output <file>")

func recordRows(records []report.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for idx, rec := range records {
		patient := rec.Data.Patient
		rows = append(rows, []string{
			strconv.Itoa(idx + 1),
			rec.Key(),
			fallback(patient.Name, "-"),
			fallback(patient.PatientID, "-"),
			fallback(rec.Status, "-"),
			fallback(patient.VisitDate, "-"),
			fallback(patient.GestationalAge, "-"),
		})
	}
	return rows
}

func printRecords(cmd *cobra.Command, ctx *commandContext, records []report.Record) error {
	if ctx.jsonOutput() {
		if records == nil {
			records = []report.Record{}
		}
		return writeJSON(cmd, records)
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No reports")
		return nil
	}
	headers := []string{"#", "ID", "Patient", "Patient ID", "Status", "Visit", "GA"}
	aligns := []columnAlignment{alignRight}
	fmt.Fprintln(out, renderTable(headers, recordRows(records), aligns))
	return nil
}

func printRecord(cmd *cobra.Command, ctx *commandContext, verb string, rec report.Record) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, rec)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, fallback(rec.Data.Patient.Name, "Unknown patient"), rec.Key())
	return nil
}

func printState(cmd *cobra.Command, ctx *commandContext, state lifecycle.State) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, state)
	}
	out := cmd.OutOrStdout()
	data := state.Draft.Data
	p, s, ai := data.Patient, data.ScanParameters, data.AIModelOutput
	rows := [][]string{
		{"patient.name", p.Name},
		{"patient.age", strconv.Itoa(p.Age)},
		{"patient.patientId", p.PatientID},
		{"patient.sex", p.Sex},
		{"patient.lmp", p.LMP},
		{"patient.gestationalAge", p.GestationalAge},
		{"patient.visitDate", p.VisitDate},
		{"patient.referredBy", p.ReferredBy},
		{"scan.crl", document.FormatNumber(s.CRL)},
		{"scan.bpd", document.FormatNumber(s.BPD)},
		{"scan.hc", document.FormatNumber(s.HC)},
		{"scan.ac", document.FormatNumber(s.AC)},
		{"scan.fl", document.FormatNumber(s.FL)},
		{"scan.fhr", strconv.Itoa(s.FHR)},
		{"scan.uterineArteryPI", document.FormatNumber(s.UterineArteryPI)},
		{"clinic.name", data.ClinicInfo.Name},
		{"notes", data.ClinicalNotes},
		{"image", describeImage(state.Draft.Image)},
	}
	for _, structure := range ai.DetectedStructures {
		rows = append(rows, []string{"ai.structures." + structure.Name, document.FormatNumber(structure.Confidence) + "%"})
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))
	fmt.Fprintf(out, "Unsaved draft: %s\n", yesNo(state.HasUnsavedDraft))
	printWarnings(out, state.Warnings)
	return nil
}

func printWarnings(out io.Writer, warnings []report.Warning) {
	if len(warnings) == 0 {
		fmt.Fprintln(out, "Clinical warnings: none")
		return
	}
	fmt.Fprintln(out, "Clinical warnings:")
	for _, w := range warnings {
		fmt.Fprintf(out, "  [%s] %s\n", w.Severity, w.Message)
	}
}

func describeImage(src string) string {
	switch {
	case src == "":
		return "none"
	case src == report.PlaceholderImage:
		return "placeholder"
	case strings.HasPrefix(src, "data:"):
		header, _, _ := strings.Cut(src, ",")
		return fmt.Sprintf("%s (%d bytes encoded)", strings.TrimPrefix(header, "data:"), len(src))
	default:
		return src
	}
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}

// deliver writes body to stdout when target is "-", to target when it names
// a file, into target when it is a directory, and otherwise into defaultDir
// under name without overwriting existing files. Binary bodies are never
// written to a terminal.
func deliver(cmd *cobra.Command, target, defaultDir, name string, body []byte, binary bool) (string, error) {
	target = strings.TrimSpace(target)
	if target == "-" {
		out := cmd.OutOrStdout()
		if binary && isTerminal(out) {
			return "", errTerminalOutput
		}
		_, err := out.Write(body)
		return "", err
	}
	path := target
	switch {
	case path == "":
		path = fileutil.UniquePath(filepath.Join(defaultDir, name))
	default:
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			path = fileutil.UniquePath(filepath.Join(path, name))
		}
	}
	err := fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(body))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
