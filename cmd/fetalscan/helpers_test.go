package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"fetalscan/internal/config"
	"fetalscan/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithUser("Dr. Rivera")}, opts...)...)
	cfg.Logging.Level = "error"
	configPath := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, e.configPath, args...)
}

func (e *cliTestEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("fetalscan %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

func (e *cliTestEnv) mustRunJSON(t *testing.T, into any, args ...string) {
	t.Helper()
	stdout := e.mustRun(t, append([]string{"--json"}, args...)...)
	if err := json.Unmarshal([]byte(stdout), into); err != nil {
		t.Fatalf("decode %q output: %v\n%s", strings.Join(args, " "), err, stdout)
	}
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

var completeDraftArgs = []string{
	"patient.name=Jane Doe",
	"patient.patientId=P100",
	"patient.age=29",
	"patient.sex=Female",
	"patient.visitDate=2024-01-10",
	"patient.gestationalAge=20w 3d",
	"patient.lmp=2023-08-20",
	"scan.fhr=145",
}

func (e *cliTestEnv) fillDraft(t *testing.T, extra ...string) {
	t.Helper()
	e.mustRun(t, append(append([]string{"draft", "set"}, completeDraftArgs...), extra...)...)
}
