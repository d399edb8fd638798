package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bayesnet/internal/stats"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	origWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	workdir := t.TempDir()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir tempdir: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(origWD)
	})
	return workdir
}

func captureStdout(fn func() error) (string, error) {
	origStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		return "", err
	}

	os.Stdout = w
	runErr := fn()
	_ = w.Close()
	os.Stdout = origStdout

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		_ = r.Close()
		return "", err
	}
	_ = r.Close()
	return buf.String(), runErr
}

func TestRunCommandCreatesArtifactsAndIndex(t *testing.T) {
	chdirTemp(t)

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--store", "memory",
			"--network", "earthquake",
			"--alg", "bp",
			"--iters", "3",
			"--evidence", "Phone=1",
		})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(output, "run completed run_id=") || !strings.Contains(output, "variable=Phone P(0)=0.000000 P(1)=1.000000 observed=true") {
		t.Fatalf("unexpected run output: %s", output)
	}

	entries, err := stats.ListRunIndex("runs")
	if err != nil {
		t.Fatalf("list run index: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one indexed run, got %d", len(entries))
	}
	for _, file := range []string{"run.json", "marginals.csv"} {
		if _, err := os.Stat(filepath.Join("runs", entries[0].RunID, file)); err != nil {
			t.Fatalf("expected artifact %s: %v", file, err)
		}
	}

	output, err = captureStdout(func() error {
		return run(context.Background(), []string{"runs", "--store", "memory", "--limit", "1"})
	})
	if err != nil {
		t.Fatalf("runs command: %v", err)
	}
	if !strings.Contains(output, "run_id="+entries[0].RunID) {
		t.Fatalf("runs output missing run id: %s", output)
	}

	output, err = captureStdout(func() error {
		return run(context.Background(), []string{"show", "--store", "memory", "--latest"})
	})
	if err != nil {
		t.Fatalf("show command: %v", err)
	}
	if !strings.Contains(output, "evidence=Phone=1") || !strings.Contains(output, "variable=Alarm") {
		t.Fatalf("unexpected show output: %s", output)
	}

	output, err = captureStdout(func() error {
		return run(context.Background(), []string{"show", "--store", "memory", "--run-id", entries[0].RunID, "--trajectory"})
	})
	if err != nil {
		t.Fatalf("show trajectory: %v", err)
	}
	if strings.Count(output, "variable=Radio step=") != 4 {
		t.Fatalf("expected 4 Radio snapshots: %s", output)
	}

	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"export", "--store", "memory", "--latest", "--out", "out"})
	}); err != nil {
		t.Fatalf("export command: %v", err)
	}
	if _, err := os.Stat(filepath.Join("out", entries[0].RunID, "run.json")); err != nil {
		t.Fatalf("expected exported run.json: %v", err)
	}
}

func TestRunCommandGibbsJSON(t *testing.T) {
	chdirTemp(t)

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{
			"run",
			"--store", "memory",
			"--network", "naive-bayes",
			"--alg", "gibbs",
			"--iters", "300",
			"--burnin", "30",
			"--step", "3",
			"--seed", "5",
			"--evidence", "X1=H,X2=H",
			"--json",
		})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}

	var summary struct {
		RunID string
		Seed  int64
		Steps int
	}
	if err := json.Unmarshal([]byte(output), &summary); err != nil {
		t.Fatalf("decode json output: %v\n%s", err, output)
	}
	if summary.RunID == "" || summary.Seed != 5 || summary.Steps != (300-1)/3+1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRunCommandConfigWithFlagOverride(t *testing.T) {
	workdir := chdirTemp(t)
	configPath := filepath.Join(workdir, "run.json")
	config := `{"network": "vstruct", "algorithm": "gibbs", "iterations": 100, "seed": 9, "evidence": {"Z": 0}}`
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"run", "--store", "memory", "--config", configPath, "--alg", "bp", "--iters", "2"})
	})
	if err != nil {
		t.Fatalf("run command: %v", err)
	}
	if !strings.Contains(output, "network=vstruct alg=bp steps=3") {
		t.Fatalf("flags did not override config: %s", output)
	}
	if !strings.Contains(output, "variable=Z P(0)=1.000000 P(1)=0.000000 observed=true") {
		t.Fatalf("config evidence not applied: %s", output)
	}
}

func TestNetworkAndValidateCommands(t *testing.T) {
	workdir := chdirTemp(t)

	hclOut, err := captureStdout(func() error {
		return run(context.Background(), []string{"network", "--store", "memory", "--network", "diamond", "--format", "hcl"})
	})
	if err != nil {
		t.Fatalf("network command: %v", err)
	}
	path := filepath.Join(workdir, "diamond.hcl")
	if err := os.WriteFile(path, []byte(hclOut), 0o644); err != nil {
		t.Fatalf("write hcl: %v", err)
	}

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"validate", "--store", "memory", path})
	})
	if err != nil {
		t.Fatalf("validate command: %v\n%s", err, hclOut)
	}
	if !strings.Contains(output, "valid network=diamond variables=4 factors=4 edges=8") {
		t.Fatalf("unexpected validate output: %s", output)
	}
	if !strings.Contains(output, "variable=D domain=0,1 parents=B,C children=") {
		t.Fatalf("unexpected variable line: %s", output)
	}

	output, err = captureStdout(func() error {
		return run(context.Background(), []string{"networks", "--store", "memory"})
	})
	if err != nil {
		t.Fatalf("networks command: %v", err)
	}
	for _, name := range []string{"vstruct", "naive-bayes", "earthquake", "diamond"} {
		if !strings.Contains(output, "name="+name+" ") {
			t.Fatalf("networks output missing %s: %s", name, output)
		}
	}
}

func TestValidateRejectsBrokenDefinition(t *testing.T) {
	workdir := chdirTemp(t)
	path := filepath.Join(workdir, "broken.yaml")
	doc := "variables:\n  - name: A\n    domain: [0, 1]\ncpts:\n  - variable: A\n    rows:\n      - {values: [0], p: 0.5}\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := captureStdout(func() error {
		return run(context.Background(), []string{"validate", "--store", "memory", "--file", path})
	}); err == nil || !strings.Contains(err.Error(), "invalid CPT") {
		t.Fatalf("expected invalid CPT error, got %v", err)
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	chdirTemp(t)
	cases := []struct {
		name string
		args []string
	}{
		{name: "missing command", args: nil},
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "bad evidence flag", args: []string{"run", "--store", "memory", "--network", "vstruct", "--evidence", "X"}},
		{name: "bad log level", args: []string{"networks", "--store", "memory", "--log-level", "loud"}},
		{name: "show without selector", args: []string{"show", "--store", "memory"}},
		{name: "export with both selectors", args: []string{"export", "--store", "memory", "--run-id", "a", "--latest"}},
		{name: "bad format", args: []string{"network", "--store", "memory", "--network", "vstruct", "--format", "xml"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := captureStdout(func() error {
				return run(context.Background(), tc.args)
			}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCompareCommand(t *testing.T) {
	chdirTemp(t)
	for _, alg := range []string{"bp", "gibbs"} {
		if _, err := captureStdout(func() error {
			return run(context.Background(), []string{"run", "--store", "memory", "--network", "vstruct", "--alg", alg, "--iters", "200", "--seed", "3"})
		}); err != nil {
			t.Fatalf("run %s: %v", alg, err)
		}
	}
	entries, err := stats.ListRunIndex("runs")
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected 2 indexed runs: %d %v", len(entries), err)
	}

	output, err := captureStdout(func() error {
		return run(context.Background(), []string{"compare", "--store", "memory", "-a", entries[1].RunID, "-b", entries[0].RunID})
	})
	if err != nil {
		t.Fatalf("compare command: %v", err)
	}
	if !strings.Contains(output, "compare run_a="+entries[1].RunID) || strings.Count(output, "variable=") != 3 {
		t.Fatalf("unexpected compare output: %s", output)
	}
}
