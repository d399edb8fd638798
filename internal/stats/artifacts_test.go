package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bayesnet/internal/model"
)

func sampleRun(id, createdAt string) model.RunRecord {
	return model.RunRecord{
		ID:           id,
		CreatedAtUTC: createdAt,
		Network:      "vstruct",
		Algorithm:    model.AlgorithmBP,
		Params:       model.RunParams{Iterations: 1, Evidence: map[string]string{"Z": "0"}},
		Result: model.Result{
			Marginals: map[string][][]float64{
				"Z": {{1, 0}, {1, 0}},
				"X": {{0.001, 0.999}, {0.1, 0.9}},
			},
			Domains:  map[string][]string{"X": {"0", "1"}, "Z": {"0", "1"}},
			Observed: map[string]string{"Z": "0"},
		},
	}
}

func TestWriteLoadAndExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "exports")

	run := sampleRun("run-123", "2026-01-01T00:00:00Z")
	runDir, err := WriteRunArtifacts(baseDir, run)
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	for _, file := range []string{"run.json", "marginals.csv"} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}

	loaded, ok, err := LoadRunArtifacts(baseDir, run.ID)
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	if !ok {
		t.Fatal("expected run.json")
	}
	if loaded.Network != "vstruct" || loaded.Result.Marginals["X"][1][1] != 0.9 {
		t.Fatalf("unexpected loaded run: %+v", loaded)
	}

	rows, ok, err := ReadMarginals(baseDir, run.ID)
	if err != nil || !ok {
		t.Fatalf("read marginals: ok=%t err=%v", ok, err)
	}
	if len(rows) != 8 {
		t.Fatalf("expected 8 marginal rows, got %d", len(rows))
	}
	if rows[0] != (MarginalRow{Variable: "X", Value: "0", Step: 0, Probability: 0.001}) {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}

	exportedDir, err := ExportRunArtifacts(baseDir, run.ID, outDir)
	if err != nil {
		t.Fatalf("export artifacts: %v", err)
	}
	for _, file := range []string{"run.json", "marginals.csv"} {
		if _, err := os.Stat(filepath.Join(exportedDir, file)); err != nil {
			t.Fatalf("expected exported file %s: %v", file, err)
		}
	}
}

func TestLoadRunArtifactsMissing(t *testing.T) {
	_, ok, err := LoadRunArtifacts(t.TempDir(), "nope")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ok {
		t.Fatal("expected missing run")
	}
}

func TestWriteRunArtifactsRequiresID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), model.RunRecord{}); err == nil {
		t.Fatal("expected run id error")
	}
}

func TestRunIndexNewestFirstAndReplace(t *testing.T) {
	baseDir := t.TempDir()
	for _, run := range []model.RunRecord{
		sampleRun("a", "2026-01-01T00:00:00Z"),
		sampleRun("b", "2026-03-01T00:00:00Z"),
		sampleRun("c", "2026-02-01T00:00:00Z"),
	} {
		if err := AppendRunIndex(baseDir, IndexEntry(run)); err != nil {
			t.Fatalf("append %s: %v", run.ID, err)
		}
	}
	replaced := IndexEntry(sampleRun("a", "2026-01-01T00:00:00Z"))
	replaced.Network = "diamond"
	if err := AppendRunIndex(baseDir, replaced); err != nil {
		t.Fatalf("replace: %v", err)
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(index) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(index))
	}
	if index[0].RunID != "b" || index[1].RunID != "c" || index[2].RunID != "a" {
		t.Fatalf("unexpected order: %+v", index)
	}
	if index[2].Network != "diamond" || index[2].Steps != 2 || index[2].Evidence != 1 {
		t.Fatalf("unexpected replaced entry: %+v", index[2])
	}
}

func TestWriteMarginalsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarginalsCSV(&buf, sampleRun("r", "").Result); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "variable,value,step,probability" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[len(lines)-1] != "Z,1,1,0" {
		t.Fatalf("unexpected last line %q", lines[len(lines)-1])
	}
}

func TestFinalMarginals(t *testing.T) {
	finals := FinalMarginals(sampleRun("r", "").Result)
	if len(finals) != 2 {
		t.Fatalf("expected 2 variables, got %d", len(finals))
	}
	if finals[0].Variable != "X" || finals[0].Probabilities[1] != 0.9 || finals[0].Observed {
		t.Fatalf("unexpected X: %+v", finals[0])
	}
	if finals[1].Variable != "Z" || !finals[1].Observed || finals[1].Values[0] != "0" {
		t.Fatalf("unexpected Z: %+v", finals[1])
	}
}
