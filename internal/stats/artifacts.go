package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"bayesnet/internal/model"
)

const (
	runIndexFile  = "run_index.json"
	runFile       = "run.json"
	marginalsFile = "marginals.csv"
)

type RunIndexEntry struct {
	RunID        string `json:"run_id"`
	Network      string `json:"network"`
	Algorithm    string `json:"algorithm"`
	Iterations   int    `json:"iterations"`
	Seed         int64  `json:"seed"`
	Steps        int    `json:"steps"`
	Evidence     int    `json:"evidence"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// IndexEntry summarizes run for the run index.
func IndexEntry(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:        run.ID,
		Network:      run.Network,
		Algorithm:    run.Algorithm,
		Iterations:   run.Params.Iterations,
		Seed:         run.Params.Seed,
		Steps:        run.Result.Steps(),
		Evidence:     len(run.Params.Evidence),
		CreatedAtUTC: run.CreatedAtUTC,
	}
}

// WriteRunArtifacts writes run.json and marginals.csv under baseDir/<run id>
// and returns that directory.
func WriteRunArtifacts(baseDir string, run model.RunRecord) (string, error) {
	if run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), run); err != nil {
		return "", err
	}

	file, err := os.Create(filepath.Join(runDir, marginalsFile))
	if err != nil {
		return "", err
	}
	defer file.Close()
	if err := WriteMarginalsCSV(file, run.Result); err != nil {
		return "", err
	}
	return runDir, file.Sync()
}

// LoadRunArtifacts reads back the record written by WriteRunArtifacts.
func LoadRunArtifacts(baseDir, runID string) (model.RunRecord, bool, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runID, runFile))
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the index newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies a run directory's artifacts into outDir/<run id>.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{runFile, marginalsFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	return dst, nil
}

// MarginalRow is one line of marginals.csv.
type MarginalRow struct {
	Variable    string
	Value       string
	Step        int
	Probability float64
}

// WriteMarginalsCSV writes every snapshot of every variable, variables in
// name order and values in domain order.
func WriteMarginalsCSV(w io.Writer, result model.Result) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"variable", "value", "step", "probability"}); err != nil {
		return err
	}
	for _, name := range sortedVariables(result) {
		domain := result.Domains[name]
		for step, dist := range result.Marginals[name] {
			for i, p := range dist {
				if err := writer.Write([]string{
					name,
					label(domain, i),
					strconv.Itoa(step),
					strconv.FormatFloat(p, 'f', -1, 64),
				}); err != nil {
					return err
				}
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadMarginals(baseDir, runID string) ([]MarginalRow, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, marginalsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []MarginalRow{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 4 {
		return nil, false, fmt.Errorf("marginals header must have 4 columns")
	}

	var rows []MarginalRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		step, err := strconv.Atoi(record[2])
		if err != nil {
			return nil, false, err
		}
		p, err := strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, false, err
		}
		rows = append(rows, MarginalRow{Variable: record[0], Value: record[1], Step: step, Probability: p})
	}
	return rows, true, nil
}

// FinalMarginal is the last recorded distribution of one variable.
type FinalMarginal struct {
	Variable      string
	Values        []string
	Probabilities []float64
	Observed      bool
}

// FinalMarginals returns the last snapshot of each variable in name order.
func FinalMarginals(result model.Result) []FinalMarginal {
	names := sortedVariables(result)
	out := make([]FinalMarginal, 0, len(names))
	for _, name := range names {
		dist, ok := result.Final(name)
		if !ok {
			continue
		}
		values := make([]string, len(dist))
		for i := range dist {
			values[i] = label(result.Domains[name], i)
		}
		_, observed := result.Observed[name]
		out = append(out, FinalMarginal{
			Variable:      name,
			Values:        values,
			Probabilities: append([]float64(nil), dist...),
			Observed:      observed,
		})
	}
	return out
}

func sortedVariables(result model.Result) []string {
	names := make([]string, 0, len(result.Marginals))
	for name := range result.Marginals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func label(domain []string, i int) string {
	if i < len(domain) {
		return domain[i]
	}
	return strconv.Itoa(i)
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
