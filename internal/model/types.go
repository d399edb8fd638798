package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Result is what both inference engines hand back: one probability vector
// per retained iteration or sample, aligned to the original domain labels.
type Result struct {
	Marginals map[string][][]float64 `json:"marginals"`
	Domains   map[string][]string    `json:"domains"`
	Observed  map[string]string      `json:"observed"`
}

// Final returns the last snapshot recorded for variable name.
func (r Result) Final(name string) ([]float64, bool) {
	trajectory, ok := r.Marginals[name]
	if !ok || len(trajectory) == 0 {
		return nil, false
	}
	return trajectory[len(trajectory)-1], true
}

// Steps reports how many snapshots the result carries per variable.
func (r Result) Steps() int {
	for _, trajectory := range r.Marginals {
		return len(trajectory)
	}
	return 0
}

const (
	AlgorithmBP    = "bp"
	AlgorithmGibbs = "gibbs"
)

type RunParams struct {
	Iterations int               `json:"iterations"`
	Burnin     int               `json:"burnin,omitempty"`
	Step       int               `json:"step,omitempty"`
	Seed       int64             `json:"seed"`
	Evidence   map[string]string `json:"evidence,omitempty"`
	InitState  map[string]string `json:"init_state,omitempty"`
}

type RunRecord struct {
	VersionedRecord
	ID           string    `json:"id"`
	CreatedAtUTC string    `json:"created_at_utc"`
	Network      string    `json:"network"`
	Algorithm    string    `json:"algorithm"`
	Params       RunParams `json:"params"`
	Result       Result    `json:"result"`
}
