package storage

import "bayesnet/internal/model"

func sampleRun(id, createdAt string) model.RunRecord {
	return Stamp(model.RunRecord{
		ID:           id,
		CreatedAtUTC: createdAt,
		Network:      "vstruct",
		Algorithm:    model.AlgorithmGibbs,
		Params: model.RunParams{
			Iterations: 100,
			Burnin:     10,
			Step:       2,
			Seed:       7,
			Evidence:   map[string]string{"Z": "1"},
		},
		Result: model.Result{
			Marginals: map[string][][]float64{"X": {{0.5, 0.5}, {0.25, 0.75}}},
			Domains:   map[string][]string{"X": {"0", "1"}},
			Observed:  map[string]string{"Z": "1"},
		},
	})
}
