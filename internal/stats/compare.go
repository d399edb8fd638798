package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"bayesnet/internal/model"
)

// VariableComparison measures how far two final marginals of one variable
// are apart. TotalVariation is half the L1 distance.
type VariableComparison struct {
	Variable       string  `json:"variable"`
	MaxAbs         float64 `json:"max_abs"`
	TotalVariation float64 `json:"total_variation"`
}

type RunComparison struct {
	RunA       string               `json:"run_a"`
	RunB       string               `json:"run_b"`
	Variables  []VariableComparison `json:"variables"`
	MaxAbs     float64              `json:"max_abs"`
	OnlyInRunA []string             `json:"only_in_run_a,omitempty"`
	OnlyInRunB []string             `json:"only_in_run_b,omitempty"`
}

// CompareRuns contrasts the final marginals of two runs over the variables
// they share. Shared variables must have identical domains.
func CompareRuns(a, b model.RunRecord) (RunComparison, error) {
	out := RunComparison{RunA: a.ID, RunB: b.ID}
	for _, name := range sortedVariables(a.Result) {
		distA, _ := a.Result.Final(name)
		distB, ok := b.Result.Final(name)
		if !ok {
			out.OnlyInRunA = append(out.OnlyInRunA, name)
			continue
		}
		if !sameDomain(a.Result.Domains[name], b.Result.Domains[name]) || len(distA) != len(distB) {
			return RunComparison{}, fmt.Errorf("variable %q has different domains in runs %s and %s", name, a.ID, b.ID)
		}
		cmp := VariableComparison{
			Variable:       name,
			MaxAbs:         floats.Distance(distA, distB, math.Inf(1)),
			TotalVariation: floats.Distance(distA, distB, 1) / 2,
		}
		out.MaxAbs = math.Max(out.MaxAbs, cmp.MaxAbs)
		out.Variables = append(out.Variables, cmp)
	}
	for name := range b.Result.Marginals {
		if _, ok := a.Result.Marginals[name]; !ok {
			out.OnlyInRunB = append(out.OnlyInRunB, name)
		}
	}
	sort.Strings(out.OnlyInRunB)
	return out, nil
}

func sameDomain(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
