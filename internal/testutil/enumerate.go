// Package testutil holds reference computations used by package tests.
package testutil

import "bayesnet/internal/bayes"

// ExactMarginals enumerates the full joint of n, restricted to assignments
// consistent with evidence, and returns the normalized marginal of every
// variable. It is exponential in the number of variables and only meant
// for checking approximate engines on small networks.
func ExactMarginals(n *bayes.Network, evidence map[string]string) map[string][]float64 {
	vars := n.Variables()
	out := make(map[string][]float64, len(vars))
	for _, v := range vars {
		out[v.Name] = make([]float64, len(v.Domain))
	}

	assignment := make(map[string]string, len(vars))
	idx := make([]int, len(vars))
	total := 0.0
	for {
		for i, v := range vars {
			assignment[v.Name] = v.Domain[idx[i]]
		}
		if consistent(assignment, evidence) {
			p := 1.0
			for _, v := range vars {
				key := make([]string, 0, len(v.Parents)+1)
				for _, parent := range v.Parents {
					key = append(key, assignment[parent])
				}
				p *= v.CPT[bayes.K(append(key, assignment[v.Name])...)]
			}
			total += p
			for i, v := range vars {
				out[v.Name][idx[i]] += p
			}
		}

		pos := len(vars) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(vars[pos].Domain) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}

	for _, dist := range out {
		for i := range dist {
			dist[i] /= total
		}
	}
	return out
}

func consistent(assignment, evidence map[string]string) bool {
	for name, value := range evidence {
		if assignment[name] != value {
			return false
		}
	}
	return true
}
