package bayes

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"bayesnet/internal/model"
)

// Tolerance bounds how far each conditional distribution may sum from 1.
const Tolerance = 1e-10

const keySeparator = "\x1f"

// Key is an ordered tuple of domain labels. For a CPT the parent values come
// first and the variable's own value last.
type Key string

// K builds a Key from labels. A single label is a one-element tuple.
func K(values ...string) Key {
	return Key(strings.Join(values, keySeparator))
}

// Values splits the key back into its labels.
func (k Key) Values() []string {
	return strings.Split(string(k), keySeparator)
}

func (k Key) String() string {
	return "(" + strings.Join(k.Values(), ", ") + ")"
}

// Table maps value tuples to probabilities (or factor values).
type Table map[Key]float64

// Clone returns an independent copy of t.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// ValidateCPT checks that table is a complete conditional distribution of a
// variable with domain own given parents with domains parentDomains. Every
// parent-value combination must assign each own value a probability in
// [0,1], and those probabilities must sum to 1 within Tolerance.
func ValidateCPT(parentDomains [][]string, own []string, table Table) error {
	arity := len(parentDomains) + 1
	domains := append(append([][]string{}, parentDomains...), own)
	for key, p := range table {
		values := key.Values()
		if len(values) != arity {
			return fmt.Errorf("%w: key %s has %d values, want %d", model.ErrInvalidCPT, key, len(values), arity)
		}
		for i, v := range values {
			if !slices.Contains(domains[i], v) {
				return fmt.Errorf("%w: key %s: value %q outside domain", model.ErrInvalidCPT, key, v)
			}
		}
		if p < 0 || p > 1 || math.IsNaN(p) {
			return fmt.Errorf("%w: key %s: probability %g outside [0,1]", model.ErrInvalidCPT, key, p)
		}
	}

	var err error
	ForEachCombination(parentDomains, func(combo []string) bool {
		total := 0.0
		for _, v := range own {
			key := K(append(combo, v)...)
			p, ok := table[key]
			if !ok {
				err = fmt.Errorf("%w: missing entry %s", model.ErrInvalidCPT, key)
				return false
			}
			total += p
		}
		if math.Abs(total-1) > Tolerance {
			err = fmt.Errorf("%w: parents %v sum to %g", model.ErrInvalidCPT, combo, total)
			return false
		}
		return true
	})
	return err
}

// ForEachCombination visits the cartesian product of domains in row-major
// order, last domain varying fastest. fn may stop the walk by returning
// false. The slice passed to fn is reused between calls.
func ForEachCombination(domains [][]string, fn func([]string) bool) {
	for _, d := range domains {
		if len(d) == 0 {
			return
		}
	}
	idx := make([]int, len(domains))
	combo := make([]string, len(domains))
	for {
		for i, d := range domains {
			combo[i] = d[idx[i]]
		}
		if !fn(combo[:len(combo):len(combo)]) {
			return
		}
		pos := len(domains) - 1
		for pos >= 0 {
			idx[pos]++
			if idx[pos] < len(domains[pos]) {
				break
			}
			idx[pos] = 0
			pos--
		}
		if pos < 0 {
			return
		}
	}
}
