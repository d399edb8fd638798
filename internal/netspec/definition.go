// Package netspec reads and writes Bayesian network definitions as YAML,
// JSON or HCL documents.
package netspec

import (
	"errors"
	"fmt"

	"bayesnet/internal/bayes"
	"bayesnet/internal/model"
)

var ErrUnsupportedFormat = errors.New("unsupported network format")

// Definition is the file form of a network. Variables are declared before
// any CPT refers to them.
type Definition struct {
	Name      string         `yaml:"name,omitempty" json:"name,omitempty"`
	Variables []VariableSpec `yaml:"variables" json:"variables"`
	CPTs      []CPTSpec      `yaml:"cpts" json:"cpts"`
}

type VariableSpec struct {
	Name   string `yaml:"name" json:"name"`
	Domain Labels `yaml:"domain" json:"domain"`
}

// CPTSpec lists one row per assignment. Row values name the parents in
// order followed by the variable's own value.
type CPTSpec struct {
	Variable string    `yaml:"variable" json:"variable"`
	Parents  []string  `yaml:"parents,omitempty" json:"parents,omitempty"`
	Rows     []RowSpec `yaml:"rows" json:"rows"`
}

type RowSpec struct {
	Values Labels  `yaml:"values" json:"values"`
	P      float64 `yaml:"p" json:"p"`
}

// Build validates the definition and returns the network it describes.
func (d *Definition) Build() (*bayes.Network, error) {
	n := bayes.NewNetwork()
	for _, v := range d.Variables {
		if err := n.AddVariable(v.Name, v.Domain); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]struct{}, len(d.CPTs))
	for _, c := range d.CPTs {
		if _, dup := seen[c.Variable]; dup {
			return nil, fmt.Errorf("%w: variable %q has more than one cpt", model.ErrDefinition, c.Variable)
		}
		seen[c.Variable] = struct{}{}

		table := make(bayes.Table, len(c.Rows))
		for _, row := range c.Rows {
			key := bayes.K(row.Values...)
			if _, dup := table[key]; dup {
				return nil, fmt.Errorf("cpt for %q: %w: duplicate row %s", c.Variable, model.ErrInvalidCPT, key)
			}
			table[key] = row.P
		}
		if err := n.AddCPT(c.Parents, c.Variable, table); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// FromNetwork captures n as a definition. Rows follow the row-major order of
// the parent domains with the variable's own value varying fastest.
func FromNetwork(name string, n *bayes.Network) Definition {
	def := Definition{Name: name}
	for _, v := range n.Variables() {
		def.Variables = append(def.Variables, VariableSpec{Name: v.Name, Domain: append(Labels(nil), v.Domain...)})
		if v.CPT == nil {
			continue
		}
		domains := make([][]string, 0, len(v.Parents)+1)
		for _, p := range v.Parents {
			pv, _ := n.Variable(p)
			domains = append(domains, pv.Domain)
		}
		domains = append(domains, v.Domain)

		spec := CPTSpec{Variable: v.Name, Parents: append([]string(nil), v.Parents...)}
		bayes.ForEachCombination(domains, func(combo []string) bool {
			spec.Rows = append(spec.Rows, RowSpec{
				Values: append(Labels(nil), combo...),
				P:      v.CPT[bayes.K(combo...)],
			})
			return true
		})
		def.CPTs = append(def.CPTs, spec)
	}
	return def
}
