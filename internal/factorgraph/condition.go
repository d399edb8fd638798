package factorgraph

import (
	"fmt"
	"sort"

	"bayesnet/internal/logspace"
	"bayesnet/internal/model"
)

// Condition adds observations to the graph. Each observed variable gets a
// deterministic unary factor: the factor whose scope is exactly that
// variable is overwritten in place if one exists, otherwise a new one is
// connected. Observations accumulate across calls. Every pair is validated
// before anything is mutated.
func (g *Graph) Condition(observations map[string]string) error {
	names := make([]string, 0, len(observations))
	for name, value := range observations {
		v, ok := g.vars[name]
		if !ok {
			return fmt.Errorf("condition: %w: %q", model.ErrUnknownVariable, name)
		}
		if _, ok := v.Index(value); !ok {
			return fmt.Errorf("condition: %w: %q for variable %q", model.ErrUnknownValue, value, name)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := g.vars[name]
		selected, _ := v.Index(observations[name])
		table := make([]float64, v.Size())
		for i := range table {
			table[i] = logspace.Zero
		}
		table[selected] = 0

		if f := g.unaryFactor(v); f != nil {
			f.table = table
		} else {
			f := &FactorNode{
				name:    factorName([]string{name}),
				scope:   []*VariableNode{v},
				strides: []int{1},
				table:   table,
			}
			g.factors = append(g.factors, f)
			g.names[f.name] = f
			v.factors = append(v.factors, f)
		}
		g.observed[name] = observations[name]
		g.version++
	}
	return nil
}

func (g *Graph) unaryFactor(v *VariableNode) *FactorNode {
	for _, f := range v.factors {
		if len(f.scope) == 1 {
			return f
		}
	}
	return nil
}
