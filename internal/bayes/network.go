// Package bayes models discrete Bayesian networks: variables with finite
// domains and the conditional probability tables that link them.
package bayes

import (
	"fmt"
	"slices"

	"bayesnet/internal/model"
)

type Variable struct {
	Name    string
	Domain  []string
	Parents []string
	CPT     Table
}

// Edge is a directed parent -> child link.
type Edge struct {
	From string
	To   string
}

// Network is a directed graph over variables. Acyclicity is assumed, not
// enforced.
type Network struct {
	vars     map[string]*Variable
	order    []string
	children map[string][]string
}

func NewNetwork() *Network {
	return &Network{
		vars:     make(map[string]*Variable),
		children: make(map[string][]string),
	}
}

// AddVariable registers a variable with an ordered, duplicate-free domain.
func (n *Network) AddVariable(name string, domain []string) error {
	if _, exists := n.vars[name]; exists {
		return fmt.Errorf("%w: variable %q already defined", model.ErrDefinition, name)
	}
	if len(domain) == 0 {
		return fmt.Errorf("%w: variable %q has an empty domain", model.ErrDefinition, name)
	}
	seen := make(map[string]struct{}, len(domain))
	for _, v := range domain {
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: variable %q repeats domain value %q", model.ErrDefinition, name, v)
		}
		seen[v] = struct{}{}
	}

	n.vars[name] = &Variable{Name: name, Domain: slices.Clone(domain)}
	n.order = append(n.order, name)
	return nil
}

// AddCPT attaches table as the CPT of variable conditioned on parents, in
// that order. Table keys list the parent values first and the variable's
// own value last.
func (n *Network) AddCPT(parents []string, variable string, table Table) error {
	parents = slices.Clone(parents)
	for _, name := range append(slices.Clone(parents), variable) {
		if _, ok := n.vars[name]; !ok {
			return fmt.Errorf("%w: %q", model.ErrUnknownVariable, name)
		}
	}

	parentDomains := make([][]string, len(parents))
	for i, p := range parents {
		parentDomains[i] = n.vars[p].Domain
	}
	v := n.vars[variable]
	if err := ValidateCPT(parentDomains, v.Domain, table); err != nil {
		return fmt.Errorf("cpt for %q: %w", variable, err)
	}

	v.Parents = parents
	v.CPT = table.Clone()
	for _, p := range parents {
		if !slices.Contains(n.children[p], variable) {
			n.children[p] = append(n.children[p], variable)
		}
	}
	return nil
}

func (n *Network) Variable(name string) (*Variable, bool) {
	v, ok := n.vars[name]
	return v, ok
}

// Variables returns the variables in insertion order.
func (n *Network) Variables() []*Variable {
	out := make([]*Variable, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.vars[name])
	}
	return out
}

func (n *Network) Names() []string {
	return slices.Clone(n.order)
}

// Parents returns the parents listed by name's CPT, nil if it has none.
func (n *Network) Parents(name string) []string {
	v, ok := n.vars[name]
	if !ok {
		return nil
	}
	return slices.Clone(v.Parents)
}

func (n *Network) Children(name string) []string {
	return slices.Clone(n.children[name])
}

// Edges lists every parent -> child link, grouped by parent in insertion
// order.
func (n *Network) Edges() []Edge {
	var edges []Edge
	for _, parent := range n.order {
		for _, child := range n.children[parent] {
			edges = append(edges, Edge{From: parent, To: child})
		}
	}
	return edges
}
