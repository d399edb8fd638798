// Package factorgraph holds the bipartite variable/factor structure both
// inference engines read. Domains are re-indexed to 0..k-1 and potentials
// are stored in the log domain.
package factorgraph

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"bayesnet/internal/bayes"
	"bayesnet/internal/logspace"
	"bayesnet/internal/model"
)

type VariableNode struct {
	name    string
	domain  []string
	index   map[string]int
	factors []*FactorNode
}

func newVariableNode(name string, domain []string) *VariableNode {
	index := make(map[string]int, len(domain))
	for i, label := range domain {
		index[label] = i
	}
	return &VariableNode{name: name, domain: slices.Clone(domain), index: index}
}

func (v *VariableNode) Name() string { return v.name }

// Size is the number of values in the re-indexed domain.
func (v *VariableNode) Size() int { return len(v.domain) }

// Label maps a domain index back to its original label.
func (v *VariableNode) Label(i int) string { return v.domain[i] }

// Index maps an original label to its domain index.
func (v *VariableNode) Index(label string) (int, bool) {
	i, ok := v.index[label]
	return i, ok
}

func (v *VariableNode) Domain() []string { return slices.Clone(v.domain) }

// Factors returns the neighbouring factors in connection order.
func (v *VariableNode) Factors() []*FactorNode { return slices.Clone(v.factors) }

// FactorNode is a log-potential over an ordered scope. The scope order is
// fixed at creation and matches the coordinate order of the table.
type FactorNode struct {
	name    string
	scope   []*VariableNode
	strides []int
	table   []float64
}

func (f *FactorNode) Name() string { return f.name }

func (f *FactorNode) Scope() []*VariableNode { return slices.Clone(f.scope) }

func (f *FactorNode) Variables() []string {
	names := make([]string, len(f.scope))
	for i, v := range f.scope {
		names[i] = v.name
	}
	return names
}

// Position returns where v sits in the scope, or -1.
func (f *FactorNode) Position(v *VariableNode) int {
	return slices.Index(f.scope, v)
}

// Rows is the number of entries in the dense table.
func (f *FactorNode) Rows() int { return len(f.table) }

// Coords decodes row r into one domain index per scope position.
func (f *FactorNode) Coords(r int, coords []int) {
	for i, stride := range f.strides {
		coords[i] = r / stride
		r %= stride
	}
}

// LogValueAt returns the log-potential of row r.
func (f *FactorNode) LogValueAt(r int) float64 { return f.table[r] }

// LogValue returns the log-potential at the given scope coordinates.
func (f *FactorNode) LogValue(coords []int) float64 {
	r := 0
	for i, c := range coords {
		r += c * f.strides[i]
	}
	return f.table[r]
}

// Edge links a factor to the variable at scope position Position.
type Edge struct {
	Factor   *FactorNode
	Variable *VariableNode
	Position int
}

// Graph owns all topology. Engines hold non-owning references and must
// re-resolve adjacency whenever Version changes.
type Graph struct {
	vars     map[string]*VariableNode
	order    []*VariableNode
	factors  []*FactorNode
	names    map[string]*FactorNode
	observed map[string]string
	version  uint64
}

func New() *Graph {
	return &Graph{
		vars:     make(map[string]*VariableNode),
		names:    make(map[string]*FactorNode),
		observed: make(map[string]string),
	}
}

// FromNetwork converts net into a factor graph with exactly one factor per
// variable, scoped over the variable's parents followed by the variable.
func FromNetwork(net *bayes.Network) (*Graph, error) {
	g := New()
	for _, v := range net.Variables() {
		if _, err := g.AddVariable(v.Name, v.Domain); err != nil {
			return nil, err
		}
	}
	for _, v := range net.Variables() {
		if v.CPT == nil {
			return nil, fmt.Errorf("%w: variable %q has no CPT", model.ErrDefinition, v.Name)
		}
		if _, err := g.AddFactor(append(slices.Clone(v.Parents), v.Name), v.CPT); err != nil {
			return nil, fmt.Errorf("factor for %q: %w", v.Name, err)
		}
	}
	return g, nil
}

func (g *Graph) AddVariable(name string, domain []string) (*VariableNode, error) {
	if _, exists := g.vars[name]; exists {
		return nil, fmt.Errorf("%w: variable %q already defined", model.ErrDefinition, name)
	}
	if len(domain) == 0 {
		return nil, fmt.Errorf("%w: variable %q has an empty domain", model.ErrDefinition, name)
	}
	v := newVariableNode(name, domain)
	if len(v.index) != len(domain) {
		return nil, fmt.Errorf("%w: variable %q repeats a domain value", model.ErrDefinition, name)
	}
	g.vars[name] = v
	g.order = append(g.order, v)
	g.version++
	return v, nil
}

// AddFactor adds a factor over variables, in that order. Table keys list
// one label per variable; entries missing from table are zero potentials.
func (g *Graph) AddFactor(variables []string, table bayes.Table) (*FactorNode, error) {
	scope := make([]*VariableNode, 0, len(variables))
	for _, name := range variables {
		v, ok := g.vars[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", model.ErrUnknownVariable, name)
		}
		if slices.Contains(scope, v) {
			return nil, fmt.Errorf("%w: variable %q repeated in scope", model.ErrInvalidFactor, name)
		}
		scope = append(scope, v)
	}
	if len(scope) == 0 {
		return nil, fmt.Errorf("%w: empty scope", model.ErrInvalidFactor)
	}

	name := factorName(variables)
	if _, exists := g.names[name]; exists {
		return nil, fmt.Errorf("%w: factor %q already defined", model.ErrDefinition, name)
	}

	f := &FactorNode{name: name, scope: scope, strides: strides(scope)}
	logTable, err := f.compile(table)
	if err != nil {
		return nil, fmt.Errorf("factor %s: %w", name, err)
	}
	f.table = logTable

	g.factors = append(g.factors, f)
	g.names[name] = f
	for _, v := range scope {
		v.factors = append(v.factors, f)
	}
	g.version++
	return f, nil
}

func (f *FactorNode) compile(table bayes.Table) ([]float64, error) {
	size := 1
	for _, v := range f.scope {
		size *= v.Size()
	}
	out := make([]float64, size)
	for i := range out {
		out[i] = logspace.Zero
	}

	coords := make([]int, len(f.scope))
	for key, value := range table {
		labels := key.Values()
		if len(labels) != len(f.scope) {
			return nil, fmt.Errorf("%w: key %s has %d values, want %d", model.ErrInvalidFactor, key, len(labels), len(f.scope))
		}
		for i, label := range labels {
			idx, ok := f.scope[i].Index(label)
			if !ok {
				return nil, fmt.Errorf("%w: key %s: value %q outside domain of %q", model.ErrInvalidFactor, key, label, f.scope[i].name)
			}
			coords[i] = idx
		}
		if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, fmt.Errorf("%w: key %s: value %g", model.ErrInvalidFactor, key, value)
		}
		r := 0
		for i, c := range coords {
			r += c * f.strides[i]
		}
		out[r] = logspace.Log(value)
	}
	return out, nil
}

func strides(scope []*VariableNode) []int {
	out := make([]int, len(scope))
	stride := 1
	for i := len(scope) - 1; i >= 0; i-- {
		out[i] = stride
		stride *= scope[i].Size()
	}
	return out
}

func factorName(variables []string) string {
	return "F_" + strings.Join(variables, ",")
}

func (g *Graph) Variable(name string) (*VariableNode, bool) {
	v, ok := g.vars[name]
	return v, ok
}

// Variables returns variable nodes in insertion order.
func (g *Graph) Variables() []*VariableNode { return slices.Clone(g.order) }

// Factors returns factor nodes in insertion order.
func (g *Graph) Factors() []*FactorNode { return slices.Clone(g.factors) }

// Edges lists every factor/variable link, grouped by factor in insertion
// order and by scope position within a factor.
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, f := range g.factors {
		for i, v := range f.scope {
			edges = append(edges, Edge{Factor: f, Variable: v, Position: i})
		}
	}
	return edges
}

// Domains maps each variable to its original ordered labels.
func (g *Graph) Domains() map[string][]string {
	out := make(map[string][]string, len(g.order))
	for _, v := range g.order {
		out[v.name] = v.Domain()
	}
	return out
}

// Observed returns a copy of the accumulated evidence.
func (g *Graph) Observed() map[string]string {
	out := make(map[string]string, len(g.observed))
	for k, v := range g.observed {
		out[k] = v
	}
	return out
}

// Version increases on every structural change or table overwrite.
func (g *Graph) Version() uint64 { return g.version }

// Clone returns an independent deep copy, suitable for running a second
// inference procedure concurrently.
func (g *Graph) Clone() *Graph {
	out := New()
	mapping := make(map[*VariableNode]*VariableNode, len(g.order))
	for _, v := range g.order {
		nv := newVariableNode(v.name, v.domain)
		mapping[v] = nv
		out.vars[nv.name] = nv
		out.order = append(out.order, nv)
	}
	for _, f := range g.factors {
		nf := &FactorNode{
			name:    f.name,
			strides: slices.Clone(f.strides),
			table:   slices.Clone(f.table),
		}
		for _, v := range f.scope {
			nv := mapping[v]
			nf.scope = append(nf.scope, nv)
			nv.factors = append(nv.factors, nf)
		}
		out.factors = append(out.factors, nf)
		out.names[nf.name] = nf
	}
	for k, v := range g.observed {
		out.observed[k] = v
	}
	out.version = g.version
	return out
}
