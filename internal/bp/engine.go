// Package bp runs loopy sum-product belief propagation over a factor graph.
//
// Messages live in the log domain and are exchanged synchronously: every
// variable sends to its factors, then every factor sends to its variables
// using only the messages produced earlier in the same iteration. On a
// tree-shaped factor graph the marginals are exact once messages have
// crossed the tree's diameter. On graphs with cycles the result is an
// approximation with no error bound, and no convergence test is applied;
// callers choose the iteration count.
package bp

import (
	"fmt"
	"log/slog"
	"math"

	"bayesnet/internal/factorgraph"
	"bayesnet/internal/logspace"
	"bayesnet/internal/model"
)

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Engine owns the message state for one factor graph. The graph itself is
// only read; a second Engine over the same graph is safe as long as nobody
// conditions the graph while either one runs.
type Engine struct {
	graph  *factorgraph.Graph
	logger *slog.Logger

	version  uint64
	resolved bool
	edges    []factorgraph.Edge
	factors  []*factorgraph.FactorNode
	byVar    map[*factorgraph.VariableNode][]int
	byFactor map[*factorgraph.FactorNode][]int

	// toFactor[e] is the variable -> factor message on edge e.
	toFactor [][]float64
	// toVar[gen][e] is the factor -> variable message on edge e; cur selects
	// the generation the variables read from.
	toVar [2][][]float64
	cur   int
}

func New(graph *factorgraph.Graph, opts ...Option) *Engine {
	e := &Engine{graph: graph, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run resets all messages and performs n synchronous iterations. The result
// holds n+1 snapshots per variable; the first is taken before any variable
// has sent a message.
func (e *Engine) Run(n int) (model.Result, error) {
	if n < 0 {
		return model.Result{}, fmt.Errorf("%w: iterations must be >= 0, got %d", model.ErrPrecondition, n)
	}
	e.Reset()
	e.logger.Debug("Belief propagation started.", "iterations", n, "edges", len(e.edges))

	vars := e.graph.Variables()
	marginals := make(map[string][][]float64, len(vars))
	for _, v := range vars {
		trajectory := make([][]float64, 0, n+1)
		marginals[v.Name()] = append(trajectory, e.marginal(v))
	}

	for it := 0; it < n; it++ {
		e.Step()
		for _, v := range vars {
			marginals[v.Name()] = append(marginals[v.Name()], e.marginal(v))
		}
	}

	e.logger.Debug("Belief propagation finished.", "iterations", n)
	return model.Result{
		Marginals: marginals,
		Domains:   e.graph.Domains(),
		Observed:  e.graph.Observed(),
	}, nil
}

// Reset re-resolves the graph topology and restores the initial messages:
// every variable -> factor message is the zero vector (log 1), and every
// factor -> variable message is what the factor sends against those
// neutral inputs.
func (e *Engine) Reset() {
	e.resolve()
	e.toFactor = make([][]float64, len(e.edges))
	for gen := range e.toVar {
		e.toVar[gen] = make([][]float64, len(e.edges))
	}
	for i, edge := range e.edges {
		e.toFactor[i] = make([]float64, edge.Variable.Size())
		for gen := range e.toVar {
			e.toVar[gen][i] = make([]float64, edge.Variable.Size())
		}
	}
	e.cur = 0
	e.sendFactors(e.toVar[e.cur])
}

// Step performs one iteration: all variables send, then all factors send.
func (e *Engine) Step() {
	if !e.resolved || e.version != e.graph.Version() {
		e.Reset()
	}
	e.sendVariables()
	next := 1 - e.cur
	e.sendFactors(e.toVar[next])
	e.cur = next
}

// Marginal returns the current belief for the named variable.
func (e *Engine) Marginal(name string) ([]float64, error) {
	v, ok := e.graph.Variable(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownVariable, name)
	}
	if !e.resolved || e.version != e.graph.Version() {
		e.Reset()
	}
	return e.marginal(v), nil
}

func (e *Engine) marginal(v *factorgraph.VariableNode) []float64 {
	belief := make([]float64, v.Size())
	for _, edge := range e.byVar[v] {
		addInto(belief, e.toVar[e.cur][edge])
	}
	return logspace.Probabilities(logspace.Normalize(belief))
}

func (e *Engine) resolve() {
	e.edges = e.graph.Edges()
	e.factors = e.graph.Factors()
	e.byVar = make(map[*factorgraph.VariableNode][]int)
	e.byFactor = make(map[*factorgraph.FactorNode][]int)
	for i, edge := range e.edges {
		e.byVar[edge.Variable] = append(e.byVar[edge.Variable], i)
		e.byFactor[edge.Factor] = append(e.byFactor[edge.Factor], i)
	}
	e.version = e.graph.Version()
	e.resolved = true
}

// sendVariables computes every variable -> factor message from the current
// generation of factor -> variable messages.
func (e *Engine) sendVariables() {
	incoming := e.toVar[e.cur]
	for target, edge := range e.edges {
		msg := e.toFactor[target]
		clear(msg)
		for _, other := range e.byVar[edge.Variable] {
			if other != target {
				addInto(msg, incoming[other])
			}
		}
		logspace.Normalize(msg)
	}
}

// sendFactors computes every factor -> variable message from toFactor and
// writes it into out.
func (e *Engine) sendFactors(out [][]float64) {
	for _, f := range e.factors {
		edges := e.byFactor[f]
		coords := make([]int, len(edges))
		for i, target := range edges {
			msg := out[target]
			for d := range msg {
				msg[d] = negInf
			}
			for r := 0; r < f.Rows(); r++ {
				f.Coords(r, coords)
				s := f.LogValueAt(r)
				for j, other := range edges {
					if j != i {
						s += e.toFactor[other][coords[j]]
					}
				}
				msg[coords[i]] = logspace.AddExp(msg[coords[i]], s)
			}
		}
	}
}

func addInto(dst, src []float64) {
	for i, v := range src {
		dst[i] += v
	}
}

var negInf = math.Inf(-1)
