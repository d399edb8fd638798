// Package gibbs estimates marginals with a random-scan, single-site Gibbs
// sampler over a factor graph.
package gibbs

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"bayesnet/internal/factorgraph"
	"bayesnet/internal/logspace"
	"bayesnet/internal/model"
)

// State is a joint assignment of domain indexes keyed by variable name.
type State map[string]int

func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type Option func(*Sampler)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type blanketFactor struct {
	factor   *factorgraph.FactorNode
	scope    []*factorgraph.VariableNode
	position int
}

// Sampler holds a non-owning reference to a graph. Adjacency is cached and
// re-resolved whenever the graph's version moves.
type Sampler struct {
	graph  *factorgraph.Graph
	rng    *rand.Rand
	logger *slog.Logger

	version  uint64
	resolved bool
	vars     []*factorgraph.VariableNode
	blankets map[string][]blanketFactor
}

func New(graph *factorgraph.Graph, rng *rand.Rand, opts ...Option) *Sampler {
	s := &Sampler{graph: graph, rng: rng, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.refresh()
	return s
}

// Condition forwards observations to the graph and refreshes adjacency,
// since a new unary factor adds a neighbour to the observed variable.
func (s *Sampler) Condition(observations map[string]string) error {
	if err := s.graph.Condition(observations); err != nil {
		return err
	}
	s.refresh()
	return nil
}

func (s *Sampler) refresh() {
	s.vars = s.graph.Variables()
	s.blankets = make(map[string][]blanketFactor, len(s.vars))
	for _, v := range s.vars {
		factors := v.Factors()
		blanket := make([]blanketFactor, 0, len(factors))
		for _, f := range factors {
			blanket = append(blanket, blanketFactor{factor: f, scope: f.Scope(), position: f.Position(v)})
		}
		s.blankets[v.Name()] = blanket
	}
	s.version = s.graph.Version()
	s.resolved = true
}

func (s *Sampler) ensureFresh() {
	if !s.resolved || s.version != s.graph.Version() {
		s.refresh()
	}
}

// SampleVar draws a new domain index for name from P(name | blanket), where
// the blanket values are read from state.
func (s *Sampler) SampleVar(name string, state State) (int, error) {
	s.ensureFresh()
	v, ok := s.graph.Variable(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", model.ErrUnknownVariable, name)
	}
	blanket := s.blankets[name]
	for _, bf := range blanket {
		for _, other := range bf.scope {
			if other == v {
				continue
			}
			if _, ok := state[other.Name()]; !ok {
				return 0, fmt.Errorf("%w: state has no value for %q", model.ErrPrecondition, other.Name())
			}
		}
	}
	return s.sample(v, blanket, state), nil
}

func (s *Sampler) sample(v *factorgraph.VariableNode, blanket []blanketFactor, state State) int {
	logp := make([]float64, v.Size())
	for _, bf := range blanket {
		coords := make([]int, len(bf.scope))
		for i, other := range bf.scope {
			if i != bf.position {
				coords[i] = state[other.Name()]
			}
		}
		for d := range logp {
			coords[bf.position] = d
			logp[d] += bf.factor.LogValue(coords)
		}
	}
	return logspace.Draw(logp, s.rng)
}

// Run performs niter+burnin random-scan updates. After burn-in the whole
// joint state is recorded on every step-th update, and each variable's
// trajectory is the running average of its value indicators over those
// records. init may assign any subset of variables; unassigned variables
// start uniformly at random, except observed ones, which start at their
// observed value.
func (s *Sampler) Run(niter, burnin, step int, init map[string]string) (model.Result, error) {
	if burnin < 0 || burnin >= niter {
		return model.Result{}, fmt.Errorf("%w: burnin must be in [0, niter), got burnin=%d niter=%d", model.ErrPrecondition, burnin, niter)
	}
	if step < 1 {
		return model.Result{}, fmt.Errorf("%w: step must be >= 1, got %d", model.ErrPrecondition, step)
	}
	s.ensureFresh()

	state, err := s.initialState(init)
	if err != nil {
		return model.Result{}, err
	}
	s.logger.Debug("Gibbs sampling started.", "niter", niter, "burnin", burnin, "step", step, "variables", len(s.vars))

	samples := make(map[string][]int, len(s.vars))
	if len(s.vars) > 0 {
		for it := 0; it < niter+burnin; it++ {
			v := s.vars[s.rng.IntN(len(s.vars))]
			state[v.Name()] = s.sample(v, s.blankets[v.Name()], state)
			if it >= burnin && (it-burnin)%step == 0 {
				for _, u := range s.vars {
					samples[u.Name()] = append(samples[u.Name()], state[u.Name()])
				}
			}
		}
	}

	marginals := make(map[string][][]float64, len(s.vars))
	for _, v := range s.vars {
		avg, err := CumulativeAverage(samples[v.Name()], v.Size())
		if err != nil {
			return model.Result{}, fmt.Errorf("variable %q: %w", v.Name(), err)
		}
		marginals[v.Name()] = avg
	}

	s.logger.Debug("Gibbs sampling finished.", "recorded", (niter-1)/step+1)
	return model.Result{
		Marginals: marginals,
		Domains:   s.graph.Domains(),
		Observed:  s.graph.Observed(),
	}, nil
}

func (s *Sampler) initialState(init map[string]string) (State, error) {
	state := make(State, len(s.vars))
	observed := s.graph.Observed()
	for _, v := range s.vars {
		if label, ok := observed[v.Name()]; ok {
			state[v.Name()], _ = v.Index(label)
			continue
		}
		state[v.Name()] = s.rng.IntN(v.Size())
	}
	for name, label := range init {
		v, ok := s.graph.Variable(name)
		if !ok {
			return nil, fmt.Errorf("initial state: %w: %q", model.ErrUnknownVariable, name)
		}
		idx, ok := v.Index(label)
		if !ok {
			return nil, fmt.Errorf("initial state: %w: %q for variable %q", model.ErrUnknownValue, label, name)
		}
		state[name] = idx
	}
	return state, nil
}
