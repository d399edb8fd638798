package factorgraph

import (
	"errors"
	"math"
	"testing"

	"bayesnet/internal/bayes"
	"bayesnet/internal/logspace"
	"bayesnet/internal/model"
)

func naiveBayes(t *testing.T) *bayes.Network {
	t.Helper()
	n := bayes.NewNetwork()
	if err := n.AddVariable("Coin", []string{"a", "b", "c"}); err != nil {
		t.Fatalf("add coin: %v", err)
	}
	if err := n.AddCPT(nil, "Coin", bayes.Table{"a": 1.0 / 3, "b": 1.0 / 3, "c": 1.0 / 3}); err != nil {
		t.Fatalf("coin cpt: %v", err)
	}
	for _, name := range []string{"X1", "X2"} {
		if err := n.AddVariable(name, []string{"H", "T"}); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		err := n.AddCPT([]string{"Coin"}, name, bayes.Table{
			bayes.K("a", "H"): 0.2, bayes.K("a", "T"): 0.8,
			bayes.K("b", "H"): 0.6, bayes.K("b", "T"): 0.4,
			bayes.K("c", "H"): 0.8, bayes.K("c", "T"): 0.2,
		})
		if err != nil {
			t.Fatalf("%s cpt: %v", name, err)
		}
	}
	return n
}

func TestAddVariableReindexesDomain(t *testing.T) {
	g := New()
	v, err := g.AddVariable("Coin", []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("add variable: %v", err)
	}
	if v.Size() != 3 {
		t.Fatalf("unexpected size: %d", v.Size())
	}
	for i, label := range []string{"a", "b", "c"} {
		idx, ok := v.Index(label)
		if !ok || idx != i || v.Label(i) != label {
			t.Fatalf("bad mapping for %s: idx=%d ok=%v", label, idx, ok)
		}
	}
	if _, err := g.AddVariable("Coin", []string{"x"}); !errors.Is(err, model.ErrDefinition) {
		t.Fatalf("expected definition error, got %v", err)
	}
}

func TestAddFactorConvertsToLogDomain(t *testing.T) {
	g := New()
	if _, err := g.AddVariable("A", []string{"0", "1"}); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if _, err := g.AddVariable("B", []string{"x", "y", "z"}); err != nil {
		t.Fatalf("add B: %v", err)
	}
	f, err := g.AddFactor([]string{"A", "B"}, bayes.Table{
		bayes.K("0", "x"): 0.5,
		bayes.K("1", "z"): 0,
		bayes.K("1", "y"): 2,
	})
	if err != nil {
		t.Fatalf("add factor: %v", err)
	}
	if f.Rows() != 6 {
		t.Fatalf("unexpected rows: %d", f.Rows())
	}
	if got := f.LogValue([]int{0, 0}); math.Abs(got-math.Log(0.5)) > 1e-12 {
		t.Fatalf("unexpected log value: %f", got)
	}
	if got := f.LogValue([]int{1, 1}); math.Abs(got-math.Log(2)) > 1e-12 {
		t.Fatalf("unexpected log value: %f", got)
	}
	if got := f.LogValue([]int{1, 2}); got != logspace.Zero {
		t.Fatalf("zero potential should use sentinel, got %f", got)
	}
	if got := f.LogValue([]int{0, 1}); got != logspace.Zero {
		t.Fatalf("missing row should use sentinel, got %f", got)
	}

	coords := make([]int, 2)
	f.Coords(5, coords)
	if coords[0] != 1 || coords[1] != 2 {
		t.Fatalf("unexpected coords for row 5: %v", coords)
	}

	a, _ := g.Variable("A")
	b, _ := g.Variable("B")
	if len(a.Factors()) != 1 || len(b.Factors()) != 1 || f.Position(b) != 1 {
		t.Fatal("factor not connected to its scope")
	}
}

func TestAddFactorErrors(t *testing.T) {
	g := New()
	if _, err := g.AddVariable("A", []string{"0", "1"}); err != nil {
		t.Fatalf("add A: %v", err)
	}
	tests := []struct {
		name  string
		vars  []string
		table bayes.Table
		want  error
	}{
		{name: "unknown-variable", vars: []string{"A", "Q"}, table: bayes.Table{}, want: model.ErrUnknownVariable},
		{name: "unknown-label", vars: []string{"A"}, table: bayes.Table{"2": 1}, want: model.ErrInvalidFactor},
		{name: "wrong-arity", vars: []string{"A"}, table: bayes.Table{bayes.K("0", "1"): 1}, want: model.ErrInvalidFactor},
		{name: "negative", vars: []string{"A"}, table: bayes.Table{"0": -1}, want: model.ErrInvalidFactor},
		{name: "repeated-scope", vars: []string{"A", "A"}, table: bayes.Table{}, want: model.ErrInvalidFactor},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.AddFactor(tc.vars, tc.table)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if _, err := g.AddFactor([]string{"A"}, bayes.Table{"0": 1}); err != nil {
		t.Fatalf("add factor: %v", err)
	}
	if _, err := g.AddFactor([]string{"A"}, bayes.Table{"1": 1}); !errors.Is(err, model.ErrDefinition) {
		t.Fatalf("expected duplicate factor error, got %v", err)
	}
}

func TestFromNetworkAddsOneFactorPerVariable(t *testing.T) {
	g, err := FromNetwork(naiveBayes(t))
	if err != nil {
		t.Fatalf("from network: %v", err)
	}
	factors := g.Factors()
	if len(factors) != 3 {
		t.Fatalf("unexpected factor count: %d", len(factors))
	}
	wantScopes := [][]string{{"Coin"}, {"Coin", "X1"}, {"Coin", "X2"}}
	for i, f := range factors {
		got := f.Variables()
		if len(got) != len(wantScopes[i]) {
			t.Fatalf("factor %d: unexpected scope %v", i, got)
		}
		for j := range got {
			if got[j] != wantScopes[i][j] {
				t.Fatalf("factor %d: unexpected scope %v", i, got)
			}
		}
	}
	coin, _ := g.Variable("Coin")
	if len(coin.Factors()) != 3 {
		t.Fatalf("coin should neighbour every factor, got %d", len(coin.Factors()))
	}
	if len(g.Edges()) != 5 {
		t.Fatalf("unexpected edge count: %d", len(g.Edges()))
	}
}

func TestFromNetworkRequiresCPT(t *testing.T) {
	n := bayes.NewNetwork()
	if err := n.AddVariable("A", []string{"0", "1"}); err != nil {
		t.Fatalf("add A: %v", err)
	}
	if _, err := FromNetwork(n); !errors.Is(err, model.ErrDefinition) {
		t.Fatalf("expected definition error, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g, err := FromNetwork(naiveBayes(t))
	if err != nil {
		t.Fatalf("from network: %v", err)
	}
	clone := g.Clone()
	if err := clone.Condition(map[string]string{"X1": "H"}); err != nil {
		t.Fatalf("condition clone: %v", err)
	}
	if len(g.Factors()) != 3 || len(g.Observed()) != 0 {
		t.Fatal("conditioning the clone leaked into the original")
	}
	if len(clone.Factors()) != 4 {
		t.Fatalf("unexpected clone factors: %d", len(clone.Factors()))
	}
	x1, _ := clone.Variable("X1")
	for _, f := range x1.Factors() {
		for _, v := range f.Scope() {
			if orig, _ := g.Variable(v.Name()); orig == v {
				t.Fatal("clone shares variable nodes with the original")
			}
		}
	}
}
