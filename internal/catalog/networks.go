package catalog

import "bayesnet/internal/bayes"

var binary = []string{"0", "1"}

type variable struct {
	name   string
	domain []string
}

type cpt struct {
	parents  []string
	variable string
	table    bayes.Table
}

func build(vars []variable, cpts []cpt) (*bayes.Network, error) {
	n := bayes.NewNetwork()
	for _, d := range vars {
		if err := n.AddVariable(d.name, d.domain); err != nil {
			return nil, err
		}
	}
	for _, c := range cpts {
		if err := n.AddCPT(c.parents, c.variable, c.table); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// VStructure is X -> Z <- Y where both parents are almost surely 1 and Z is
// almost surely 1 only when both parents are.
func VStructure() (*bayes.Network, error) {
	return build([]variable{
		{"X", binary}, {"Y", binary}, {"Z", binary},
	}, []cpt{
		{nil, "X", bayes.Table{"0": 0.001, "1": 0.999}},
		{nil, "Y", bayes.Table{"0": 0.001, "1": 0.999}},
		{[]string{"X", "Y"}, "Z", bayes.Table{
			bayes.K("0", "0", "0"): 0.99, bayes.K("0", "0", "1"): 0.01,
			bayes.K("0", "1", "0"): 0.99, bayes.K("0", "1", "1"): 0.01,
			bayes.K("1", "0", "0"): 0.99, bayes.K("1", "0", "1"): 0.01,
			bayes.K("1", "1", "0"): 0.001, bayes.K("1", "1", "1"): 0.999,
		}},
	})
}

// NaiveBayes is a three-valued coin with three conditionally independent
// binary flips.
func NaiveBayes() (*bayes.Network, error) {
	flip := bayes.Table{
		bayes.K("a", "H"): 0.2, bayes.K("a", "T"): 0.8,
		bayes.K("b", "H"): 0.6, bayes.K("b", "T"): 0.4,
		bayes.K("c", "H"): 0.8, bayes.K("c", "T"): 0.2,
	}
	coin := []string{"Coin"}
	return build([]variable{
		{"Coin", []string{"a", "b", "c"}},
		{"X1", []string{"H", "T"}}, {"X2", []string{"H", "T"}}, {"X3", []string{"H", "T"}},
	}, []cpt{
		{nil, "Coin", bayes.Table{"a": 1.0 / 3, "b": 1.0 / 3, "c": 1.0 / 3}},
		{coin, "X1", flip},
		{coin, "X2", flip},
		{coin, "X3", flip},
	})
}

func Earthquake() (*bayes.Network, error) {
	return build([]variable{
		{"Earthquake", binary}, {"Burglar", binary}, {"Radio", binary},
		{"Alarm", binary}, {"Phone", binary},
	}, []cpt{
		{nil, "Earthquake", bayes.Table{"0": 0.999, "1": 0.001}},
		{nil, "Burglar", bayes.Table{"0": 0.999, "1": 0.001}},
		{[]string{"Burglar", "Earthquake"}, "Alarm", bayes.Table{
			bayes.K("0", "0", "0"): 0.999, bayes.K("0", "0", "1"): 0.001,
			bayes.K("1", "0", "0"): 0.00999, bayes.K("1", "0", "1"): 0.99001,
			bayes.K("0", "1", "0"): 0.98901, bayes.K("0", "1", "1"): 0.01099,
			bayes.K("1", "1", "0"): 0.0098901, bayes.K("1", "1", "1"): 0.9901099,
		}},
		{[]string{"Alarm"}, "Phone", bayes.Table{
			bayes.K("0", "0"): 1, bayes.K("0", "1"): 0,
			bayes.K("1", "0"): 0.3, bayes.K("1", "1"): 0.7,
		}},
		{[]string{"Earthquake"}, "Radio", bayes.Table{
			bayes.K("0", "0"): 1, bayes.K("0", "1"): 0,
			bayes.K("1", "0"): 0.5, bayes.K("1", "1"): 0.5,
		}},
	})
}

// Diamond has an undirected cycle A-B-D-C-A, so its factor graph is loopy.
func Diamond() (*bayes.Network, error) {
	return build([]variable{
		{"A", binary}, {"B", binary}, {"C", binary}, {"D", binary},
	}, []cpt{
		{nil, "A", bayes.Table{"0": 0.4, "1": 0.6}},
		{[]string{"A"}, "B", bayes.Table{
			bayes.K("0", "0"): 0.7, bayes.K("0", "1"): 0.3,
			bayes.K("1", "0"): 0.2, bayes.K("1", "1"): 0.8,
		}},
		{[]string{"A"}, "C", bayes.Table{
			bayes.K("0", "0"): 0.9, bayes.K("0", "1"): 0.1,
			bayes.K("1", "0"): 0.4, bayes.K("1", "1"): 0.6,
		}},
		{[]string{"B", "C"}, "D", bayes.Table{
			bayes.K("0", "0", "0"): 0.95, bayes.K("0", "0", "1"): 0.05,
			bayes.K("0", "1", "0"): 0.5, bayes.K("0", "1", "1"): 0.5,
			bayes.K("1", "0", "0"): 0.6, bayes.K("1", "0", "1"): 0.4,
			bayes.K("1", "1", "0"): 0.1, bayes.K("1", "1", "1"): 0.9,
		}},
	})
}
