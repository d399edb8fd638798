package catalog

import (
	"errors"
	"testing"

	"bayesnet/internal/bayes"
)

func TestBuiltInNetworksBuild(t *testing.T) {
	for _, entry := range List() {
		t.Run(entry.Name, func(t *testing.T) {
			n, err := entry.Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			for _, v := range n.Variables() {
				if v.CPT == nil {
					t.Fatalf("variable %s has no cpt", v.Name)
				}
			}
		})
	}
}

func TestListIsSorted(t *testing.T) {
	entries := List()
	want := []string{"diamond", "earthquake", "naive-bayes", "vstruct"}
	if len(entries) != len(want) {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	for i, name := range want {
		if entries[i].Name != name {
			t.Fatalf("entry %d: got %s want %s", i, entries[i].Name, name)
		}
	}
}

func TestRegisterAndLookup(t *testing.T) {
	t.Cleanup(resetRegistryForTests)

	custom := Entry{Name: "single", Build: func() (*bayes.Network, error) {
		n := bayes.NewNetwork()
		if err := n.AddVariable("A", []string{"x"}); err != nil {
			return nil, err
		}
		return n, n.AddCPT(nil, "A", bayes.Table{"x": 1})
	}}
	if err := Register(custom); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(custom); !errors.Is(err, ErrNetworkExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
	if _, err := Build("single"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := Get("missing"); !errors.Is(err, ErrNetworkNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
	if err := Register(Entry{Name: "nobuild"}); err == nil {
		t.Fatal("expected missing builder error")
	}
}
