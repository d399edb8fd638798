// Package catalog keeps a registry of named example networks.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"bayesnet/internal/bayes"
)

var (
	ErrNetworkExists   = errors.New("network already registered")
	ErrNetworkNotFound = errors.New("network not found")
)

// Builder constructs a fresh network on every call.
type Builder func() (*bayes.Network, error)

type Entry struct {
	Name        string
	Description string
	Build       Builder
}

var registry = struct {
	mu sync.RWMutex
	m  map[string]Entry
}{
	m: make(map[string]Entry),
}

func init() {
	initializeBuiltInNetworks()
}

func initializeBuiltInNetworks() {
	MustRegister(Entry{Name: "vstruct", Description: "X -> Z <- Y with near-certain parents", Build: VStructure})
	MustRegister(Entry{Name: "naive-bayes", Description: "three-sided coin with three binary flips", Build: NaiveBayes})
	MustRegister(Entry{Name: "earthquake", Description: "burglar/earthquake alarm network", Build: Earthquake})
	MustRegister(Entry{Name: "diamond", Description: "A -> B, A -> C, B -> D <- C (one loop)", Build: Diamond})
}

func Register(entry Entry) error {
	if entry.Name == "" {
		return errors.New("network name is required")
	}
	if entry.Build == nil {
		return errors.New("network builder is required")
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if _, exists := registry.m[entry.Name]; exists {
		return fmt.Errorf("%w: %s", ErrNetworkExists, entry.Name)
	}
	registry.m[entry.Name] = entry
	return nil
}

func MustRegister(entry Entry) {
	if err := Register(entry); err != nil {
		panic(err)
	}
}

func Get(name string) (Entry, error) {
	registry.mu.RLock()
	entry, ok := registry.m[name]
	registry.mu.RUnlock()
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNetworkNotFound, name)
	}
	return entry, nil
}

// Build looks up name and constructs its network.
func Build(name string) (*bayes.Network, error) {
	entry, err := Get(name)
	if err != nil {
		return nil, err
	}
	return entry.Build()
}

func List() []Entry {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	entries := make([]Entry, 0, len(registry.m))
	for _, entry := range registry.m {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func resetRegistryForTests() {
	registry.mu.Lock()
	registry.m = make(map[string]Entry)
	registry.mu.Unlock()
	initializeBuiltInNetworks()
}
