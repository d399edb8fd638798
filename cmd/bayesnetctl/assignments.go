package main

import (
	"fmt"
	"sort"
	"strings"
)

// assignments collects var=value pairs from repeated or comma separated
// flag values.
type assignments map[string]string

func (a assignments) String() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + a[k]
	}
	return strings.Join(parts, ",")
}

func (a assignments) Set(value string) error {
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, label, ok := strings.Cut(pair, "=")
		name, label = strings.TrimSpace(name), strings.TrimSpace(label)
		if !ok || name == "" || label == "" {
			return fmt.Errorf("expected var=value, got %q", pair)
		}
		a[name] = label
	}
	return nil
}
