package main

import (
	"encoding/json"
	"fmt"
	"os"

	"bayesnet/pkg/bayesnet"
)

// loadRunRequestFromConfig reads a JSON run config. Keys mirror the run
// flags in snake case; evidence and init_state are objects of var: value.
func loadRunRequestFromConfig(path string) (bayesnet.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bayesnet.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return bayesnet.RunRequest{}, err
	}

	var req bayesnet.RunRequest
	if v, ok := asString(raw["network"]); ok {
		req.Network = v
	}
	if v, ok := asString(raw["network_file"]); ok {
		req.NetworkFile = v
	}
	if v, ok := asString(raw["algorithm"]); ok {
		req.Algorithm = v
	}
	if v, ok := asInt(raw["iterations"]); ok {
		req.Iterations = v
	}
	if v, ok := asInt(raw["burnin"]); ok {
		req.Burnin = v
	}
	if v, ok := asInt(raw["step"]); ok {
		req.Step = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok, err := asAssignments(raw["evidence"]); err != nil {
		return bayesnet.RunRequest{}, fmt.Errorf("evidence: %w", err)
	} else if ok {
		req.Evidence = v
	}
	if v, ok, err := asAssignments(raw["init_state"]); err != nil {
		return bayesnet.RunRequest{}, fmt.Errorf("init_state: %w", err)
	} else if ok {
		req.InitState = v
	}
	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (bayesnet.RunRequest, error) {
	if configPath == "" {
		return bayesnet.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return bayesnet.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

func overrideFromFlags(req *bayesnet.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "network":
			req.Network = v.(string)
		case "file":
			req.NetworkFile = v.(string)
		case "alg":
			req.Algorithm = v.(string)
		case "iters":
			req.Iterations = v.(int)
		case "burnin":
			req.Burnin = v.(int)
		case "step":
			req.Step = v.(int)
		case "seed":
			req.Seed = v.(int64)
		case "evidence":
			req.Evidence = mergeAssignments(req.Evidence, v.(map[string]string))
		case "init":
			req.InitState = mergeAssignments(req.InitState, v.(map[string]string))
		}
	}
}

// mergeAssignments layers flag pairs over config pairs.
func mergeAssignments(base, over map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

// asAssignments accepts an object whose values are strings, numbers or
// booleans. Numbers keep their JSON spelling so 1 and "1" name the same
// label.
func asAssignments(v any) (map[string]string, bool, error) {
	if v == nil {
		return nil, false, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false, fmt.Errorf("expected an object, got %T", v)
	}
	out := make(map[string]string, len(obj))
	for name, value := range obj {
		switch x := value.(type) {
		case string:
			out[name] = x
		case float64, bool:
			out[name] = fmt.Sprint(x)
		default:
			return nil, false, fmt.Errorf("value for %q must be a string, number or boolean", name)
		}
	}
	return out, true, nil
}
