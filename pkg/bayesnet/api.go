// Package bayesnet runs approximate inference over discrete Bayesian
// networks and keeps a history of the runs.
package bayesnet

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"bayesnet/internal/bayes"
	"bayesnet/internal/bp"
	"bayesnet/internal/catalog"
	"bayesnet/internal/ctxlog"
	"bayesnet/internal/factorgraph"
	"bayesnet/internal/gibbs"
	"bayesnet/internal/model"
	"bayesnet/internal/netspec"
	"bayesnet/internal/stats"
	"bayesnet/internal/storage"
)

const (
	defaultRunsDir    = "runs"
	defaultExportsDir = "exports"
	defaultDBPath     = "bayesnet.db"

	defaultBPIterations    = 10
	defaultGibbsIterations = 1000
)

type Options struct {
	StoreKind  string
	DBPath     string
	RunsDir    string
	ExportsDir string
}

type Client struct {
	store       storage.Store
	initialized bool

	runsDir    string
	exportsDir string
}

type RunRequest struct {
	// Network names a built-in network; NetworkFile points at a YAML, JSON
	// or HCL definition. Exactly one is required.
	Network     string
	NetworkFile string
	Algorithm   string
	Iterations  int
	Burnin      int
	Step        int
	// Seed drives the Gibbs sampler. Zero picks one from the clock; the
	// chosen seed is recorded with the run.
	Seed      int64
	Evidence  map[string]string
	InitState map[string]string
}

type Marginal struct {
	Variable      string
	Values        []string
	Probabilities []float64
	Observed      bool
}

type RunSummary struct {
	RunID        string
	ArtifactsDir string
	Network      string
	Algorithm    string
	Seed         int64
	Steps        int
	Final        []Marginal
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID        string
	CreatedAtUTC string
	Network      string
	Algorithm    string
	Iterations   int
	Seed         int64
	Steps        int
}

type GetRunRequest struct {
	RunID  string
	Latest bool
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type CompareRequest struct {
	RunA string
	RunB string
}

type NetworkItem struct {
	Name        string
	Description string
}

// NetworkRequest selects a network the same way RunRequest does.
type NetworkRequest struct {
	Network     string
	NetworkFile string
}

type VariableInfo struct {
	Name     string
	Domain   []string
	Parents  []string
	Children []string
}

type NetworkInfo struct {
	Name      string
	Variables []VariableInfo
	Factors   []string
	Edges     int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	runsDir := opts.RunsDir
	if runsDir == "" {
		runsDir = defaultRunsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		runsDir:    runsDir,
		exportsDir: exportsDir,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Run builds a fresh factor graph for the requested network, conditions it
// on the evidence and runs one inference algorithm over it.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	logger := ctxlog.FromContext(ctx)
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	req.Algorithm = strings.ToLower(strings.TrimSpace(req.Algorithm))
	if req.Algorithm == "" {
		req.Algorithm = model.AlgorithmBP
	}
	if req.Iterations <= 0 {
		switch req.Algorithm {
		case model.AlgorithmGibbs:
			req.Iterations = defaultGibbsIterations
		default:
			req.Iterations = defaultBPIterations
		}
	}
	if req.Step <= 0 {
		req.Step = 1
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	name, net, err := loadNetwork(ctx, req.Network, req.NetworkFile)
	if err != nil {
		return RunSummary{}, err
	}
	graph, err := factorgraph.FromNetwork(net)
	if err != nil {
		return RunSummary{}, err
	}
	if err := graph.Condition(req.Evidence); err != nil {
		return RunSummary{}, err
	}

	logger.Info("Starting inference run.", "network", name, "algorithm", req.Algorithm, "iterations", req.Iterations, "evidence", len(req.Evidence))
	var result model.Result
	switch req.Algorithm {
	case model.AlgorithmBP:
		result, err = bp.New(graph, bp.WithLogger(logger)).Run(req.Iterations)
	case model.AlgorithmGibbs:
		rng := rand.New(rand.NewPCG(uint64(req.Seed), uint64(req.Seed)^0x9e3779b97f4a7c15))
		result, err = gibbs.New(graph, rng, gibbs.WithLogger(logger)).Run(req.Iterations, req.Burnin, req.Step, req.InitState)
	default:
		return RunSummary{}, fmt.Errorf("unsupported algorithm: %s", req.Algorithm)
	}
	if err != nil {
		return RunSummary{}, err
	}

	now := time.Now().UTC()
	params := model.RunParams{
		Iterations: req.Iterations,
		Seed:       req.Seed,
		Evidence:   req.Evidence,
	}
	if req.Algorithm == model.AlgorithmGibbs {
		params.Burnin = req.Burnin
		params.Step = req.Step
		params.InitState = req.InitState
	}
	record := storage.Stamp(model.RunRecord{
		ID:           uuid.NewString(),
		CreatedAtUTC: now.Format(time.RFC3339Nano),
		Network:      name,
		Algorithm:    req.Algorithm,
		Params:       params,
		Result:       result,
	})

	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, err
	}
	runDir, err := stats.WriteRunArtifacts(c.runsDir, record)
	if err != nil {
		return RunSummary{}, err
	}
	if err := stats.AppendRunIndex(c.runsDir, stats.IndexEntry(record)); err != nil {
		return RunSummary{}, err
	}
	logger.Info("Inference run complete.", "run_id", record.ID, "steps", result.Steps(), "artifacts", runDir)

	return RunSummary{
		RunID:        record.ID,
		ArtifactsDir: filepath.Clean(runDir),
		Network:      name,
		Algorithm:    req.Algorithm,
		Seed:         req.Seed,
		Steps:        result.Steps(),
		Final:        finalMarginals(result),
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			RunID:        e.RunID,
			CreatedAtUTC: e.CreatedAtUTC,
			Network:      e.Network,
			Algorithm:    e.Algorithm,
			Iterations:   e.Iterations,
			Seed:         e.Seed,
			Steps:        e.Steps,
		})
	}
	return out, nil
}

// GetRun returns the stored record, falling back to the run's artifacts when
// the store does not outlive the process that wrote it.
func (c *Client) GetRun(ctx context.Context, req GetRunRequest) (model.RunRecord, error) {
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return model.RunRecord{}, err
	}
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}

	record, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if ok {
		return record, nil
	}
	record, ok, err = stats.LoadRunArtifacts(c.runsDir, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return record, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}
	runID, err := c.resolveRunID(req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	exportedDir, err := stats.ExportRunArtifacts(c.runsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

// Compare contrasts the final marginals of two runs, typically the same
// network and evidence under bp and gibbs.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (stats.RunComparison, error) {
	if req.RunA == "" || req.RunB == "" {
		return stats.RunComparison{}, errors.New("compare requires two run ids")
	}
	a, err := c.GetRun(ctx, GetRunRequest{RunID: req.RunA})
	if err != nil {
		return stats.RunComparison{}, err
	}
	b, err := c.GetRun(ctx, GetRunRequest{RunID: req.RunB})
	if err != nil {
		return stats.RunComparison{}, err
	}
	return stats.CompareRuns(a, b)
}

func (c *Client) Networks(_ context.Context) []NetworkItem {
	entries := catalog.List()
	out := make([]NetworkItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, NetworkItem{Name: e.Name, Description: e.Description})
	}
	return out
}

// Describe loads and validates a network and reports its structure. The
// network must have a CPT for every variable.
func (c *Client) Describe(ctx context.Context, req NetworkRequest) (NetworkInfo, error) {
	name, net, err := loadNetwork(ctx, req.Network, req.NetworkFile)
	if err != nil {
		return NetworkInfo{}, err
	}
	graph, err := factorgraph.FromNetwork(net)
	if err != nil {
		return NetworkInfo{}, err
	}

	info := NetworkInfo{Name: name, Edges: len(graph.Edges())}
	for _, v := range net.Variables() {
		info.Variables = append(info.Variables, VariableInfo{
			Name:     v.Name,
			Domain:   append([]string(nil), v.Domain...),
			Parents:  net.Parents(v.Name),
			Children: net.Children(v.Name),
		})
	}
	for _, f := range graph.Factors() {
		info.Factors = append(info.Factors, f.Name())
	}
	return info, nil
}

// Definition returns the network in its file form, ready to be encoded.
func (c *Client) Definition(ctx context.Context, req NetworkRequest) (netspec.Definition, error) {
	name, net, err := loadNetwork(ctx, req.Network, req.NetworkFile)
	if err != nil {
		return netspec.Definition{}, err
	}
	return netspec.FromNetwork(name, net), nil
}

func (c *Client) resolveRunID(runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	entries, err := stats.ListRunIndex(c.runsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", errors.New("no runs available")
	}
	return entries[0].RunID, nil
}

func loadNetwork(ctx context.Context, name, file string) (string, *bayes.Network, error) {
	switch {
	case name != "" && file != "":
		return "", nil, errors.New("use either a network name or a network file")
	case file != "":
		def, err := netspec.Load(ctx, file)
		if err != nil {
			return "", nil, err
		}
		net, err := def.Build()
		if err != nil {
			return "", nil, fmt.Errorf("build %s: %w", file, err)
		}
		return def.Name, net, nil
	case name != "":
		net, err := catalog.Build(name)
		if err != nil {
			return "", nil, err
		}
		return name, net, nil
	default:
		return "", nil, errors.New("a network name or network file is required")
	}
}

func finalMarginals(result model.Result) []Marginal {
	finals := stats.FinalMarginals(result)
	out := make([]Marginal, 0, len(finals))
	for _, f := range finals {
		out = append(out, Marginal{
			Variable:      f.Variable,
			Values:        f.Values,
			Probabilities: f.Probabilities,
			Observed:      f.Observed,
		})
	}
	return out
}

// FinalMarginals returns the last snapshot per variable of a stored run.
func FinalMarginals(record model.RunRecord) []Marginal {
	return finalMarginals(record.Result)
}
