package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"bayesnet/internal/ctxlog"
	"bayesnet/internal/model"
	"bayesnet/internal/netspec"
	"bayesnet/internal/storage"
	"bayesnet/pkg/bayesnet"
)

const (
	runsDir    = "runs"
	exportsDir = "exports"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "compare":
		return runCompare(ctx, args[1:])
	case "networks":
		return runNetworks(ctx, args[1:])
	case "network":
		return runNetwork(ctx, args[1:])
	case "validate":
		return runValidate(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// clientFlags are shared by every command that opens a client.
type clientFlags struct {
	storeKind *string
	dbPath    *string
	runsDir   *string
	logLevel  *string
	logFormat *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		storeKind: fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:    fs.String("db-path", "bayesnet.db", "sqlite database path"),
		runsDir:   fs.String("runs-dir", runsDir, "run artifacts directory"),
		logLevel:  fs.String("log-level", "info", "log level: debug|info|warn|error"),
		logFormat: fs.String("log-format", "text", "log format: text|json"),
	}
}

func (f clientFlags) open(ctx context.Context) (context.Context, *bayesnet.Client, error) {
	logger, err := newLogger(*f.logLevel, *f.logFormat, os.Stderr)
	if err != nil {
		return ctx, nil, err
	}
	ctx = ctxlog.WithLogger(ctx, logger)

	client, err := bayesnet.New(bayesnet.Options{
		StoreKind:  *f.storeKind,
		DBPath:     *f.dbPath,
		RunsDir:    *f.runsDir,
		ExportsDir: exportsDir,
	})
	if err != nil {
		return ctx, nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return ctx, nil, err
	}
	return ctx, client, nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	network := fs.String("network", "", "built-in network name")
	networkFile := fs.String("file", "", "network definition file (.yaml|.yml|.json|.hcl)")
	algorithm := fs.String("alg", model.AlgorithmBP, "inference algorithm: bp|gibbs")
	iterations := fs.Int("iters", 0, "bp iterations or gibbs samples (0 uses the algorithm default)")
	burnin := fs.Int("burnin", 0, "gibbs updates discarded before recording")
	step := fs.Int("step", 1, "gibbs recording interval")
	seed := fs.Int64("seed", 0, "gibbs rng seed (0 picks one)")
	evidence := assignments{}
	fs.Var(&evidence, "evidence", "observation var=value (repeatable, comma separated)")
	initState := assignments{}
	fs.Var(&initState, "init", "gibbs initial state var=value (repeatable, comma separated)")
	jsonOut := fs.Bool("json", false, "emit final marginals as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if *configPath == "" {
		req = bayesnet.RunRequest{
			Network:     *network,
			NetworkFile: *networkFile,
			Algorithm:   *algorithm,
			Iterations:  *iterations,
			Burnin:      *burnin,
			Step:        *step,
			Seed:        *seed,
			Evidence:    evidence,
			InitState:   initState,
		}
	} else {
		overrideFromFlags(&req, setFlags, map[string]any{
			"network":  *network,
			"file":     *networkFile,
			"alg":      *algorithm,
			"iters":    *iterations,
			"burnin":   *burnin,
			"step":     *step,
			"seed":     *seed,
			"evidence": map[string]string(evidence),
			"init":     map[string]string(initState),
		})
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary)
	}
	fmt.Printf("run completed run_id=%s network=%s alg=%s steps=%d seed=%d\n", summary.RunID, summary.Network, summary.Algorithm, summary.Steps, summary.Seed)
	printMarginals(summary.Final)
	fmt.Printf("artifacts_dir=%s\n", filepath.Clean(summary.ArtifactsDir))
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	items, err := client.Runs(ctx, bayesnet.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(items)
	}
	if len(items) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, item := range items {
		fmt.Printf("run_id=%s created_at=%s network=%s alg=%s iters=%d steps=%d seed=%d\n",
			item.RunID, item.CreatedAtUTC, item.Network, item.Algorithm, item.Iterations, item.Steps, item.Seed)
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show the most recent run")
	trajectory := fs.Bool("trajectory", false, "print every recorded step, not only the last")
	jsonOut := fs.Bool("json", false, "emit the full run record as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("show requires --run-id or --latest")
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.GetRun(ctx, bayesnet.GetRunRequest{RunID: *runID, Latest: *latest})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(record)
	}

	fmt.Printf("run_id=%s created_at=%s network=%s alg=%s iters=%d steps=%d seed=%d\n",
		record.ID, record.CreatedAtUTC, record.Network, record.Algorithm, record.Params.Iterations, record.Result.Steps(), record.Params.Seed)
	if len(record.Params.Evidence) > 0 {
		fmt.Printf("evidence=%s\n", assignments(record.Params.Evidence).String())
	}
	if *trajectory {
		for _, m := range bayesnet.FinalMarginals(record) {
			for step, dist := range record.Result.Marginals[m.Variable] {
				fmt.Printf("variable=%s step=%d %s\n", m.Variable, step, formatDistribution(m.Values, dist))
			}
		}
		return nil
	}
	printMarginals(bayesnet.FinalMarginals(record))
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run from run index")
	outDir := fs.String("out", exportsDir, "export output directory")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("export requires --run-id or --latest")
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, bayesnet.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runCompare(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("compare", flag.ContinueOnError)
	runA := fs.String("a", "", "first run id")
	runB := fs.String("b", "", "second run id")
	jsonOut := fs.Bool("json", false, "emit comparison as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	cmp, err := client.Compare(ctx, bayesnet.CompareRequest{RunA: *runA, RunB: *runB})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(cmp)
	}
	fmt.Printf("compare run_a=%s run_b=%s max_abs=%.6f\n", cmp.RunA, cmp.RunB, cmp.MaxAbs)
	for _, v := range cmp.Variables {
		fmt.Printf("variable=%s max_abs=%.6f total_variation=%.6f\n", v.Variable, v.MaxAbs, v.TotalVariation)
	}
	for _, name := range cmp.OnlyInRunA {
		fmt.Printf("only_in_run_a=%s\n", name)
	}
	for _, name := range cmp.OnlyInRunB {
		fmt.Printf("only_in_run_b=%s\n", name)
	}
	return nil
}

func runNetworks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("networks", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit networks as JSON")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	networks := client.Networks(ctx)
	if *jsonOut {
		return writeJSON(networks)
	}
	for _, n := range networks {
		fmt.Printf("name=%s description=%q\n", n.Name, n.Description)
	}
	return nil
}

// runNetwork prints a network definition, which also converts between
// file formats.
func runNetwork(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("network", flag.ContinueOnError)
	network := fs.String("network", "", "built-in network name")
	networkFile := fs.String("file", "", "network definition file")
	formatName := fs.String("format", string(netspec.FormatYAML), "output format: yaml|json|hcl")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	format, err := netspec.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	def, err := client.Definition(ctx, bayesnet.NetworkRequest{Network: *network, NetworkFile: *networkFile})
	if err != nil {
		return err
	}
	return def.Encode(os.Stdout, format)
}

func runValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	network := fs.String("network", "", "built-in network name")
	networkFile := fs.String("file", "", "network definition file")
	cf := addClientFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *network == "" && *networkFile == "" && fs.NArg() > 0 {
		*networkFile = fs.Arg(0)
	}

	ctx, client, err := cf.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	info, err := client.Describe(ctx, bayesnet.NetworkRequest{Network: *network, NetworkFile: *networkFile})
	if err != nil {
		return err
	}
	fmt.Printf("valid network=%s variables=%d factors=%d edges=%d\n", info.Name, len(info.Variables), len(info.Factors), info.Edges)
	for _, v := range info.Variables {
		fmt.Printf("variable=%s domain=%s parents=%s children=%s\n",
			v.Name, strings.Join(v.Domain, ","), strings.Join(v.Parents, ","), strings.Join(v.Children, ","))
	}
	return nil
}

func printMarginals(marginals []bayesnet.Marginal) {
	for _, m := range marginals {
		observed := ""
		if m.Observed {
			observed = " observed=true"
		}
		fmt.Printf("variable=%s %s%s\n", m.Variable, formatDistribution(m.Values, m.Probabilities), observed)
	}
}

func formatDistribution(values []string, probabilities []float64) string {
	parts := make([]string, len(probabilities))
	for i, p := range probabilities {
		label := fmt.Sprint(i)
		if i < len(values) {
			label = values[i]
		}
		parts[i] = fmt.Sprintf("P(%s)=%.6f", label, p)
	}
	return strings.Join(parts, " ")
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: bayesnetctl <run|runs|show|export|compare|networks|network|validate> [flags]", msg)
}
