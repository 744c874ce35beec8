package main

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/orneryd/markovnet/pkg/algebra"
	"github.com/orneryd/markovnet/pkg/config"
	"github.com/orneryd/markovnet/pkg/evidence"
	"github.com/orneryd/markovnet/pkg/network"
	"github.com/orneryd/markovnet/pkg/operations"
	"github.com/orneryd/markovnet/pkg/pool"
	"github.com/orneryd/markovnet/pkg/storage"
	"github.com/orneryd/markovnet/pkg/variable"
)

// app carries the settings resolved before every command.
type app struct {
	configPath string
	verbose    bool
	metrics    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "markovnet",
		Short: "markovnet - probabilistic graphical network toolkit",
		Long: `markovnet loads Bayesian networks, influence diagrams and Markov
networks from YAML and runs the core network operations on them.

Features:
  • Constraint-checked network editing with undo/redo
  • Concurrent potential multiplication and marginalization
  • Barren and d-separated node pruning
  • Numeric to finite-states conversion
  • Versioned network snapshots in BadgerDB`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.metrics {
				return nil
			}
			return dumpMetrics(cmd.ErrOrStderr())
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log operations to stderr")
	rootCmd.PersistentFlags().BoolVar(&a.metrics, "metrics", false, "Print Prometheus metrics to stderr when done")

	// Version command
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "markovnet v%s (%s)\n", version, commit)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "info [network.yaml]",
		Short: "Summarize a network and check its constraints",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runInfo,
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "sort [network.yaml]",
		Short: "Print the nodes in topological order",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runSort,
	})

	pruneCmd := &cobra.Command{
		Use:   "prune [network.yaml]",
		Short: "Remove barren and unreachable nodes",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runPrune,
	}
	pruneCmd.Flags().StringSlice("interest", nil, "Variables of interest (comma separated)")
	pruneCmd.Flags().String("evidence", "", "Evidence YAML file")
	rootCmd.AddCommand(pruneCmd)

	extendCmd := &cobra.Command{
		Use:   "extend [network.yaml]",
		Short: "Propagate deterministic findings through the network",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runExtend,
	}
	extendCmd.Flags().String("evidence", "", "Evidence YAML file")
	extendCmd.Flags().Float64("cycle-length", 1, "Cycle length passed to the inducers")
	rootCmd.AddCommand(extendCmd)

	convertCmd := &cobra.Command{
		Use:   "convert [network.yaml]",
		Short: "Turn numeric chance variables into finite-states variables",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runConvert,
	}
	convertCmd.Flags().String("evidence", "", "Evidence YAML file")
	rootCmd.AddCommand(convertCmd)

	multiplyCmd := &cobra.Command{
		Use:   "multiply [network.yaml]",
		Short: "Multiply every potential, optionally keeping only some variables",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runMultiply,
	}
	multiplyCmd.Flags().StringSlice("keep", nil, "Variables to keep (default: all)")
	multiplyCmd.Flags().String("evidence", "", "Evidence YAML file")
	multiplyCmd.Flags().Int("workers", 0, "Worker goroutines (default: from config)")
	rootCmd.AddCommand(multiplyCmd)

	boundsCmd := &cobra.Command{
		Use:   "bounds [network.yaml] [utility]",
		Short: "Print the range of a utility node",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runBounds,
	}
	rootCmd.AddCommand(boundsCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "dot [network.yaml]",
		Short: "Render the network graph in Graphviz DOT",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runDOT,
	})

	saveCmd := &cobra.Command{
		Use:   "save [network.yaml]",
		Short: "Store a snapshot of a network",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runSave,
	}
	saveCmd.Flags().String("name", "", "Snapshot name (default: network name)")
	saveCmd.Flags().String("data-dir", "", "Data directory (default: from config)")
	rootCmd.AddCommand(saveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE:  a.runList,
	}
	listCmd.Flags().String("data-dir", "", "Data directory (default: from config)")
	rootCmd.AddCommand(listCmd)

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a stored snapshot as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runShow,
	}
	showCmd.Flags().String("latest", "", "Show the latest snapshot with this name instead of an ID")
	showCmd.Flags().String("data-dir", "", "Data directory (default: from config)")
	rootCmd.AddCommand(showCmd)

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.verbose {
		log.SetOutput(cmd.ErrOrStderr())
	} else {
		log.SetOutput(io.Discard)
	}

	cfg, err := config.LoadFromEnvOrFile(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Runtime.ApplyRuntimeMemory()
	pool.Configure(cfg.PoolConfig())
	a.cfg = cfg
	log.Printf("[markovnet] %s", cfg)
	return nil
}

func dumpMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "markovnet_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// Helpers
// ============================================================================

func loadNetwork(path string) (*network.ProbNet, error) {
	net, err := storage.LoadYAML(path)
	if err != nil {
		return nil, err
	}
	log.Printf("[markovnet] loaded %s", net)
	return net, nil
}

func loadEvidence(cmd *cobra.Command, net *network.ProbNet) (*evidence.Case, error) {
	path, _ := cmd.Flags().GetString("evidence")
	if path == "" {
		return evidence.Empty(), nil
	}
	doc, err := storage.LoadEvidenceYAML(path)
	if err != nil {
		return nil, err
	}
	ec, err := doc.ToCase(net)
	if err != nil {
		return nil, fmt.Errorf("invalid evidence: %w", err)
	}
	log.Printf("[markovnet] evidence %s", ec)
	return ec, nil
}

func lookupVariables(net *network.ProbNet, names []string) ([]*variable.Variable, error) {
	vars := make([]*variable.Variable, 0, len(names))
	for _, name := range names {
		v, err := net.Variable(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func (a *app) openStore(cmd *cobra.Command) (storage.Store, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		dataDir = a.cfg.Storage.DataDir
	}
	if a.cfg.Storage.InMemory {
		return storage.NewMemoryStore(), nil
	}
	log.Printf("[storage] opening %s", dataDir)
	return storage.NewBadgerStoreWithOptions(storage.BadgerOptions{
		DataDir:    dataDir,
		SyncWrites: a.cfg.Storage.SyncWrites,
	})
}

func printYAML(w io.Writer, net *network.ProbNet) error {
	data, err := storage.MarshalYAML(net)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func nodeNames(nodes []*network.ProbNode) []string {
	out := make([]string, len(nodes))
	for i, pn := range nodes {
		out[i] = pn.Name()
	}
	return out
}

// ============================================================================
// Network commands
// ============================================================================

func (a *app) runInfo(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, net)

	names := make([]string, 0, len(net.Constraints()))
	for _, c := range net.Constraints() {
		names = append(names, c.Name())
	}
	fmt.Fprintf(out, "constraints: %s\n", strings.Join(names, ", "))
	if err := net.CheckProbNet(); err != nil {
		fmt.Fprintf(out, "check: %v\n", err)
	} else {
		fmt.Fprintln(out, "check: ok")
	}
	for _, pn := range net.ProbNodes() {
		fmt.Fprintln(out)
		fmt.Fprint(out, net.Describe(pn))
	}
	return nil
}

func (a *app) runSort(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	sorted, err := operations.SortTopologically(net)
	if err != nil {
		return err
	}
	for _, name := range nodeNames(sorted) {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func (a *app) runPrune(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	names, _ := cmd.Flags().GetStringSlice("interest")
	interest, err := lookupVariables(net, names)
	if err != nil {
		return err
	}
	ec, err := loadEvidence(cmd, net)
	if err != nil {
		return err
	}

	pruned := net.Copy()
	barren, err := operations.RemoveBarrenNodes(pruned, interest, ec)
	if err != nil {
		return err
	}
	unreachable, err := operations.RemoveUnreachableNodes(pruned, interest, ec)
	if err != nil {
		return err
	}
	log.Printf("[markovnet] removed barren %v, unreachable %v", nodeNames(barren), nodeNames(unreachable))
	return printYAML(cmd.OutOrStdout(), pruned)
}

func (a *app) runExtend(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	ec, err := loadEvidence(cmd, net)
	if err != nil {
		return err
	}
	cycleLength, _ := cmd.Flags().GetFloat64("cycle-length")
	if err := ec.ExtendEvidence(net, cycleLength); err != nil {
		return err
	}
	for _, f := range ec.Findings() {
		fmt.Fprintln(cmd.OutOrStdout(), f)
	}
	return nil
}

func (a *app) runConvert(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	ec, err := loadEvidence(cmd, net)
	if err != nil {
		return err
	}
	converted, err := operations.ConvertNumericalVariablesToFS(net, ec)
	if err != nil {
		return err
	}
	log.Printf("[markovnet] evidence after conversion %s", ec)
	return printYAML(cmd.OutOrStdout(), converted)
}

func (a *app) runMultiply(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	ec, err := loadEvidence(cmd, net)
	if err != nil {
		return err
	}
	names, _ := cmd.Flags().GetStringSlice("keep")
	keep, err := lookupVariables(net, names)
	if err != nil {
		return err
	}
	params := a.cfg.AlgebraParams()
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		params.Workers = workers
	}

	tables, err := net.TableProjectPotentials(ec)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var result interface{ Format() string }
	if len(keep) == 0 {
		result, err = algebra.Multiply(ctx, tables, params)
	} else {
		kept := make(map[string]bool, len(keep))
		for _, v := range keep {
			kept[v.Name()] = true
		}
		var eliminate []*variable.Variable
		for _, v := range net.Variables() {
			if !kept[v.Name()] && !ec.Contains(v) {
				eliminate = append(eliminate, v)
			}
		}
		result, err = algebra.MultiplyAndMarginalize(ctx, tables, keep, eliminate, params)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), result.Format())
	return nil
}

func (a *app) runBounds(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	pn, err := net.ProbNode(args[1])
	if err != nil {
		return err
	}
	lower, upper, err := operations.UtilityBounds(net, pn)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: [%s, %s]\n", pn.Name(), variable.FormatValue(lower), variable.FormatValue(upper))
	return nil
}

func (a *app) runDOT(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), net.GenerateDOT())
	return nil
}

// ============================================================================
// Snapshot commands
// ============================================================================

func (a *app) runSave(cmd *cobra.Command, args []string) error {
	net, err := loadNetwork(args[0])
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = net.Name()
	}
	doc, err := storage.Encode(net)
	if err != nil {
		return err
	}

	store, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	snap, err := store.Save(cmd.Context(), name, doc)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", name, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", snap.ID, snap.Checksum)
	return nil
}

func (a *app) runList(cmd *cobra.Command, args []string) error {
	store, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	infos, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	for _, info := range infos {
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %-20s  %s  %s\n",
			info.ID, info.Name, info.SavedAt.Format("2006-01-02T15:04:05Z07:00"), info.Checksum[:12])
	}
	return nil
}

func (a *app) runShow(cmd *cobra.Command, args []string) error {
	latest, _ := cmd.Flags().GetString("latest")
	if latest == "" && len(args) == 0 {
		return fmt.Errorf("show needs a snapshot ID or --latest")
	}

	store, err := a.openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var snap *storage.Snapshot
	if latest != "" {
		snap, err = store.Latest(cmd.Context(), latest)
	} else {
		snap, err = store.Load(cmd.Context(), args[0])
	}
	if err != nil {
		return err
	}
	net, err := storage.Decode(snap.Document)
	if err != nil {
		return err
	}
	return printYAML(cmd.OutOrStdout(), net)
}
