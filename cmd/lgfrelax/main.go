package main

import (
	"bufio"
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/latticeworks/lgfrelax/internal/config"
	"github.com/latticeworks/lgfrelax/internal/crystal"
	"github.com/latticeworks/lgfrelax/internal/forces"
	"github.com/latticeworks/lgfrelax/internal/lgf"
	"github.com/latticeworks/lgfrelax/internal/relax"
	"github.com/latticeworks/lgfrelax/internal/storage"
	"github.com/latticeworks/lgfrelax/internal/tui"
)

var (
	dataDir     string
	configFile  string
	preset      string
	lgfPath     string
	refGeometry string
	modeFlag    int
	ftol        float64
	maxIter     int
	maxDisp     float64
	forceTable  string
	springK     float64
	outPath     string
	live        bool
	pairLimit   int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "lgfrelax",
		Short: "defect relaxation with lattice Green's function corrections",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".lgfrelax", "run archive directory")

	relaxCmd := &cobra.Command{
		Use:   "relax [geometry]",
		Short: "run the outer relaxation loop on a cell geometry",
		Args:  cobra.ExactArgs(1),
		RunE:  runRelax,
	}
	relaxCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	relaxCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration (quick, production)")
	relaxCmd.Flags().StringVar(&lgfPath, "lgf", "", "lattice Green's function resource file")
	relaxCmd.Flags().StringVar(&refGeometry, "ref", "", "reference geometry for the harmonic toy model")
	relaxCmd.Flags().IntVar(&modeFlag, "mode", -1, "correction mode: 0 off, 1 post-step, 2 pre-step (-1 = auto)")
	relaxCmd.Flags().Float64Var(&ftol, "ftol", config.DefaultFtol, "force tolerance")
	relaxCmd.Flags().IntVar(&maxIter, "max-iter", config.DefaultMaxOuterIter, "max outer iterations")
	relaxCmd.Flags().Float64Var(&maxDisp, "max-disp", config.DefaultMaxDisp, "cap on per-ion correction displacement")
	relaxCmd.Flags().StringVar(&forceTable, "table", "", "static force table file (replaces the toy model)")
	relaxCmd.Flags().Float64Var(&springK, "spring-k", config.DefaultSpringK, "toy model spring stiffness")
	relaxCmd.Flags().StringVar(&outPath, "out", "", "relaxed geometry output path (default <geometry>.relaxed)")
	relaxCmd.Flags().BoolVar(&live, "live", false, "live terminal monitor")

	inspectCmd := &cobra.Command{
		Use:   "inspect [lgf-file]",
		Short: "print LGF resource metadata and loaded pairs",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().IntVar(&pairLimit, "pairs", 20, "max loaded pairs to print (0 = all)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list archived runs",
		RunE:  runList,
	}

	rootCmd.AddCommand(relaxCmd, inspectCmd, listCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func buildConfig(cmd *cobra.Command, geometry string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q (have: %s)", preset, strings.Join(config.ListPresets(), ", "))
		}
		cfg = p
	}
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	cfg.Geometry = geometry
	flags := cmd.Flags()
	if flags.Changed("lgf") {
		cfg.LGF = lgfPath
	}
	if flags.Changed("mode") {
		if modeFlag < 0 {
			cfg.Mode = nil // force auto, overriding any config file value
		} else {
			m := modeFlag
			cfg.Mode = &m
		}
	}
	if flags.Changed("ftol") {
		cfg.Ftol = ftol
	}
	if flags.Changed("max-iter") {
		cfg.MaxIter = maxIter
	}
	if flags.Changed("max-disp") {
		cfg.MaxDisp = maxDisp
	}
	if flags.Changed("table") {
		cfg.ForceTable = forceTable
	}
	if flags.Changed("spring-k") {
		cfg.Model.SpringK = springK
	}
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}

// stepPrinter is the default observer: one line per outer iteration,
// the way the reference driver logged its progress.
type stepPrinter struct{}

func (stepPrinter) OnIteration(it relax.Iteration) {
	fmt.Printf("iter %3d  force max %.3e  force norm %.3e  energy %.6e\n",
		it.Index, it.ForceMax, it.ForceNorm, it.Energy)
}

func runRelax(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	cell, err := crystal.ReadCellFile(cfg.Geometry)
	if err != nil {
		return err
	}
	mode, err := cfg.ResolveMode()
	if err != nil {
		return err
	}

	var tensor *lgf.Tensor
	if mode != relax.Disabled {
		tensor, err = lgf.LoadFile(cfg.LGF, cell.NIons())
		if err != nil {
			return err
		}
		fmt.Printf("loaded LGF %s: region2 [%d,%d], displaced [%d,%d], %d pairs\n",
			cfg.LGF, tensor.Region2().Min, tensor.Region2().Max,
			tensor.Displaced().Min, tensor.Displaced().Max, len(tensor.Pairs()))
	}
	ctrl := relax.NewController(mode, tensor, cell.Basis, cfg.MaxDisp)

	var provider relax.ForceProvider
	if cfg.ForceTable != "" {
		provider, err = forces.ReadTableFile(cfg.ForceTable, cell.NIons())
		if err != nil {
			return err
		}
	} else {
		h := forces.NewHarmonic(cell, cfg.Model.SpringK)
		h.Steps = cfg.Model.CoreSteps
		h.Gamma = cfg.Model.CoreGamma
		if refGeometry != "" {
			ref, err := crystal.ReadCellFile(refGeometry)
			if err != nil {
				return err
			}
			if ref.NIons() != cell.NIons() {
				return fmt.Errorf("reference geometry has %d ions, cell has %d", ref.NIons(), cell.NIons())
			}
			h.Ref = ref.Positions
		}
		provider = h
	}

	driver := relax.NewDriver(ctrl, provider, relax.Params{Ftol: cfg.Ftol, MaxOuterIter: cfg.MaxIter})

	var result *relax.Result
	var runErr error
	if live {
		result, runErr = tui.Run(context.Background(), func(ctx context.Context, obs relax.Observer) (*relax.Result, error) {
			driver.AddObserver(obs)
			return driver.Run(ctx, cell)
		})
	} else {
		driver.AddObserver(stepPrinter{})
		result, runErr = driver.Run(context.Background(), cell)
	}
	if result == nil {
		return runErr
	}

	printSummary(mode, cfg, result)

	store := storage.New(cfg.DataDir)
	if err := store.Init(); err == nil {
		meta := storage.RunMetadata{
			Geometry: cfg.Geometry,
			LGF:      cfg.LGF,
			Mode:     mode.String(),
			Ftol:     cfg.Ftol,
			MaxIter:  cfg.MaxIter,
		}
		if id, err := store.Save(meta, result); err == nil {
			fmt.Printf("archived run %s\n", id)
		}
	}

	out := outPath
	if out == "" {
		out = cfg.Geometry + ".relaxed"
	}
	if err := crystal.WriteCellFile(out, cell); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", out)
	return runErr
}

func printSummary(mode relax.Mode, cfg *config.Config, result *relax.Result) {
	if len(result.ForceMax) > 1 {
		data := make([]float64, len(result.ForceMax))
		for i, f := range result.ForceMax {
			data[i] = math.Log10(math.Max(f, 1e-16))
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("log10 max force per iteration"),
		))
		fmt.Println()
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODE\tITERATIONS\tCONVERGED\tFINAL FMAX\tFTOL")
	fmt.Fprintf(w, "%s\t%d\t%t\t%.3e\t%.1e\n",
		mode, result.Iterations, result.Converged, result.FinalForceMax, cfg.Ftol)
	w.Flush()
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	nIons, err := peekIonCount(path)
	if err != nil {
		return err
	}
	t, err := lgf.LoadFile(path, nIons)
	if err != nil {
		return err
	}

	fmt.Printf("region 2 range   [%d, %d]\n", t.Region2().Min, t.Region2().Max)
	fmt.Printf("displaced range  [%d, %d]\n", t.Displaced().Min, t.Displaced().Max)
	fmt.Printf("loaded pairs     %d\n", len(t.Pairs()))

	active := 0
	for j := t.Region2().Min; j <= t.Region2().Max; j++ {
		if t.HasData(j) {
			active++
		}
	}
	fmt.Printf("active sites     %d of %d\n\n", active, t.Region2().Len())

	pairs := t.Pairs()
	if pairLimit > 0 && len(pairs) > pairLimit {
		pairs = pairs[:pairLimit]
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REGION2\tDISPLACED\tG(1,1)\tG(2,2)\tG(3,3)")
	for _, p := range pairs {
		fmt.Fprintf(w, "%d\t%d\t%.6e\t%.6e\t%.6e\n",
			p.Region2, p.Displaced,
			t.At(1, p.Region2, 1, p.Displaced),
			t.At(2, p.Region2, 2, p.Displaced),
			t.At(3, p.Region2, 3, p.Displaced))
	}
	w.Flush()
	if len(pairs) < len(t.Pairs()) {
		fmt.Printf("... %d more\n", len(t.Pairs())-len(pairs))
	}
	return nil
}

// peekIonCount sizes the tensor for inspection from the metadata line
// alone, since no cell geometry is at hand.
func peekIonCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	if !sc.Scan() || !sc.Scan() {
		return 0, fmt.Errorf("%s: missing metadata line", path)
	}
	fields := strings.Fields(sc.Text())
	if len(fields) != 5 {
		return 0, fmt.Errorf("%s: malformed metadata line", path)
	}
	jMax, err1 := strconv.Atoi(fields[1])
	iMax, err2 := strconv.Atoi(fields[3])
	if err1 != nil || err2 != nil {
		return 0, fmt.Errorf("%s: malformed metadata line", path)
	}
	if iMax > jMax {
		return iMax, nil
	}
	return jMax, nil
}

func runList(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tMODE\tITERS\tCONVERGED\tFINAL FMAX")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%t\t%.3e\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Mode,
			run.Iterations,
			run.Converged,
			run.FinalForceMax)
	}
	return w.Flush()
}
