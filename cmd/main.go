package main // import "kvl"

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/edp1096/resistor-network/internal/config"
	"github.com/edp1096/resistor-network/pkg/analysis"
	"github.com/edp1096/resistor-network/pkg/circuit"
	"github.com/edp1096/resistor-network/pkg/netlist"
	"github.com/edp1096/resistor-network/pkg/plot"
	"github.com/edp1096/resistor-network/pkg/util"
)

var (
	verbose  = flag.Bool("v", false, "print solver progress")
	plotFile = flag.String("plot", "", "save dc sweep plot to file (png, svg, pdf)")
	tol      = flag.Float64("tol", 0, "residual tolerance (overrides KVL_TOLERANCE)")
	maxIter  = flag.Int("maxiter", 0, "newton iteration cap (overrides KVL_MAX_ITER)")
)

func getKeys(m map[string][]float64, prefix string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func printOperatingPoint(net *circuit.Network, solution []float64) {
	fmt.Println("\nSlot Currents:")
	for i, current := range solution {
		fmt.Printf("I%d = %s\n", i+1, util.FormatValueFactor(current, "A"))
	}

	fmt.Println("\nResistors:")
	for _, r := range net.Resistors {
		fmt.Printf("%-6s R=%-12s I=%-12s dV=%s\n", r.GetName(),
			util.FormatValueFactor(r.Resistance(), "ohm"),
			util.FormatValueFactor(r.Current, "A"),
			util.FormatValueFactor(r.DeltaV(), "V"))
	}
}

func printSweep(results map[string][]float64) {
	sweep1 := results["SWEEP1"]
	sweep2, hasNested := results["SWEEP2"]

	fmt.Printf("\nDC Sweep Analysis Results (%d points):\n", len(sweep1))
	fmt.Println("------------------------------------------------")

	currentNames := getKeys(results, "I(")
	for i := range sweep1 {
		if hasNested {
			fmt.Printf("V1=%-9s V2=%-9s  ",
				util.FormatValueFactor(sweep1[i], "V"),
				util.FormatValueFactor(sweep2[i], "V"))
		} else {
			fmt.Printf("V=%-9s  ", util.FormatValueFactor(sweep1[i], "V"))
		}

		for _, name := range currentNames {
			fmt.Printf("%s=%s  ", name, util.FormatValueFactor(results[name][i], "A"))
		}
		fmt.Println()
	}
}

func newAnalyzer(data *netlist.NetlistData) (analysis.Analysis, error) {
	if data.Analysis != netlist.AnalysisDC {
		return analysis.NewKirchhoff(), nil
	}

	param := data.DCParam
	sources := []string{param.Source1}
	starts := []float64{param.Start1}
	stops := []float64{param.Stop1}
	increments := []float64{param.Increment1}
	if param.Source2 != "" {
		// nested sweep
		sources = append(sources, param.Source2)
		starts = append(starts, param.Start2)
		stops = append(stops, param.Stop2)
		increments = append(increments, param.Increment2)
	}

	dc, err := analysis.NewDCSweep(sources, starts, stops, increments)
	if err != nil {
		return nil, err
	}
	return dc, nil
}

// warnUnusedPlot reports a plot request that the analysis cannot honour.
func warnUnusedPlot(analyzer analysis.Analysis, file string, logger *log.Logger) {
	if _, ok := analyzer.(*analysis.DCSweep); !ok && file != "" {
		logger.Printf("warning: -plot %s ignored, the network has no .dc sweep", file)
	}
}

// tunable is satisfied by every analyzer through BaseAnalysis.
type tunable interface {
	SetConvergence(tol float64, maxIter int)
	SetInitialGuess(x0 []float64)
	SetLogger(logger *log.Logger)
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: kvl [-v] [-plot out.png] <network_file>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if *tol > 0 {
		cfg.Solver.Tolerance = *tol
	}
	if *maxIter > 0 {
		cfg.Solver.MaxIter = *maxIter
	}

	// 1. Read network
	data, err := netlist.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Error reading network file: %v", err)
	}

	// 2. Build network
	net, err := circuit.FromNetlist(data)
	if err != nil {
		log.Fatalf("Error building network: %v", err)
	}
	if net.Title != "" {
		fmt.Println(net.Title)
	}

	// 3. Setup analyzer
	analyzer, err := newAnalyzer(data)
	if err != nil {
		log.Fatalf("Error creating analysis: %v", err)
	}
	warnUnusedPlot(analyzer, *plotFile, log.Default())
	t := analyzer.(tunable)
	t.SetConvergence(cfg.Solver.Tolerance, cfg.Solver.MaxIter)
	x0 := make([]float64, net.NumUnknowns())
	for i := range x0 {
		x0[i] = cfg.Solver.InitialGuess
	}
	t.SetInitialGuess(x0)
	if *verbose || cfg.Debug() {
		t.SetLogger(log.Default())
	}

	if err := analyzer.Setup(net); err != nil {
		log.Fatalf("Analysis setup failed: %v", err)
	}

	// 4. Run analysis
	if err := analyzer.Execute(); err != nil {
		log.Fatalf("Analysis execution failed: %v", err)
	}

	// 5. Print result
	switch a := analyzer.(type) {
	case *analysis.Kirchhoff:
		printOperatingPoint(net, a.Solution())
	case *analysis.DCSweep:
		results := a.GetResults()
		printSweep(results)
		if *plotFile != "" {
			if err := plot.SaveSweep(results, net.Title, *plotFile); err != nil {
				log.Fatalf("Error saving plot: %v", err)
			}
			fmt.Printf("\nPlot saved to %s\n", *plotFile)
		}
	}
}
