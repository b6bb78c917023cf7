// Command anacoda fits the ROC codon-usage model to a genome with adaptive
// MCMC and exports the resulting trace and posterior summaries.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acope3/AnaCoDa/internal/blob"
	"github.com/acope3/AnaCoDa/internal/engine"
	"github.com/acope3/AnaCoDa/internal/export"
	"github.com/acope3/AnaCoDa/internal/mixture"
	"github.com/acope3/AnaCoDa/internal/persistence"
	"github.com/acope3/AnaCoDa/internal/roc"
	"github.com/acope3/AnaCoDa/pkg/genome"
)

var exitFunc = os.Exit

type options struct {
	fasta          string
	expression     string
	run            string
	samples        int
	thinning       int
	adaptiveWidth  int
	adaptiveSweeps int
	mixtures       int
	layout         string
	sampling       string
	sphi           float64
	sepsilon       float64
	fixNoise       bool
	seed           uint64
	threads        int
	estExpression  bool
	estCSP         bool
	estHyper       bool
	estMixture     bool
	export         bool
	metricsAddr    string
}

// main runs the command-line interface using the program arguments and exits
// the process with the status code returned by cli.
func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func cli(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("anacoda", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.fasta, "fasta", "", "path to protein-coding sequences (FASTA, required)")
	fs.StringVar(&opts.expression, "expression", "", "path to observed expression table (CSV, optional)")
	fs.StringVar(&opts.run, "run", "", "run identifier (default: timestamp)")
	fs.IntVar(&opts.samples, "samples", 1000, "number of recorded samples")
	fs.IntVar(&opts.thinning, "thinning", 10, "sweeps per recorded sample")
	fs.IntVar(&opts.adaptiveWidth, "adaptive-width", 100, "sweeps between proposal-width adaptations")
	fs.IntVar(&opts.adaptiveSweeps, "adaptive-sweeps", 0, "length of the adaptive phase in sweeps (0: half the run)")
	fs.IntVar(&opts.mixtures, "mixtures", 1, "number of gene-sets")
	fs.StringVar(&opts.layout, "layout", string(mixture.AllUnique), "category layout: allUnique|mutationShared|selectionShared")
	fs.StringVar(&opts.sampling, "mixture-sampling", string(engine.SampleHard), "assignment sampling: hard|soft")
	fs.Float64Var(&opts.sphi, "sphi", 1, "initial prior scale for synthesis rates")
	fs.Float64Var(&opts.sepsilon, "sepsilon", 0.1, "initial observation-noise scale")
	fs.BoolVar(&opts.fixNoise, "fix-observation-noise", false, "keep the observation-noise scale at its initial value")
	fs.Uint64Var(&opts.seed, "seed", 1, "random seed")
	fs.IntVar(&opts.threads, "threads", 1, "worker pool size for per-gene updates")
	fs.BoolVar(&opts.estExpression, "est-expression", true, "update synthesis rates")
	fs.BoolVar(&opts.estCSP, "est-csp", true, "update codon-specific parameters")
	fs.BoolVar(&opts.estHyper, "est-hyper", true, "update hyperparameters")
	fs.BoolVar(&opts.estMixture, "est-mixture", true, "update mixture assignments")
	fs.BoolVar(&opts.export, "export", true, "export trace and summary artifacts after the run")
	fs.StringVar(&opts.metricsAddr, "metrics-addr", "", "address for the prometheus /metrics endpoint (empty: disabled)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.fasta == "" {
		fmt.Fprintln(stderr, "anacoda: -fasta is required")
		fs.Usage()
		return 2
	}
	if opts.run == "" {
		opts.run = time.Now().UTC().Format("20060102T150405Z")
	}
	logger := log.New(stderr, "anacoda: ", log.LstdFlags)
	if err := run(context.Background(), opts, logger); err != nil {
		logger.Printf("run failed: %v", err)
		return 1
	}
	fmt.Fprintf(stdout, "run %s complete\n", opts.run)
	return 0
}

func run(ctx context.Context, opts options, logger *log.Logger) error {
	g, err := genome.LoadFASTA(opts.fasta)
	if err != nil {
		return err
	}
	if opts.expression != "" {
		if err := g.LoadExpression(opts.expression); err != nil {
			return err
		}
	}
	logger.Printf("loaded %d genes (%d observation sets)", g.Len(), g.ObservationSets())

	def, err := mixture.FromLayout(opts.mixtures, mixture.Layout(opts.layout))
	if err != nil {
		return err
	}

	sink, err := persistence.Open(opts.run)
	if err != nil {
		return err
	}
	if sink != nil {
		defer func() { _ = sink.Close() }()
	}

	reg := prometheus.NewRegistry()
	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("metrics server: %v", err)
			}
		}()
		defer func() { _ = srv.Close() }()
	}

	cfg := engine.Config{
		Mixtures:            opts.mixtures,
		Sphi:                []float64{opts.sphi},
		Sepsilon:            []float64{opts.sepsilon},
		FixObservationNoise: opts.fixNoise,
		Samples:             opts.samples,
		Thinning:            opts.thinning,
		AdaptiveWidth:       opts.adaptiveWidth,
		AdaptiveSweeps:      opts.adaptiveSweeps,
		EstimateExpression:  opts.estExpression,
		EstimateCSP:         opts.estCSP,
		EstimateHyper:       opts.estHyper,
		EstimateMixture:     opts.estMixture,
		MixtureSampling:     engine.MixtureSampling(opts.sampling),
		Seed:                opts.seed,
		Threads:             opts.threads,
		Registerer:          reg,
	}
	if sink != nil {
		cfg.Sink = sink
	}

	d, err := engine.New(g, def, roc.New(), cfg)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := d.Run(ctx); err != nil {
		return err
	}
	trace := d.Store().Trace()
	logger.Printf("%d sweeps in %s, %d snapshots recorded",
		opts.samples*opts.thinning, time.Since(start).Round(time.Millisecond), trace.Len())

	if !opts.export {
		return nil
	}
	store, err := blob.Open(ctx)
	if err != nil {
		return err
	}
	exp, err := export.New(store, opts.run)
	if err != nil {
		return err
	}
	infos, err := exp.ExportTrace(ctx, trace, g)
	if err != nil {
		return err
	}
	summaries, err := exp.ExportSummary(ctx, trace, g)
	if err != nil {
		return err
	}
	for _, info := range append(infos, summaries...) {
		logger.Printf("wrote %s (%d bytes)", info.Key, info.Size)
	}
	return nil
}
