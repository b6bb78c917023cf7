package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acope3/AnaCoDa/internal/mixture"
	"github.com/acope3/AnaCoDa/internal/roc"
	"github.com/acope3/AnaCoDa/testutil"
)

func baseConfig() Config {
	return Config{
		Samples:            20,
		Thinning:           5,
		AdaptiveWidth:      10,
		Seed:               42,
		EstimateExpression: true,
		EstimateCSP:        true,
		EstimateHyper:      true,
		EstimateMixture:    true,
	}
}

func runDriver(t *testing.T, cfg Config, k int, layout mixture.Layout) *Driver {
	t.Helper()
	g := testutil.ObservedGenome(t)
	def := mustDefinition(t, k, layout)
	d, err := New(g, def, roc.New(), cfg)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return d
}

func TestThinningRecordsExactSampleCount(t *testing.T) {
	cfg := baseConfig()
	cfg.Samples = 50
	cfg.Thinning = 10
	d := runDriver(t, cfg, 2, mixture.AllUnique)
	trace := d.Store().Trace()
	if trace.Len() != 50 {
		t.Fatalf("expected 50 snapshots after %d sweeps, got %d", 50*10, trace.Len())
	}
	for i := 0; i < trace.Len(); i++ {
		if want := (i + 1) * 10; trace.At(i).Sweep != want {
			t.Fatalf("snapshot %d at sweep %d, want %d", i, trace.At(i).Sweep, want)
		}
	}
}

func TestDisabledHyperBlockHoldsInitialValues(t *testing.T) {
	cfg := baseConfig()
	cfg.EstimateHyper = false
	cfg.Sphi = []float64{1.3, 0.8}
	cfg.Sepsilon = []float64{0.4, 0.5}
	d := runDriver(t, cfg, 2, mixture.AllUnique)
	trace := d.Store().Trace()
	for i := 0; i < trace.Len(); i++ {
		snap := trace.At(i)
		if snap.Sphi[0] != 1.3 || snap.Sphi[1] != 0.8 {
			t.Fatalf("snapshot %d sphi drifted: %v", i, snap.Sphi)
		}
		if snap.Sepsilon[0] != 0.4 || snap.Sepsilon[1] != 0.5 {
			t.Fatalf("snapshot %d sepsilon drifted: %v", i, snap.Sepsilon)
		}
	}
}

func TestDisabledExpressionBlockHoldsPhi(t *testing.T) {
	cfg := baseConfig()
	cfg.EstimateExpression = false
	d := runDriver(t, cfg, 1, mixture.AllUnique)
	trace := d.Store().Trace()
	for i := 0; i < trace.Len(); i++ {
		for g, phi := range trace.At(i).Phi {
			if phi != 1 {
				t.Fatalf("snapshot %d gene %d phi drifted to %v with expression disabled", i, g, phi)
			}
		}
	}
}

func TestFixObservationNoiseHoldsSepsilon(t *testing.T) {
	cfg := baseConfig()
	cfg.FixObservationNoise = true
	cfg.Sepsilon = []float64{0.25}
	d := runDriver(t, cfg, 1, mixture.AllUnique)
	trace := d.Store().Trace()
	for i := 0; i < trace.Len(); i++ {
		for _, s := range trace.At(i).Sepsilon {
			if s != 0.25 {
				t.Fatalf("snapshot %d sepsilon moved to %v despite fix.observation.noise", i, s)
			}
		}
	}
}

func tracesEqual(a, b *Trace) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if !reflect.DeepEqual(a.At(i), b.At(i)) {
			return false
		}
	}
	return true
}

func TestSameSeedReproducesTraceBitForBit(t *testing.T) {
	for _, only := range []string{"expression", "csp", "hyper", "mix"} {
		t.Run(only, func(t *testing.T) {
			cfg := baseConfig()
			cfg.EstimateExpression = only == "expression"
			cfg.EstimateCSP = only == "csp"
			cfg.EstimateHyper = only == "hyper"
			cfg.EstimateMixture = only == "mix"
			a := runDriver(t, cfg, 2, mixture.AllUnique)
			b := runDriver(t, cfg, 2, mixture.AllUnique)
			if !tracesEqual(a.Store().Trace(), b.Store().Trace()) {
				t.Fatal("re-run with identical seed and configuration diverged")
			}
		})
	}
}

func TestThreadCountDoesNotChangeChain(t *testing.T) {
	cfg := baseConfig()
	cfg.Threads = 1
	a := runDriver(t, cfg, 2, mixture.AllUnique)
	cfg.Threads = 4
	b := runDriver(t, cfg, 2, mixture.AllUnique)
	if !tracesEqual(a.Store().Trace(), b.Store().Trace()) {
		t.Fatal("worker pool size changed the chain")
	}
}

func TestAdaptivePhaseFreezesWidths(t *testing.T) {
	cfg := baseConfig()
	cfg.AdaptiveSweeps = 20 // well before the 100-sweep run ends
	d := runDriver(t, cfg, 1, mixture.AllUnique)
	ctrl := d.Controller()
	if !ctrl.Frozen() {
		t.Fatal("controller must be frozen after the adaptive phase")
	}
	key := ParamKey{Kind: BlockExpression, Index: 0}
	before := ctrl.Width(key)
	for i := 0; i < 50; i++ {
		ctrl.RecordOutcome(key, true)
	}
	ctrl.Adapt()
	if got := ctrl.Width(key); got != before {
		t.Fatalf("width changed after freeze: %v -> %v", before, got)
	}
}

type recordingSink struct {
	snaps  []Snapshot
	failAt int // 0 disables failure injection
}

func (s *recordingSink) WriteSnapshot(_ context.Context, snap Snapshot) error {
	s.snaps = append(s.snaps, snap)
	if s.failAt > 0 && len(s.snaps) == s.failAt {
		return fmt.Errorf("sink full")
	}
	return nil
}

func TestSinkReceivesEverySnapshot(t *testing.T) {
	sink := &recordingSink{}
	cfg := baseConfig()
	cfg.Sink = sink
	d := runDriver(t, cfg, 1, mixture.AllUnique)
	if len(sink.snaps) != d.Store().Trace().Len() {
		t.Fatalf("sink saw %d snapshots, trace has %d", len(sink.snaps), d.Store().Trace().Len())
	}
}

func TestSinkErrorIsFatalButTraceKeepsCommittedSnapshots(t *testing.T) {
	sink := &recordingSink{failAt: 3}
	cfg := baseConfig()
	cfg.Sink = sink
	g := testutil.ObservedGenome(t)
	def := mustDefinition(t, 1, mixture.AllUnique)
	d, err := New(g, def, roc.New(), cfg)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	if err := d.Run(context.Background()); err == nil {
		t.Fatal("expected sink error to surface")
	}
	if d.Store().Trace().Len() != 3 {
		t.Fatalf("expected 3 committed snapshots, got %d", d.Store().Trace().Len())
	}
}

func TestMetricsReportProgress(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := baseConfig()
	cfg.Registerer = reg
	runDriver(t, cfg, 1, mixture.AllUnique)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				found[mf.GetName()] = m.GetCounter().GetValue()
			}
		}
	}
	if got := found["anacoda_sweeps_total"]; got != float64(cfg.Samples*cfg.Thinning) {
		t.Fatalf("expected %d sweeps counted, got %v", cfg.Samples*cfg.Thinning, got)
	}
	if got := found["anacoda_trace_snapshots_total"]; got != float64(cfg.Samples) {
		t.Fatalf("expected %d snapshots counted, got %v", cfg.Samples, got)
	}
}

func TestConfigValidation(t *testing.T) {
	g := testutil.ObservedGenome(t)
	def := mustDefinition(t, 2, mixture.AllUnique)
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zeroSamples", func(c *Config) { c.Samples = 0 }},
		{"negativeThinning", func(c *Config) { c.Thinning = -1 }},
		{"mixturesDisagree", func(c *Config) { c.Mixtures = 3 }},
		{"sphiLength", func(c *Config) { c.Sphi = []float64{1, 1, 1} }},
		{"sphiNonPositive", func(c *Config) { c.Sphi = []float64{1, -0.5} }},
		{"sepsilonLength", func(c *Config) { c.Sepsilon = []float64{0.1, 0.1, 0.1} }},
		{"sepsilonNonPositive", func(c *Config) { c.Sepsilon = []float64{0} }},
		{"assignmentLength", func(c *Config) { c.GeneAssignment = []int{1, 2} }},
		{"assignmentRange", func(c *Config) {
			c.GeneAssignment = []int{1, 2, 1, 2, 1, 3}
		}},
		{"unknownSampling", func(c *Config) { c.MixtureSampling = "fuzzy" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig()
			tc.mutate(&cfg)
			_, err := New(g, def, roc.New(), cfg)
			if err == nil {
				t.Fatal("expected configuration error")
			}
			var ce ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected ConfigError, got %T: %v", err, err)
			}
		})
	}
}

func TestNewRejectsEmptyInputs(t *testing.T) {
	def := mustDefinition(t, 1, mixture.AllUnique)
	if _, err := New(nil, def, roc.New(), baseConfig()); err == nil {
		t.Fatal("expected error for nil genome")
	}
	g := testutil.SmallGenome(t)
	if _, err := New(g, def, nil, baseConfig()); err == nil {
		t.Fatal("expected error for nil model")
	}
}
