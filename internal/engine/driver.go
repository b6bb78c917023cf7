package engine

import (
	"context"
	"fmt"

	"github.com/acope3/AnaCoDa/internal/mixture"
	"github.com/acope3/AnaCoDa/pkg/genome"
	"github.com/acope3/AnaCoDa/pkg/model"
)

// Driver runs the configured number of sweeps, applies thinning, records trace
// snapshots, and manages the adaptive-phase boundary. It performs no
// likelihood computation itself; its only output is the populated trace (plus
// whatever the optional sink and registerer observe).
type Driver struct {
	cfg     Config
	ps      *ParameterStore
	ctrl    *ProposalController
	sched   *Scheduler
	metrics *runMetrics
}

// New validates the configuration against the genome and mixture definition
// and assembles a ready-to-run driver. All configuration errors surface here,
// before any sweep executes.
func New(g *genome.Genome, def mixture.Definition, m model.LikelihoodModel, cfg Config) (*Driver, error) {
	if g == nil || g.Len() == 0 {
		return nil, ConfigError{Field: "genome", Reason: "no genes loaded"}
	}
	if m == nil {
		return nil, ConfigError{Field: "model", Reason: "likelihood model required"}
	}
	cfg = cfg.withDefaults(g, def)
	if err := cfg.validate(g, def); err != nil {
		return nil, err
	}
	ps, err := NewParameterStore(g, def, cfg)
	if err != nil {
		return nil, err
	}
	ctrl := NewProposalController(
		g.Len(),
		def.MutationCategories(),
		def.SelectionCategories(),
		def.Sets(),
		g.ObservationSets(),
		cfg.InitialProposalWidth,
	)
	return &Driver{
		cfg:     cfg,
		ps:      ps,
		ctrl:    ctrl,
		sched:   NewScheduler(g, def, m, ps, ctrl, cfg),
		metrics: newRunMetrics(cfg.Registerer),
	}, nil
}

// Store exposes the parameter store, whose trace is the run's artifact.
func (d *Driver) Store() *ParameterStore { return d.ps }

// Controller exposes the proposal controller, mainly for tests inspecting
// width freezing.
func (d *Driver) Controller() *ProposalController { return d.ctrl }

// Run executes Samples*Thinning Gibbs sweeps. Proposal widths adapt every
// AdaptiveWidth sweeps until the adaptive phase ends, then freeze; one
// snapshot is recorded every Thinning sweeps. Errors from the snapshot sink
// are fatal, but the trace keeps every snapshot committed before the failure.
func (d *Driver) Run(ctx context.Context) error {
	total := d.cfg.Samples * d.cfg.Thinning
	for sweep := 1; sweep <= total; sweep++ {
		d.sched.Sweep()
		d.metrics.sweeps.Inc()
		if !d.ctrl.Frozen() && sweep%d.cfg.AdaptiveWidth == 0 {
			d.metrics.observeRates(d.ctrl.Rates())
			d.ctrl.Adapt()
		}
		if !d.ctrl.Frozen() && sweep >= d.cfg.AdaptiveSweeps {
			d.ctrl.Freeze()
		}
		if sweep%d.cfg.Thinning == 0 {
			snap := d.ps.Snapshot(sweep)
			d.metrics.snapshots.Inc()
			if d.cfg.Sink != nil {
				if err := d.cfg.Sink.WriteSnapshot(ctx, snap); err != nil {
					return fmt.Errorf("write snapshot at sweep %d: %w", sweep, err)
				}
			}
		}
	}
	return nil
}
