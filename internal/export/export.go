// Package export renders run results (trace series and posterior summaries)
// as CSV artifacts written through a blob.Store.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/acope3/AnaCoDa/internal/blob"
	"github.com/acope3/AnaCoDa/internal/engine"
	"github.com/acope3/AnaCoDa/pkg/genome"
)

// Exporter writes the artifacts of one run under runs/<run>/.
type Exporter struct {
	store blob.Store
	run   string
}

// New wires an exporter over an artifact store.
func New(store blob.Store, run string) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("artifact store required")
	}
	if run == "" {
		return nil, fmt.Errorf("run identifier required")
	}
	return &Exporter{store: store, run: run}, nil
}

func (e *Exporter) key(name string) string {
	return "runs/" + e.run + "/" + name
}

func (e *Exporter) putCSV(ctx context.Context, name, kind string, rows [][]string) (blob.Info, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return blob.Info{}, fmt.Errorf("render %s: %w", name, err)
	}
	info, err := e.store.Put(ctx, e.key(name), &buf, blob.PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"run": e.run, "kind": kind},
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("store %s: %w", name, err)
	}
	return info, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// ExportTrace writes the full recorded series: synthesis rates per gene,
// codon-specific values per category and codon, hyperparameters, and mixture
// assignments. Returns the stored artifact descriptors.
func (e *Exporter) ExportTrace(ctx context.Context, trace *engine.Trace, g *genome.Genome) ([]blob.Info, error) {
	if trace.Len() == 0 {
		return nil, fmt.Errorf("empty trace")
	}
	var infos []blob.Info

	phiRows := [][]string{make([]string, 0, g.Len()+1)}
	phiRows[0] = append(phiRows[0], "sweep")
	for i := 0; i < g.Len(); i++ {
		phiRows[0] = append(phiRows[0], g.Gene(i).ID)
	}
	for i := 0; i < trace.Len(); i++ {
		snap := trace.At(i)
		row := make([]string, 0, g.Len()+1)
		row = append(row, strconv.Itoa(snap.Sweep))
		for _, phi := range snap.Phi {
			row = append(row, formatFloat(phi))
		}
		phiRows = append(phiRows, row)
	}
	info, err := e.putCSV(ctx, "trace/phi.csv", "trace", phiRows)
	if err != nil {
		return nil, err
	}
	infos = append(infos, info)

	codons := genome.ParamCodons()
	cspRows := [][]string{{"sweep", "parameter", "category", "codon", "value"}}
	for i := 0; i < trace.Len(); i++ {
		snap := trace.At(i)
		for c, vals := range snap.Mutation {
			for slot, v := range vals {
				cspRows = append(cspRows, []string{
					strconv.Itoa(snap.Sweep), "mutation", strconv.Itoa(c), codons[slot], formatFloat(v),
				})
			}
		}
		for c, vals := range snap.Selection {
			for slot, v := range vals {
				cspRows = append(cspRows, []string{
					strconv.Itoa(snap.Sweep), "selection", strconv.Itoa(c), codons[slot], formatFloat(v),
				})
			}
		}
	}
	info, err = e.putCSV(ctx, "trace/csp.csv", "trace", cspRows)
	if err != nil {
		return nil, err
	}
	infos = append(infos, info)

	hyperRows := [][]string{{"sweep", "parameter", "index", "value"}}
	for i := 0; i < trace.Len(); i++ {
		snap := trace.At(i)
		for set, v := range snap.Sphi {
			hyperRows = append(hyperRows, []string{strconv.Itoa(snap.Sweep), "sphi", strconv.Itoa(set), formatFloat(v)})
		}
		for o, v := range snap.Sepsilon {
			hyperRows = append(hyperRows, []string{strconv.Itoa(snap.Sweep), "sepsilon", strconv.Itoa(o), formatFloat(v)})
		}
	}
	info, err = e.putCSV(ctx, "trace/hyper.csv", "trace", hyperRows)
	if err != nil {
		return nil, err
	}
	infos = append(infos, info)

	mixRows := [][]string{{"sweep", "gene", "assigned_set", "set", "membership"}}
	for i := 0; i < trace.Len(); i++ {
		snap := trace.At(i)
		for gi, probs := range snap.AssignProb {
			for set, p := range probs {
				mixRows = append(mixRows, []string{
					strconv.Itoa(snap.Sweep), g.Gene(gi).ID,
					strconv.Itoa(snap.Assignment[gi]), strconv.Itoa(set), formatFloat(p),
				})
			}
		}
	}
	info, err = e.putCSV(ctx, "trace/mixture.csv", "trace", mixRows)
	if err != nil {
		return nil, err
	}
	infos = append(infos, info)
	return infos, nil
}

// ExportSummary writes posterior summaries: per-gene synthesis rates with
// mean membership, codon-specific parameters, and hyperparameters.
func (e *Exporter) ExportSummary(ctx context.Context, trace *engine.Trace, g *genome.Genome) ([]blob.Info, error) {
	if trace.Len() == 0 {
		return nil, fmt.Errorf("empty trace")
	}
	var infos []blob.Info
	last := trace.At(trace.Len() - 1)

	phiRows := [][]string{{"gene", "mean", "median", "q05", "q95", "map_set"}}
	for gi := 0; gi < g.Len(); gi++ {
		s := trace.PhiSummary(gi)
		post := trace.MembershipPosterior(gi)
		best := 0
		for set, p := range post {
			if p > post[best] {
				best = set
			}
		}
		phiRows = append(phiRows, []string{
			g.Gene(gi).ID,
			formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Q05), formatFloat(s.Q95),
			strconv.Itoa(best),
		})
	}
	info, err := e.putCSV(ctx, "summary/phi.csv", "summary", phiRows)
	if err != nil {
		return nil, err
	}
	infos = append(infos, info)

	codons := genome.ParamCodons()
	cspRows := [][]string{{"parameter", "category", "codon", "mean", "median", "q05", "q95"}}
	for c := range last.Mutation {
		for slot, codon := range codons {
			s := trace.MutationSummary(c, slot)
			cspRows = append(cspRows, []string{
				"mutation", strconv.Itoa(c), codon,
				formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Q05), formatFloat(s.Q95),
			})
		}
	}
	for c := range last.Selection {
		for slot, codon := range codons {
			s := trace.SelectionSummary(c, slot)
			cspRows = append(cspRows, []string{
				"selection", strconv.Itoa(c), codon,
				formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Q05), formatFloat(s.Q95),
			})
		}
	}
	info, err = e.putCSV(ctx, "summary/csp.csv", "summary", cspRows)
	if err != nil {
		return nil, err
	}
	infos = append(infos, info)

	hyperRows := [][]string{{"parameter", "index", "mean", "median", "q05", "q95"}}
	for set := range last.Sphi {
		s := trace.SphiSummary(set)
		hyperRows = append(hyperRows, []string{
			"sphi", strconv.Itoa(set),
			formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Q05), formatFloat(s.Q95),
		})
	}
	for o := range last.Sepsilon {
		s := trace.SepsilonSummary(o)
		hyperRows = append(hyperRows, []string{
			"sepsilon", strconv.Itoa(o),
			formatFloat(s.Mean), formatFloat(s.Median), formatFloat(s.Q05), formatFloat(s.Q95),
		})
	}
	info, err = e.putCSV(ctx, "summary/hyper.csv", "summary", hyperRows)
	if err != nil {
		return nil, err
	}
	infos = append(infos, info)
	return infos, nil
}
