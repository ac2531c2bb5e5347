package partition

import (
	"fmt"

	"github.com/tit-sim/sphmesh/coarsen"
	"github.com/tit-sim/sphmesh/graph"
)

// MultilevelConfig tunes the V-cycle's stop conditions and refinement.
type MultilevelConfig struct {
	Coarsener coarsen.Strategy
	Refine    RefineConfig
}

// DefaultMultilevelConfig uses GEM coarsening and the spec's refinement
// defaults.
func DefaultMultilevelConfig() MultilevelConfig {
	return MultilevelConfig{Coarsener: coarsen.GEM, Refine: DefaultRefineConfig()}
}

// Multilevel runs the recursive V-cycle of spec.md §4.7: coarsen until
// either the coarse graph is small enough (<=15*K nodes) or coarsening
// has stalled (<20% reduction), solve the coarsest level with GGP,
// project the solution back level by level, refining at each level.
// vcycle already refines on the top-level graph as its final projection
// step, so Multilevel itself does no additional refinement pass.
func Multilevel(g *graph.Graph, k int, cfg MultilevelConfig) (Parts, error) {
	if k <= 0 {
		return nil, fmt.Errorf("partition: K must be positive, got %d", k)
	}
	if k > g.NumNodes() {
		return nil, fmt.Errorf("partition: K=%d exceeds node count %d", k, g.NumNodes())
	}
	return vcycle(g, k, cfg)
}

func vcycle(g *graph.Graph, k int, cfg MultilevelConfig) (Parts, error) {
	result := coarsen.Coarsen(g, cfg.Coarsener)
	coarseN := result.Coarse.NumNodes()
	fineN := g.NumNodes()

	stopSmall := coarseN <= 15*k
	stopStalled := fineN > 0 && float64(coarseN)/float64(fineN) >= 0.8

	var coarseParts Parts
	var err error
	if stopSmall || stopStalled {
		coarseParts, err = GGP(result.Coarse, k)
	} else {
		coarseParts, err = vcycle(result.Coarse, k, cfg)
	}
	if err != nil {
		return nil, err
	}

	parts := projectParts(result.FineToCoarse, coarseParts)
	Refine(g, parts, k, cfg.Refine)
	return parts, nil
}

// projectParts lifts a coarse-level part assignment back to the fine
// level via fine_to_coarse.
func projectParts(fineToCoarse []int32, coarseParts Parts) Parts {
	parts := make(Parts, len(fineToCoarse))
	for v, c := range fineToCoarse {
		parts[v] = coarseParts[c]
	}
	return parts
}
