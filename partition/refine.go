package partition

import (
	"github.com/tit-sim/sphmesh/graph"
)

// RefineConfig tunes Fiduccia-Mattheyses refinement.
type RefineConfig struct {
	// BalanceEpsilon bounds how far any part's weight may drift from the
	// ideal W* = total / K: |W_k - W*| <= Epsilon * W*. Spec default 0.03.
	BalanceEpsilon float64
	// MaxPasses caps the number of full passes. Spec default 10.
	MaxPasses int
}

// DefaultRefineConfig matches spec.md §4.6's defaults.
func DefaultRefineConfig() RefineConfig {
	return RefineConfig{BalanceEpsilon: 0.03, MaxPasses: 10}
}

// Refine runs Fiduccia-Mattheyses with rollback in place on parts,
// passing over the graph until a pass yields no positive cumulative
// gain or the pass cap is hit.
func Refine(g *graph.Graph, parts Parts, k int, cfg RefineConfig) {
	n := g.NumNodes()
	total := int64(0)
	for v := int32(0); v < int32(n); v++ {
		total += int64(g.NodeWeight(v))
	}
	ideal := float64(total) / float64(k)
	tolerance := cfg.BalanceEpsilon * ideal

	weights := PartWeights(g, parts, k)

	for pass := 0; pass < cfg.MaxPasses; pass++ {
		gained := runPass(g, parts, weights, k, ideal, tolerance)
		if gained <= 0 {
			break
		}
	}
}

// boundary returns nodes with at least one neighbor in a different part.
func boundary(g *graph.Graph, parts Parts) []int32 {
	var out []int32
	for v := int32(0); v < int32(len(parts)); v++ {
		for _, u := range g.Neighbors(v) {
			if parts[u] != parts[v] {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// bestGainMove returns the part maximizing cut-weight reduction for v and
// the resulting gain (may be <= 0).
func bestGainMove(g *graph.Graph, parts Parts, v int32, k int) (int32, int32) {
	cur := parts[v]
	toWeight := make(map[int32]int32, g.Degree(v))
	nb := g.Neighbors(v)
	wt := g.EdgeWeights(v)
	var curWeight int32
	for i, u := range nb {
		p := parts[u]
		if p == cur {
			curWeight += wt[i]
		} else {
			toWeight[p] += wt[i]
		}
	}
	bestPart := cur
	var bestGain int32
	for p, w := range toWeight {
		gain := w - curWeight
		if gain > bestGain || (gain == bestGain && p < bestPart) {
			bestPart, bestGain = p, gain
		}
	}
	return bestPart, bestGain
}

// runPass performs one FM pass: repeatedly move the highest-gain
// unlocked boundary node whose move respects the balance constraint,
// then rolls back to the best-seen prefix. Returns the gain retained
// after rollback.
func runPass(g *graph.Graph, parts Parts, weights []int32, k int, ideal, tolerance float64) int32 {
	locked := make([]bool, len(parts))
	candidates := boundary(g, parts)
	if len(candidates) == 0 {
		return 0
	}

	type move struct {
		node    int32
		from    int32
		to      int32
		gain    int32
		cumGain int32
	}
	var moves []move
	var cumGain int32
	bestCum := int32(0)
	bestPrefix := 0

	active := make(map[int32]bool, len(candidates))
	for _, v := range candidates {
		active[v] = true
	}

	for len(active) > 0 {
		var chosen int32 = -1
		var chosenTo int32
		var chosenGain int32 = -1 << 31
		for v := range active {
			if locked[v] {
				continue
			}
			to, gain := bestGainMove(g, parts, v, k)
			if to == parts[v] {
				continue
			}
			if !withinBalance(weights, parts[v], to, g.NodeWeight(v), k, ideal, tolerance) {
				continue
			}
			if gain > chosenGain || (gain == chosenGain && (chosen == -1 || v < chosen)) {
				chosen, chosenTo, chosenGain = v, to, gain
			}
		}
		if chosen == -1 {
			break
		}

		from := parts[chosen]
		weights[from] -= g.NodeWeight(chosen)
		weights[chosenTo] += g.NodeWeight(chosen)
		parts[chosen] = chosenTo
		locked[chosen] = true
		delete(active, chosen)

		cumGain += chosenGain
		moves = append(moves, move{node: chosen, from: from, to: chosenTo, gain: chosenGain, cumGain: cumGain})
		if cumGain > bestCum {
			bestCum = cumGain
			bestPrefix = len(moves)
		}

		for _, u := range g.Neighbors(chosen) {
			if !locked[u] {
				active[u] = true
			}
		}
	}

	// roll back every move past bestPrefix
	for i := len(moves) - 1; i >= bestPrefix; i-- {
		m := moves[i]
		weights[m.to] -= g.NodeWeight(m.node)
		weights[m.from] += g.NodeWeight(m.node)
		parts[m.node] = m.from
	}

	return bestCum
}

// withinBalance reports whether moving weight w from part a to part b
// keeps both within |W_k - ideal| <= tolerance.
func withinBalance(weights []int32, a, b int32, w int32, k int, ideal, tolerance float64) bool {
	newA := float64(weights[a] - w)
	newB := float64(weights[b] + w)
	return abs(newA-ideal) <= tolerance+1e-9 && abs(newB-ideal) <= tolerance+1e-9
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
