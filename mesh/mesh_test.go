package mesh

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tit-sim/sphmesh/config"
	"github.com/tit-sim/sphmesh/partition"
	"github.com/tit-sim/sphmesh/profiler"
)

type fakeParticles struct {
	positions [][]float64
	types     []Type
	partVecs  []PartVec
}

func newFakeParticles(positions [][]float64, types []Type) *fakeParticles {
	return &fakeParticles{positions: positions, types: types, partVecs: make([]PartVec, len(positions))}
}

func (f *fakeParticles) Len() int                  { return len(f.positions) }
func (f *fakeParticles) Position(i int) []float64  { return f.positions[i] }
func (f *fakeParticles) Type(i int) Type           { return f.types[i] }
func (f *fakeParticles) SetPartVec(i int, p PartVec) { f.partVecs[i] = p }
func (f *fakeParticles) PartVec(i int) PartVec     { return f.partVecs[i] }

func lineConfig(n int) config.Config {
	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.NumLevels = 2
	cfg.Domain = config.Domain{Min: []float64{-100}, Max: []float64{100}}
	return cfg
}

func TestUpdateSearchScenarioS1(t *testing.T) {
	// scenario S1
	positions := make([][]float64, 10)
	types := make([]Type, 10)
	for i := range positions {
		positions[i] = []float64{float64(i)}
		types[i] = Fluid
	}
	particles := newFakeParticles(positions, types)

	cfg := lineConfig(10)
	cfg.NumThreads = 1
	m, err := New(cfg)
	require.NoError(t, err)

	radius := func(i int) float64 { return 1.5 }
	require.NoError(t, m.Update(context.Background(), particles, radius))

	assert.Equal(t, []int32{1}, m.Adjacency().Neighbors(0))
	assert.Equal(t, []int32{3, 5}, m.Adjacency().Neighbors(4))
	assert.Equal(t, []int32{8}, m.Adjacency().Neighbors(9))
	assert.Len(t, m.Adjacency().Pairs(), 9)
}

func TestUpdateRejectsNonPositiveRadius(t *testing.T) {
	positions := [][]float64{{0}, {1}}
	particles := newFakeParticles(positions, []Type{Fluid, Fluid})
	cfg := lineConfig(2)
	cfg.NumThreads = 1
	m, err := New(cfg)
	require.NoError(t, err)

	err = m.Update(context.Background(), particles, func(i int) float64 { return 0 })
	assert.Error(t, err)
}

func TestUpdateRejectsThreadsExceedingParticleCount(t *testing.T) {
	positions := [][]float64{{0}, {1}}
	particles := newFakeParticles(positions, []Type{Fluid, Fluid})
	cfg := lineConfig(2)
	cfg.NumThreads = 5
	m, err := New(cfg)
	require.NoError(t, err)

	err = m.Update(context.Background(), particles, func(i int) float64 { return 1 })
	assert.Error(t, err)
}

func TestUpdateFixedParticleMirrorScenarioS5(t *testing.T) {
	// scenario S5: wall at x=0 (fluid domain [-1, 0]), fixed particle at
	// x=0.05 mirrors to -0.05; fluid particle at 0.03 is 0.08 away from
	// the mirror, within 3*radius.
	positions := [][]float64{{0.05}, {0.03}}
	types := []Type{Fixed, Fluid}
	particles := newFakeParticles(positions, types)

	cfg := config.Default()
	cfg.NumThreads = 1
	cfg.NumLevels = 1
	cfg.Domain = config.Domain{Min: []float64{-1}, Max: []float64{0}}
	m, err := New(cfg)
	require.NoError(t, err)

	radius := func(i int) float64 { return 0.03 }
	require.NoError(t, m.Update(context.Background(), particles, radius))

	assert.Contains(t, m.InterpAdjacency().Neighbors(0), int32(1))
}

func TestBlockEdgesPartitionProperty(t *testing.T) {
	// testable property 4: union of bucket contents equals adjacency pairs
	positions := make([][]float64, 16)
	types := make([]Type, 16)
	for i := range positions {
		positions[i] = []float64{float64(i)}
		types[i] = Fluid
	}
	particles := newFakeParticles(positions, types)

	cfg := lineConfig(16)
	cfg.NumThreads = 4
	cfg.NumLevels = 2
	m, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Update(context.Background(), particles, func(i int) float64 { return 1.5 }))

	expected := m.Adjacency().Pairs()
	var got []Pair
	for _, bucket := range m.BlockEdges().All() {
		got = append(got, bucket...)
	}
	assert.ElementsMatch(t, expected, got)
}

func TestLogPartitionSizeMismatchDoesNotPanicWithOrWithoutTarget(t *testing.T) {
	cfg := lineConfig(10)
	cfg.NumThreads = 1
	m, err := New(cfg)
	require.NoError(t, err)
	prof := profiler.Get()

	assert.NotPanics(t, func() { m.logPartitionSizeMismatch(prof, 10) })

	m.cfg.TargetPartitionSize = 2
	assert.NotPanics(t, func() { m.logPartitionSizeMismatch(prof, 10) })
}

func TestBuildPartitionGraphSymmetrizesAsymmetricAdjacency(t *testing.T) {
	m := &ParticleMesh{adjacency: NewAdjacency(10)}
	// 2 -> 5 only; 5 -> 9 only: both one-directional in the raw adjacency.
	m.adjacency.Set(2, []int32{5})
	m.adjacency.Set(5, []int32{9})
	m.adjacency.Set(9, nil)

	g, index := m.buildPartitionGraph([]int32{2, 5, 9})
	require.Equal(t, 3, g.NumNodes())

	l2, l5, l9 := index[2], index[5], index[9]
	assert.Contains(t, g.Neighbors(l2), l5)
	assert.Contains(t, g.Neighbors(l5), l2)
	assert.Contains(t, g.Neighbors(l5), l9)
	assert.Contains(t, g.Neighbors(l9), l5)
}

func TestSecondaryPartitionLabelsEveryInterfaceNode(t *testing.T) {
	// 12-node path graph, all interface, 4 threads: secondary partition
	// should run the multilevel graph partitioner (C4-C7) and label every
	// node into [0, 4).
	positions := make([][]float64, 12)
	m := &ParticleMesh{adjacency: NewAdjacency(12)}
	for i := range positions {
		positions[i] = []float64{float64(i)}
		var nb []int32
		if i > 0 {
			nb = append(nb, int32(i-1))
		}
		if i < 11 {
			nb = append(nb, int32(i+1))
		}
		m.adjacency.Set(i, nb)
	}
	nodes := make([]int32, 12)
	for i := range nodes {
		nodes[i] = int32(i)
	}

	labels, err := m.secondaryPartition(context.Background(), nodes, positions, 4, partition.DefaultMultilevelConfig())
	require.NoError(t, err)
	require.Len(t, labels, 12)
	seen := map[int32]bool{}
	for _, l := range labels {
		assert.GreaterOrEqual(t, l, int32(0))
		assert.Less(t, l, int32(4))
		seen[l] = true
	}
	assert.Len(t, seen, 4)
}

func TestBlockEdgesDisconnectedClustersScenarioS6(t *testing.T) {
	var positions [][]float64
	var types []Type
	for i := 0; i < 4; i++ {
		positions = append(positions, []float64{float64(i)})
		types = append(types, Fluid)
	}
	for i := 0; i < 4; i++ {
		positions = append(positions, []float64{1000 + float64(i)})
		types = append(types, Fluid)
	}
	particles := newFakeParticles(positions, types)

	cfg := config.Default()
	cfg.NumThreads = 2
	cfg.NumLevels = 2
	cfg.Domain = config.Domain{Min: []float64{-10}, Max: []float64{2000}}
	m, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, m.Update(context.Background(), particles, func(i int) float64 { return 1.5 }))

	assert.Empty(t, m.BlockEdges().Bucket(0))
	lastBucket := m.BlockEdges().Bucket(m.BlockEdges().NumBuckets() - 1)
	assert.NotEmpty(t, lastBucket)
}
