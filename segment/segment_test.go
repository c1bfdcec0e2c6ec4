package segment

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektordb/vektor/index"
	"github.com/vektordb/vektor/index/hnsw"
	"github.com/vektordb/vektor/resource"
)

func randomVectors(seed int64, n, dim int) [][]float32 {
	rng := rand.New(rand.NewSource(seed))
	vectors := make([][]float32, n)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()*2 - 1
		}
		vectors[i] = v
	}
	return vectors
}

func newTestManager(t *testing.T, capacity, segmentSize int, optFns ...func(o *Options)) *Manager {
	t.Helper()
	seed := int64(99)
	m, err := NewManager(append([]func(o *Options){func(o *Options) {
		o.Capacity = capacity
		o.SegmentSize = segmentSize
		o.Index.Dimension = 16
		o.Index.RandomSeed = &seed
	}}, optFns...)...)
	require.NoError(t, err)
	return m
}

func TestPartition(t *testing.T) {
	assert.Nil(t, Partition(0, 10, 4))
	assert.Equal(t, []int{10}, Partition(10, 10, 4))
	assert.Equal(t, []int{10, 10, 5}, Partition(25, 10, 4))
	// Cap at maxSegments: sizes grow instead.
	assert.Equal(t, []int{25, 25}, Partition(50, 10, 2))
	assert.Equal(t, []int{17, 17, 16}, Partition(50, 10, 3))
}

func TestBuildBulkAndSearch(t *testing.T) {
	m := newTestManager(t, 2000, 250)
	vectors := randomVectors(1, 1000, 16)

	require.NoError(t, m.BuildBulk(context.Background(), vectors))
	assert.Equal(t, 1000, m.Count())
	assert.Equal(t, 4, m.Segments())

	// Self-search across segment boundaries: ids are global collection ids.
	for _, cid := range []int{0, 249, 250, 999} {
		res, err := m.Search(context.Background(), vectors[cid], 1, 0, nil)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, uint32(cid), res[0].ID, "cid %d", cid)
		assert.Equal(t, float32(0), res[0].Distance)
	}
}

func TestMergeEqualsConcatAndSort(t *testing.T) {
	m := newTestManager(t, 1000, 100)
	vectors := randomVectors(2, 400, 16)
	require.NoError(t, m.BuildBulk(context.Background(), vectors))

	q := randomVectors(3, 1, 16)[0]
	k := 20

	merged, err := m.Search(context.Background(), q, k, 0, nil)
	require.NoError(t, err)
	require.Len(t, merged, k)

	// Reference: exact per-segment results concatenated and re-sorted.
	var all []index.SearchResult
	for _, e := range m.segments {
		res, err := e.index.BruteSearch(q, k, nil)
		require.NoError(t, err)
		for j := range res {
			res[j].ID = e.localToCID(res[j].ID)
		}
		all = append(all, res...)
	}
	want := MergeTopK(all, k)

	// Graph search is approximate per segment, but the merge discipline is
	// checked exactly: ascending distances, no duplicates.
	for i := 1; i < len(merged); i++ {
		assert.LessOrEqual(t, merged[i-1].Distance, merged[i].Distance)
	}
	seen := map[uint32]bool{}
	for _, r := range merged {
		assert.False(t, seen[r.ID], "duplicate id %d", r.ID)
		seen[r.ID] = true
	}
	assert.Equal(t, want[0].ID, merged[0].ID)
	assert.Equal(t, want[0].Distance, merged[0].Distance)
}

func TestIncrementalInsertAfterBulk(t *testing.T) {
	m := newTestManager(t, 600, 100)
	vectors := randomVectors(4, 300, 16)
	require.NoError(t, m.BuildBulk(context.Background(), vectors))

	extra := randomVectors(5, 150, 16)
	for i, v := range extra {
		cid, err := m.Insert(v)
		require.NoError(t, err)
		assert.Equal(t, uint32(300+i), cid)
	}
	assert.Equal(t, 450, m.Count())

	// The active segment rolled once at 100 inserts.
	assert.Equal(t, 5, m.Segments())

	res, err := m.Search(context.Background(), extra[42], 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(342), res[0].ID)
}

func TestCapacityEnforced(t *testing.T) {
	m := newTestManager(t, 10, 5)
	vectors := randomVectors(6, 10, 16)
	require.NoError(t, m.BuildBulk(context.Background(), vectors))

	_, err := m.Insert(randomVectors(7, 1, 16)[0])
	var capErr *index.ErrCapacityExceeded
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 10, capErr.Capacity)

	m2 := newTestManager(t, 5, 5)
	err = m2.BuildBulk(context.Background(), randomVectors(8, 6, 16))
	require.ErrorAs(t, err, &capErr)
}

func TestBulkValidatesBeforeBuilding(t *testing.T) {
	m := newTestManager(t, 100, 50)
	vectors := randomVectors(9, 10, 16)
	vectors[7] = vectors[7][:8] // wrong dimension

	err := m.BuildBulk(context.Background(), vectors)
	var dimErr *index.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, m.Segments())
}

func TestFilterSeesCollectionIDs(t *testing.T) {
	m := newTestManager(t, 400, 100)
	vectors := randomVectors(10, 400, 16)
	require.NoError(t, m.BuildBulk(context.Background(), vectors))

	// Admit only the third segment's cids.
	res, err := m.Search(context.Background(), vectors[250], 10, 0, func(cid uint32) bool {
		return cid >= 200 && cid < 300
	})
	require.NoError(t, err)
	require.NotEmpty(t, res)
	for _, r := range res {
		assert.GreaterOrEqual(t, r.ID, uint32(200))
		assert.Less(t, r.ID, uint32(300))
	}
	assert.Equal(t, uint32(250), res[0].ID)
}

func TestVectorByCID(t *testing.T) {
	m := newTestManager(t, 300, 100)
	vectors := randomVectors(11, 250, 16)
	require.NoError(t, m.BuildBulk(context.Background(), vectors))

	v, ok := m.Vector(237)
	require.True(t, ok)
	assert.Equal(t, vectors[237], v)

	_, ok = m.Vector(250)
	assert.False(t, ok)
}

func TestBuildWithController(t *testing.T) {
	ctrl := resource.NewController(resource.Config{MaxBuildWorkers: 2})
	m := newTestManager(t, 1000, 100, func(o *Options) {
		o.Controller = ctrl
	})

	require.NoError(t, m.BuildBulk(context.Background(), randomVectors(12, 500, 16)))
	assert.Equal(t, 500, m.Count())
	assert.Equal(t, 5, m.Segments())
}

func TestSegmentGraphInvariants(t *testing.T) {
	m := newTestManager(t, 500, 100)
	require.NoError(t, m.BuildBulk(context.Background(), randomVectors(13, 500, 16)))

	for _, e := range m.segments {
		require.NoError(t, e.index.Validate())
	}
}

func TestReset(t *testing.T) {
	m := newTestManager(t, 300, 100)
	require.NoError(t, m.BuildBulk(context.Background(), randomVectors(14, 300, 16)))

	m.Reset()
	assert.Equal(t, 0, m.Count())
	assert.Equal(t, 0, m.Segments())

	// Reusable for a fresh bulk load.
	require.NoError(t, m.BuildBulk(context.Background(), randomVectors(15, 200, 16)))
	assert.Equal(t, 200, m.Count())
}

func TestMergeTopK(t *testing.T) {
	in := []index.SearchResult{
		{ID: 1, Distance: 0.9},
		{ID: 2, Distance: 0.1},
		{ID: 3, Distance: 0.5},
		{ID: 4, Distance: 0.3},
	}

	out := MergeTopK(in, 2)
	require.Len(t, out, 2)
	assert.Equal(t, uint32(2), out[0].ID)
	assert.Equal(t, uint32(4), out[1].ID)

	assert.Nil(t, MergeTopK(nil, 3))
	assert.Nil(t, MergeTopK(in, 0))

	all := MergeTopK([]index.SearchResult{{ID: 9, Distance: 2}, {ID: 8, Distance: 1}}, 5)
	require.Len(t, all, 2)
	assert.Equal(t, uint32(8), all[0].ID)
}

func TestDefaultSegmentGeometry(t *testing.T) {
	m, err := NewManager(func(o *Options) {
		o.Capacity = 100
		o.Index.Dimension = 8
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultSegmentSize, m.opts.SegmentSize)
	assert.Equal(t, DefaultMaxSegments, m.opts.MaxSegments)
	assert.Equal(t, hnsw.DefaultM, m.opts.Index.M)
}
