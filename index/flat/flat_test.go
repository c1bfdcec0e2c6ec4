package flat

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektordb/vektor/distance"
	"github.com/vektordb/vektor/index"
	"github.com/vektordb/vektor/vectorstore"
)

func newTestIndex(t *testing.T, dim, capacity int, optFns ...func(o *Options)) *Flat {
	t.Helper()
	f, err := New(append([]func(o *Options){func(o *Options) {
		o.Dimension = dim
		o.Capacity = capacity
	}}, optFns...)...)
	require.NoError(t, err)
	return f
}

func TestExactSearch(t *testing.T) {
	f := newTestIndex(t, 2, 10)

	// Points on a line: distances to origin are trivially ordered.
	for i := 0; i < 5; i++ {
		id, err := f.Insert([]float32{float32(i), 0})
		require.NoError(t, err)
		require.Equal(t, uint32(i), id)
	}

	res, err := f.KNNSearch([]float32{0, 0}, 3, 0, nil)
	require.NoError(t, err)
	require.Len(t, res, 3)

	assert.Equal(t, uint32(0), res[0].ID)
	assert.Equal(t, uint32(1), res[1].ID)
	assert.Equal(t, uint32(2), res[2].ID)
	assert.Equal(t, float32(0), res[0].Distance)
	assert.Equal(t, float32(1), res[1].Distance)
	assert.Equal(t, float32(4), res[2].Distance)
}

func TestBatchKernelMatchesScalarPath(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	dim := 128 // specialized kernel width

	full := newTestIndex(t, dim, 300)
	half := newTestIndex(t, dim, 300, func(o *Options) {
		o.Precision = vectorstore.PrecisionHalf
	})

	vectors := make([][]float32, 300)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
		_, err := full.Insert(v)
		require.NoError(t, err)
		_, err = half.Insert(v)
		require.NoError(t, err)
	}

	q := vectors[123]
	fullRes, err := full.BruteSearch(q, 5, nil)
	require.NoError(t, err)
	halfRes, err := half.BruteSearch(q, 5, nil)
	require.NoError(t, err)

	require.Len(t, fullRes, 5)
	assert.Equal(t, uint32(123), fullRes[0].ID)
	assert.Equal(t, float32(0), fullRes[0].Distance)

	// Half precision perturbs distances slightly but the self-match stays
	// on top.
	require.NotEmpty(t, halfRes)
	assert.Equal(t, uint32(123), halfRes[0].ID)
	assert.Less(t, halfRes[0].Distance, float32(1e-2))
}

func TestFilter(t *testing.T) {
	f := newTestIndex(t, 2, 10)
	for i := 0; i < 10; i++ {
		_, err := f.Insert([]float32{float32(i), 0})
		require.NoError(t, err)
	}

	res, err := f.BruteSearch([]float32{0, 0}, 3, func(id uint32) bool { return id >= 5 })
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, uint32(5), res[0].ID)
}

func TestValidation(t *testing.T) {
	f := newTestIndex(t, 4, 2)

	_, err := f.Insert([]float32{1, 2})
	var dimErr *index.ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)

	_, err = f.Insert([]float32{1, float32(math.Inf(1)), 0, 0})
	var compErr *index.ErrInvalidComponent
	require.ErrorAs(t, err, &compErr)

	_, err = f.BruteSearch([]float32{1, 2, 3, 4}, -1, nil)
	var kErr *index.ErrInvalidK
	require.ErrorAs(t, err, &kErr)

	require.Equal(t, 0, f.Count())
}

func TestCapacity(t *testing.T) {
	f := newTestIndex(t, 2, 2)
	_, err := f.Insert([]float32{1, 0})
	require.NoError(t, err)
	_, err = f.Insert([]float32{2, 0})
	require.NoError(t, err)

	_, err = f.Insert([]float32{3, 0})
	var capErr *index.ErrCapacityExceeded
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 2, capErr.Capacity)
}

func TestEmptySearch(t *testing.T) {
	f := newTestIndex(t, 2, 2)
	res, err := f.BruteSearch([]float32{0, 0}, 5, nil)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestCosine(t *testing.T) {
	f := newTestIndex(t, 2, 4, func(o *Options) {
		o.Metric = distance.MetricCosine
	})

	_, err := f.Insert([]float32{1, 0})
	require.NoError(t, err)
	_, err = f.Insert([]float32{0, 1})
	require.NoError(t, err)
	_, err = f.Insert([]float32{5, 5}) // same direction as (1,1)
	require.NoError(t, err)

	res, err := f.KNNSearch([]float32{1, 1}, 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, uint32(2), res[0].ID)
}

func TestConcurrentSearches(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	dim := 128 // batch kernel path on the dense store
	f := newTestIndex(t, dim, 2000)

	vectors := make([][]float32, 2000)
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = rng.Float32()
		}
		vectors[i] = v
		_, err := f.Insert(v)
		require.NoError(t, err)
	}

	// Golden results per query, computed sequentially.
	queries := []int{0, 500, 1000, 1500, 1999, 42, 777, 1234}
	want := make([][]index.SearchResult, len(queries))
	for i, q := range queries {
		res, err := f.BruteSearch(vectors[q], 10, nil)
		require.NoError(t, err)
		want[i] = res
	}

	// Concurrent searches must not bleed scores into each other.
	var wg sync.WaitGroup
	errs := make([]error, len(queries))
	got := make([][]index.SearchResult, len(queries))
	for i, q := range queries {
		wg.Add(1)
		go func(i, q int) {
			defer wg.Done()
			for iter := 0; iter < 20; iter++ {
				res, err := f.BruteSearch(vectors[q], 10, nil)
				if err != nil {
					errs[i] = err
					return
				}
				got[i] = res
			}
		}(i, q)
	}
	wg.Wait()

	for i := range queries {
		require.NoError(t, errs[i])
		assert.Equal(t, want[i], got[i], "query %d", queries[i])
	}
}

func TestReset(t *testing.T) {
	f := newTestIndex(t, 2, 4)
	_, err := f.Insert([]float32{1, 2})
	require.NoError(t, err)

	f.Reset()
	assert.Equal(t, 0, f.Count())

	id, err := f.Insert([]float32{3, 4})
	require.NoError(t, err)
	assert.Equal(t, uint32(0), id)
}
