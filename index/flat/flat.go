// Package flat provides an exact linear-scan index. Below a few thousand
// vectors the scan beats a graph on both latency and build cost, so it
// serves as the buffer stage before an HNSW index takes over.
package flat

import (
	"fmt"
	"math"
	"sync"

	"github.com/vektordb/vektor/distance"
	"github.com/vektordb/vektor/index"
	"github.com/vektordb/vektor/internal/queue"
	"github.com/vektordb/vektor/vectorstore"
)

// Compile-time check
var _ index.Index = (*Flat)(nil)

// Options contains configuration options for the flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality. Required.
	Dimension int

	// Capacity is the fixed slot count. Required.
	Capacity int

	// Metric selects the distance metric.
	Metric distance.Metric

	// NormalizeVectors L2-normalizes stored vectors and queries. Forced on
	// for the cosine metric.
	NormalizeVectors bool

	// Precision selects the vector storage representation.
	Precision vectorstore.Precision
}

// DefaultOptions contains the default configuration options for the flat index.
var DefaultOptions = Options{
	Metric:    distance.MetricL2,
	Precision: vectorstore.PrecisionFull,
}

// Flat is an exact index over a fixed-capacity vector store. Searches scan
// every stored vector; with full-precision storage the scan runs on the
// batch distance kernel over the store's contiguous rows.
//
// Searches may run concurrently with each other: each takes its own batch
// distance buffer from a pool.
type Flat struct {
	opts         Options
	vectors      vectorstore.Store
	distanceFunc distance.Func
	scratchPool  sync.Pool // *[]float32 batch distance buffers, len == capacity
}

// New creates a new instance of the flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("flat: invalid dimension %d", opts.Dimension)
	}
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("flat: invalid capacity %d", opts.Capacity)
	}
	if opts.Metric == distance.MetricCosine {
		opts.NormalizeVectors = true
	}

	distanceFunc, err := distance.Provider(opts.Metric, opts.Dimension)
	if err != nil {
		return nil, err
	}

	vectors, err := vectorstore.New(opts.Precision, opts.Dimension, opts.Capacity)
	if err != nil {
		return nil, err
	}

	capacity := opts.Capacity
	return &Flat{
		opts:         opts,
		vectors:      vectors,
		distanceFunc: distanceFunc,
		scratchPool: sync.Pool{
			New: func() any {
				buf := make([]float32, capacity)
				return &buf
			},
		},
	}, nil
}

// Count returns the number of stored vectors.
func (f *Flat) Count() int { return f.vectors.Count() }

// Capacity returns the fixed capacity.
func (f *Flat) Capacity() int { return f.vectors.Capacity() }

// Dimension returns the vector dimensionality.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Vector returns the stored vector for an id.
func (f *Flat) Vector(id uint32) ([]float32, bool) {
	return f.vectors.Get(id)
}

// Reset removes all vectors, keeping the allocated store.
func (f *Flat) Reset() {
	f.vectors.Reset()
}

// Insert adds a vector, returning its dense id.
func (f *Flat) Insert(v []float32) (uint32, error) {
	if err := index.ValidateVector(v, f.opts.Dimension); err != nil {
		return 0, err
	}
	count := f.vectors.Count()
	if count >= f.vectors.Capacity() {
		return 0, &index.ErrCapacityExceeded{Capacity: f.vectors.Capacity()}
	}

	vec := v
	if f.opts.NormalizeVectors {
		normalized, ok := distance.NormalizeL2Copy(v)
		if !ok {
			return 0, fmt.Errorf("flat: cannot normalize zero vector")
		}
		vec = normalized
	}

	id := uint32(count)
	if err := f.vectors.Set(id, vec); err != nil {
		return 0, err
	}
	return id, nil
}

// KNNSearch returns the k nearest neighbors by exact scan. efSearch is
// accepted for interface parity and ignored.
func (f *Flat) KNNSearch(q []float32, k int, _ int, filter index.FilterFunc) ([]index.SearchResult, error) {
	return f.BruteSearch(q, k, filter)
}

// BruteSearch scans all stored vectors and returns the k nearest, closest
// first.
func (f *Flat) BruteSearch(q []float32, k int, filter index.FilterFunc) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, &index.ErrInvalidK{K: k}
	}
	if err := index.ValidateVector(q, f.opts.Dimension); err != nil {
		return nil, err
	}

	count := f.vectors.Count()
	if count == 0 {
		return nil, nil
	}

	query := q
	if f.opts.NormalizeVectors {
		normalized, ok := distance.NormalizeL2Copy(q)
		if !ok {
			return nil, fmt.Errorf("flat: zero query vector")
		}
		query = normalized
	}

	pq := queue.NewMax(k)

	if dense, ok := f.vectors.(*vectorstore.Dense); ok && f.opts.Metric == distance.MetricL2 {
		// One pass of the batch kernel over the contiguous rows, then a
		// top-k sweep over the scores.
		buf := f.scratchPool.Get().(*[]float32)
		out := (*buf)[:count]
		distance.SquaredL2Batch(query, dense.Rows(), f.opts.Dimension, out)
		for id := uint32(0); int(id) < count; id++ {
			if filter != nil && !filter(id) {
				continue
			}
			pushTopK(pq, id, out[id], k)
		}
		f.scratchPool.Put(buf)
	} else {
		dist := f.exactDist(query)
		for id := uint32(0); int(id) < count; id++ {
			if filter != nil && !filter(id) {
				continue
			}
			pushTopK(pq, id, dist(id), k)
		}
	}

	res := make([]index.SearchResult, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		item, _ := pq.Pop()
		res[i] = index.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return res, nil
}

func pushTopK(pq *queue.PriorityQueue, id uint32, d float32, k int) {
	if pq.Len() < k {
		pq.Push(queue.Item{Node: id, Distance: d})
	} else if top, _ := pq.Top(); d < top.Distance {
		pq.Pop()
		pq.Push(queue.Item{Node: id, Distance: d})
	}
}

func (f *Flat) exactDist(query []float32) func(id uint32) float32 {
	if half, ok := f.vectors.(*vectorstore.Half); ok {
		buf := make([]float32, f.opts.Dimension)
		return func(id uint32) float32 {
			if !half.GetInto(id, buf) {
				return math.MaxFloat32
			}
			return f.distanceFunc(query, buf)
		}
	}
	return func(id uint32) float32 {
		v, ok := f.vectors.Get(id)
		if !ok {
			return math.MaxFloat32
		}
		return f.distanceFunc(query, v)
	}
}
