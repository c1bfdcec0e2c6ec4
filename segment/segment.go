// Package segment partitions a collection across multiple independent HNSW
// sub-graphs.
//
// Bulk loads are split into ceil(N/segmentSize) partitions, capped at
// MaxSegments; each partition is built concurrently in its own goroutine
// while insertion inside a partition stays strictly sequential. Queries fan
// out across all segments and merge by distance. Parallelism lives between
// segments only, which keeps each graph free of write contention.
package segment

import (
	"context"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/vektordb/vektor/index"
	"github.com/vektordb/vektor/index/hnsw"
	"github.com/vektordb/vektor/resource"
)

const (
	// DefaultSegmentSize is the target number of vectors per bulk segment.
	DefaultSegmentSize = 10_000

	// DefaultMaxSegments caps how many bulk segments a load is split into;
	// oversize loads get proportionally larger segments instead.
	DefaultMaxSegments = 16
)

// Options configures the segment manager.
type Options struct {
	// Capacity is the fixed total vector budget across all segments.
	// Required.
	Capacity int

	// SegmentSize is the target vectors per bulk segment.
	SegmentSize int

	// MaxSegments caps the bulk partition count.
	MaxSegments int

	// Index carries the per-segment HNSW configuration (dimension, M,
	// beam widths, quantization, precision). Dimension is required;
	// Capacity is set per segment by the manager.
	Index hnsw.Options

	// Controller limits concurrent segment builds and bulk ingest rate.
	// Optional.
	Controller *resource.Controller
}

// DefaultOptions holds the default options for the segment manager.
var DefaultOptions = Options{
	SegmentSize: DefaultSegmentSize,
	MaxSegments: DefaultMaxSegments,
	Index:       hnsw.DefaultOptions,
}

// entry is one sub-graph plus the set of collection ids it owns.
//
// Collection ids (cids) are dense insertion-order handles. Within a segment
// the local id of a cid is the cid's rank in the owners bitmap, so routing
// both ways is a Rank/Select pair on the bitmap.
type entry struct {
	index  *hnsw.HNSW
	owners *roaring.Bitmap
}

func (e *entry) localToCID(local uint32) uint32 {
	cid, _ := e.owners.Select(local)
	return cid
}

func (e *entry) cidToLocal(cid uint32) (uint32, bool) {
	if !e.owners.Contains(cid) {
		return 0, false
	}
	// Rank counts members <= cid, so the local id is rank-1.
	return uint32(e.owners.Rank(cid)) - 1, true
}

// Manager routes inserts and searches across segments.
//
// Writes require external serialization; searches may run concurrently with
// each other.
type Manager struct {
	opts Options

	mu       sync.RWMutex
	segments []*entry
	active   *entry // absorbs incremental inserts after the bulk load
	count    int
}

// NewManager creates an empty segment manager.
func NewManager(optFns ...func(o *Options)) (*Manager, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("segment: invalid capacity %d", opts.Capacity)
	}
	if opts.SegmentSize <= 0 {
		opts.SegmentSize = DefaultSegmentSize
	}
	if opts.MaxSegments <= 0 {
		opts.MaxSegments = DefaultMaxSegments
	}

	return &Manager{opts: opts}, nil
}

// Count returns the number of stored vectors across all segments.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Segments returns the number of live segments, including the active one.
func (m *Manager) Segments() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.segments)
	if m.active != nil {
		n++
	}
	return n
}

// Capacity returns the fixed total vector budget.
func (m *Manager) Capacity() int {
	return m.opts.Capacity
}

// Partition computes the bulk partition layout for n vectors: the number of
// segments and the size of each (the last may be short).
func Partition(n, segmentSize, maxSegments int) []int {
	if n <= 0 {
		return nil
	}
	numSegments := (n + segmentSize - 1) / segmentSize
	if numSegments > maxSegments {
		numSegments = maxSegments
		segmentSize = (n + numSegments - 1) / numSegments
	}

	sizes := make([]int, 0, numSegments)
	for remaining := n; remaining > 0; remaining -= segmentSize {
		sizes = append(sizes, min(segmentSize, remaining))
	}
	return sizes
}

// BuildBulk partitions vectors and builds one sub-graph per partition
// concurrently. The manager must be empty. Vector i receives collection id
// i; validation of all inputs is the caller's responsibility and happens
// before any goroutine starts.
func (m *Manager) BuildBulk(ctx context.Context, vectors [][]float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count > 0 {
		return fmt.Errorf("segment: bulk build requires an empty manager")
	}
	if len(vectors) > m.opts.Capacity {
		return &index.ErrCapacityExceeded{Capacity: m.opts.Capacity}
	}
	for _, v := range vectors {
		if err := index.ValidateVector(v, m.opts.Index.Dimension); err != nil {
			return err
		}
	}

	sizes := Partition(len(vectors), m.opts.SegmentSize, m.opts.MaxSegments)
	entries := make([]*entry, len(sizes))

	g, gctx := errgroup.WithContext(ctx)

	offset := 0
	for i, size := range sizes {
		i, start, size := i, offset, size
		offset += size

		g.Go(func() error {
			if err := m.opts.Controller.AcquireBuild(gctx); err != nil {
				return err
			}
			defer m.opts.Controller.ReleaseBuild()

			if err := m.opts.Controller.WaitIngest(gctx, size); err != nil {
				return err
			}

			e, err := m.buildSegment(gctx, vectors[start:start+size])
			if err != nil {
				return err
			}
			e.owners.AddRange(uint64(start), uint64(start+size))
			entries[i] = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	m.segments = entries
	m.count = len(vectors)
	return nil
}

// buildSegment constructs one sub-graph by sequential insertion.
func (m *Manager) buildSegment(ctx context.Context, vectors [][]float32) (*entry, error) {
	idxOpts := m.opts.Index
	idxOpts.Capacity = len(vectors)

	h, err := hnsw.New(func(o *hnsw.Options) { *o = idxOpts })
	if err != nil {
		return nil, err
	}

	for i, v := range vectors {
		// Cancellation is checked between insertions; an individual
		// insertion runs to completion.
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if _, err := h.Insert(v); err != nil {
			return nil, err
		}
	}

	return &entry{index: h, owners: roaring.New()}, nil
}

// Insert adds one vector to the active segment, creating or rolling the
// segment as needed. Returns the assigned collection id.
func (m *Manager) Insert(v []float32) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := index.ValidateVector(v, m.opts.Index.Dimension); err != nil {
		return 0, err
	}
	if m.count >= m.opts.Capacity {
		return 0, &index.ErrCapacityExceeded{Capacity: m.opts.Capacity}
	}

	if m.active == nil || m.active.index.Count() >= m.active.index.Capacity() {
		if m.active != nil {
			m.segments = append(m.segments, m.active)
			m.active = nil
		}

		idxOpts := m.opts.Index
		idxOpts.Capacity = min(m.opts.SegmentSize, m.opts.Capacity-m.count)

		h, err := hnsw.New(func(o *hnsw.Options) { *o = idxOpts })
		if err != nil {
			return 0, err
		}
		m.active = &entry{index: h, owners: roaring.New()}
	}

	if _, err := m.active.index.Insert(v); err != nil {
		return 0, err
	}

	cid := uint32(m.count)
	m.active.owners.Add(cid)
	m.count++
	return cid, nil
}

// Search fans the query out across all segments concurrently and merges the
// per-segment results into a global top-k, closest first. Result ids are
// collection ids.
func (m *Manager) Search(ctx context.Context, q []float32, k int, efSearch int, filter index.FilterFunc) ([]index.SearchResult, error) {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.segments)+1)
	entries = append(entries, m.segments...)
	if m.active != nil {
		entries = append(entries, m.active)
	}
	m.mu.RUnlock()

	if len(entries) == 0 {
		if k <= 0 {
			return nil, &index.ErrInvalidK{K: k}
		}
		return nil, nil
	}

	perSegment := make([][]index.SearchResult, len(entries))
	g, _ := errgroup.WithContext(ctx)

	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			var localFilter index.FilterFunc
			if filter != nil {
				localFilter = func(local uint32) bool {
					return filter(e.localToCID(local))
				}
			}

			res, err := e.index.KNNSearch(q, k, efSearch, localFilter)
			if err != nil {
				return err
			}
			for j := range res {
				res[j].ID = e.localToCID(res[j].ID)
			}
			perSegment[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []index.SearchResult
	for _, res := range perSegment {
		all = append(all, res...)
	}
	return MergeTopK(all, k), nil
}

// Vector returns the stored vector for a collection id.
func (m *Manager) Vector(cid uint32) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, e := range m.segments {
		if local, ok := e.cidToLocal(cid); ok {
			return e.index.Vector(local)
		}
	}
	if m.active != nil {
		if local, ok := m.active.cidToLocal(cid); ok {
			return m.active.index.Vector(local)
		}
	}
	return nil, false
}

// Reset drops all segments. Segment pools are not retained; the next bulk
// build allocates fresh ones sized to its partitions.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segments = nil
	m.active = nil
	m.count = 0
}

// Stats returns per-segment graph statistics, bulk segments first, the
// active segment (if any) last.
func (m *Manager) Stats() []hnsw.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make([]hnsw.Stats, 0, len(m.segments)+1)
	for _, e := range m.segments {
		stats = append(stats, e.index.Stats())
	}
	if m.active != nil {
		stats = append(stats, m.active.index.Stats())
	}
	return stats
}
