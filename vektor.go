package vektor

import (
	"context"
	"sync"
	"time"

	"github.com/vektordb/vektor/index"
	"github.com/vektordb/vektor/index/flat"
	"github.com/vektordb/vektor/index/hnsw"
	"github.com/vektordb/vektor/resource"
	"github.com/vektordb/vektor/segment"
	"github.com/vektordb/vektor/vectorstore"
)

// NodeID is the dense internal handle of a stored vector. Node ids are
// assigned in insertion order starting at zero and stay stable for the life
// of the collection.
type NodeID uint32

// Result is one search hit, closest first.
type Result struct {
	// ID is the external identifier supplied at insertion.
	ID string

	// Node is the internal handle.
	Node NodeID

	// Distance to the query under the collection's metric.
	Distance float32
}

type mode int

const (
	modeFlat mode = iota
	modeGraph
	modeSegmented
)

func (m mode) String() string {
	switch m {
	case modeFlat:
		return "flat"
	case modeGraph:
		return "graph"
	case modeSegmented:
		return "segmented"
	default:
		return "unknown"
	}
}

// Collection is a fixed-capacity approximate nearest neighbor index over
// float32 vectors of one dimension.
//
// A collection starts as a flat buffer answered by exact linear scan. When
// it grows past FlatThreshold it migrates once to an HNSW graph. A bulk
// InsertBatch into an empty collection of SegmentThreshold or more vectors
// is instead built as concurrent segments.
//
// Reads may run concurrently; writes are serialized internally.
type Collection struct {
	opts       Options
	dimension  int
	capacity   int
	logger     *Logger
	metrics    MetricsCollector
	controller *resource.Controller

	mu      sync.RWMutex
	mode    mode
	flat    *flat.Flat
	graph   *hnsw.HNSW
	manager *segment.Manager
	ids     []string // node -> external id

	memReserved int64
}

// New creates an empty collection for vectors of the given dimension with a
// fixed capacity.
func New(dimension, capacity int, optFns ...func(o *Options)) (*Collection, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if dimension <= 0 {
		return nil, &ErrInvalidDimension{Dimension: dimension}
	}
	if capacity <= 0 {
		return nil, &ErrInvalidCapacity{Capacity: capacity}
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoopMetricsCollector{}
	}

	c := &Collection{
		opts:       opts,
		dimension:  dimension,
		capacity:   capacity,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		controller: opts.Controller,
		ids:        make([]string, 0, capacity),
	}

	bytesPerComponent := int64(4)
	if opts.Precision == vectorstore.PrecisionHalf {
		bytesPerComponent = 2
	}
	c.memReserved = int64(dimension) * int64(capacity) * bytesPerComponent
	if err := c.controller.AcquireMemory(context.Background(), c.memReserved); err != nil {
		return nil, err
	}

	if err := c.initIndex(); err != nil {
		c.controller.ReleaseMemory(c.memReserved)
		return nil, err
	}
	return c, nil
}

// initIndex installs the starting index: a flat buffer, or a graph directly
// when the flat stage is disabled.
func (c *Collection) initIndex() error {
	if c.opts.FlatThreshold <= 0 {
		g, err := c.newGraph(c.capacity)
		if err != nil {
			return err
		}
		c.graph = g
		c.mode = modeGraph
		return nil
	}

	f, err := flat.New(func(o *flat.Options) {
		o.Dimension = c.dimension
		o.Capacity = min(c.capacity, c.opts.FlatThreshold)
		o.Metric = c.opts.Metric
		o.NormalizeVectors = c.opts.NormalizeVectors
		o.Precision = c.opts.Precision
	})
	if err != nil {
		return err
	}
	c.flat = f
	c.mode = modeFlat
	return nil
}

func (c *Collection) newGraph(capacity int) (*hnsw.HNSW, error) {
	return hnsw.New(func(o *hnsw.Options) {
		o.Dimension = c.dimension
		o.Capacity = capacity
		o.M = c.opts.M
		o.EFConstruction = c.opts.EFConstruction
		o.EFSearch = c.opts.EFSearch
		o.Heuristic = c.opts.Heuristic
		o.Metric = c.opts.Metric
		o.NormalizeVectors = c.opts.NormalizeVectors
		o.Quantized = c.opts.Quantized
		o.QuantizePolicy = c.opts.QuantizePolicy
		o.RerankFactor = c.opts.RerankFactor
		o.Precision = c.opts.Precision
		o.RandomSeed = c.opts.RandomSeed
	})
}

// Insert adds one vector under an external id and returns its node id.
func (c *Collection) Insert(ctx context.Context, id string, vector []float32) (NodeID, error) {
	start := time.Now()

	node, err := func() (NodeID, error) {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.insertLocked(ctx, id, vector)
	}()

	c.metrics.RecordInsert(time.Since(start), err)
	c.logger.LogInsert(ctx, id, node, err)
	return node, err
}

func (c *Collection) insertLocked(ctx context.Context, id string, vector []float32) (NodeID, error) {
	if len(c.ids) >= c.capacity {
		return 0, &ErrCapacityExceeded{Capacity: c.capacity}
	}

	var (
		node uint32
		err  error
	)
	switch c.mode {
	case modeFlat:
		node, err = c.flat.Insert(vector)
	case modeGraph:
		node, err = c.graph.Insert(vector)
	case modeSegmented:
		node, err = c.manager.Insert(vector)
	}
	if err != nil {
		return 0, err
	}

	c.ids = append(c.ids, id)

	if c.mode == modeFlat && c.flat.Count() >= c.opts.FlatThreshold && c.capacity > c.opts.FlatThreshold {
		if err := c.migrateLocked(ctx); err != nil {
			// The triggering vector is already stored and counted; the
			// collection stays on the flat index. Report the assigned id
			// so the caller's view agrees with Count().
			return NodeID(node), err
		}
	}
	return NodeID(node), nil
}

// migrateLocked rebuilds the flat buffer as an HNSW graph, preserving node
// ids by re-inserting in insertion order.
func (c *Collection) migrateLocked(ctx context.Context) error {
	start := time.Now()

	g, err := c.newGraph(c.capacity)
	if err != nil {
		return err
	}
	for node := 0; node < c.flat.Count(); node++ {
		v, _ := c.flat.Vector(uint32(node))
		if _, err := g.Insert(v); err != nil {
			return err
		}
	}

	c.graph = g
	c.flat = nil
	c.mode = modeGraph

	elapsed := time.Since(start)
	c.metrics.RecordMigration(g.Count(), elapsed)
	c.logger.LogMigration(ctx, g.Count(), elapsed)
	return nil
}

// InsertBatch adds vectors under their external ids and returns the assigned
// node ids, in input order.
//
// A batch of SegmentThreshold or more vectors into an empty collection is
// built as concurrent segments; any other batch inserts sequentially. On
// error the sequential path keeps the vectors already inserted and returns
// their node ids alongside the error; the segmented path is all-or-nothing.
func (c *Collection) InsertBatch(ctx context.Context, ids []string, vectors [][]float32) ([]NodeID, error) {
	start := time.Now()

	nodes, bulk, err := c.insertBatch(ctx, ids, vectors)

	c.metrics.RecordBatchInsert(len(nodes), time.Since(start), err)
	c.logger.LogBatchInsert(ctx, len(nodes), bulk, time.Since(start), err)
	return nodes, err
}

func (c *Collection) insertBatch(ctx context.Context, ids []string, vectors [][]float32) ([]NodeID, bool, error) {
	if len(ids) != len(vectors) {
		return nil, false, &ErrBatchMismatch{IDs: len(ids), Vectors: len(vectors)}
	}
	if len(vectors) == 0 {
		return nil, false, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.ids) == 0 && c.opts.SegmentThreshold > 0 && len(vectors) >= c.opts.SegmentThreshold {
		nodes, err := c.bulkBuildLocked(ctx, ids, vectors)
		return nodes, true, err
	}

	nodes := make([]NodeID, 0, len(vectors))
	for i := range vectors {
		node, err := c.insertLocked(ctx, ids[i], vectors[i])
		if err != nil {
			return nodes, false, err
		}
		nodes = append(nodes, node)
	}
	return nodes, false, nil
}

// bulkBuildLocked replaces the empty index with a segmented build of the
// whole batch.
func (c *Collection) bulkBuildLocked(ctx context.Context, ids []string, vectors [][]float32) ([]NodeID, error) {
	start := time.Now()

	m, err := segment.NewManager(func(o *segment.Options) {
		o.Capacity = c.capacity
		o.SegmentSize = c.opts.SegmentSize
		o.MaxSegments = c.opts.MaxSegments
		o.Controller = c.controller
		o.Index.Dimension = c.dimension
		o.Index.M = c.opts.M
		o.Index.EFConstruction = c.opts.EFConstruction
		o.Index.EFSearch = c.opts.EFSearch
		o.Index.Heuristic = c.opts.Heuristic
		o.Index.Metric = c.opts.Metric
		o.Index.NormalizeVectors = c.opts.NormalizeVectors
		o.Index.Quantized = c.opts.Quantized
		o.Index.QuantizePolicy = c.opts.QuantizePolicy
		o.Index.RerankFactor = c.opts.RerankFactor
		o.Index.Precision = c.opts.Precision
		o.Index.RandomSeed = c.opts.RandomSeed
	})
	if err != nil {
		return nil, err
	}
	if err := m.BuildBulk(ctx, vectors); err != nil {
		return nil, err
	}

	c.manager = m
	c.flat = nil
	c.graph = nil
	c.mode = modeSegmented

	nodes := make([]NodeID, len(vectors))
	for i := range vectors {
		nodes[i] = NodeID(i)
	}
	c.ids = append(c.ids, ids...)

	c.logger.LogBulkBuild(ctx, len(vectors), m.Segments(), time.Since(start))
	return nodes, nil
}

// Search returns the k nearest neighbors of query, closest first. Fewer than
// k results are returned when the collection holds fewer eligible vectors.
func (c *Collection) Search(ctx context.Context, query []float32, k int, optFns ...func(o *SearchOptions)) ([]Result, error) {
	start := time.Now()

	results, err := c.search(ctx, query, k, optFns...)

	c.metrics.RecordSearch(k, time.Since(start), err)
	c.logger.LogSearch(ctx, k, len(results), time.Since(start), err)
	return results, err
}

func (c *Collection) search(ctx context.Context, query []float32, k int, optFns ...func(o *SearchOptions)) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var so SearchOptions
	for _, fn := range optFns {
		fn(&so)
	}
	ef := so.EFSearch
	var filter index.FilterFunc
	if so.Filter != nil {
		filter = func(id uint32) bool { return so.Filter(NodeID(id)) }
	}

	// The read lock is held for the whole traversal: searches run
	// concurrently with each other while inserts and migrations are
	// excluded.
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		raw []index.SearchResult
		err error
	)
	switch c.mode {
	case modeFlat:
		raw, err = c.flat.KNNSearch(query, k, ef, filter)
	case modeGraph:
		raw, err = c.graph.KNNSearch(query, k, ef, filter)
	case modeSegmented:
		raw, err = c.manager.Search(ctx, query, k, ef, filter)
	}
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(raw))
	for i, r := range raw {
		results[i] = Result{ID: c.ids[r.ID], Node: NodeID(r.ID), Distance: r.Distance}
	}
	return results, nil
}

// Count returns the number of stored vectors.
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.ids)
}

// Dimension returns the fixed vector dimension.
func (c *Collection) Dimension() int {
	return c.dimension
}

// Capacity returns the fixed vector budget.
func (c *Collection) Capacity() int {
	return c.capacity
}

// VectorByNode returns the stored vector for a node id. The returned slice
// must not be modified.
func (c *Collection) VectorByNode(node NodeID) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var (
		v  []float32
		ok bool
	)
	switch c.mode {
	case modeFlat:
		v, ok = c.flat.Vector(uint32(node))
	case modeGraph:
		v, ok = c.graph.Vector(uint32(node))
	case modeSegmented:
		v, ok = c.manager.Vector(uint32(node))
	}
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// IDByNode returns the external id for a node id.
func (c *Collection) IDByNode(node NodeID) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(node) >= len(c.ids) {
		return "", ErrNotFound
	}
	return c.ids[node], nil
}

// Stats describes the current shape of a collection.
type Stats struct {
	Count     int
	Capacity  int
	Dimension int
	Mode      string
	Segments  int

	// Graphs holds per-graph statistics: one entry in graph mode, one per
	// segment in segmented mode, none in flat mode.
	Graphs []hnsw.Stats
}

// Stats returns a snapshot of the collection's shape.
func (c *Collection) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{
		Count:     len(c.ids),
		Capacity:  c.capacity,
		Dimension: c.dimension,
		Mode:      c.mode.String(),
	}
	switch c.mode {
	case modeGraph:
		s.Graphs = []hnsw.Stats{c.graph.Stats()}
	case modeSegmented:
		s.Graphs = c.manager.Stats()
		s.Segments = c.manager.Segments()
	}
	return s
}

// Clear removes all vectors. The collection returns to the flat stage and
// can be reused; capacity and options are unchanged.
func (c *Collection) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ids = c.ids[:0]
	c.flat = nil
	c.graph = nil
	c.manager = nil
	return c.initIndex()
}

// Close releases the collection's reserved memory with the resource
// controller. The collection must not be used afterwards.
func (c *Collection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.memReserved > 0 {
		c.controller.ReleaseMemory(c.memReserved)
		c.memReserved = 0
	}
	c.flat = nil
	c.graph = nil
	c.manager = nil
	c.ids = nil
	return nil
}
