// Package hnsw implements the Hierarchical Navigable Small World (HNSW)
// graph for approximate nearest neighbor search.
//
// The node pool is sized once at creation: all per-node bookkeeping is
// preallocated for the configured capacity, and insertion past capacity
// fails loudly rather than growing. Writes require external serialization;
// concurrent searches are safe and share pooled traversal state.
package hnsw

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"
	"time"

	"github.com/vektordb/vektor/distance"
	"github.com/vektordb/vektor/index"
	"github.com/vektordb/vektor/internal/queue"
	"github.com/vektordb/vektor/internal/visited"
	"github.com/vektordb/vektor/quantization"
	"github.com/vektordb/vektor/vectorstore"
)

const (
	// layerNormalizationBase is the base constant for the exponential layer
	// probability distribution.
	layerNormalizationBase = 1.0

	// mmax0Multiplier is the multiplier for maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// DefaultM is the default number of bidirectional links per layer.
	DefaultM = 16

	// DefaultEFConstruction is the default beam width during insertion.
	// Wider beams past ~100 buy almost no recall on typical embedding
	// workloads while slowing construction down linearly.
	DefaultEFConstruction = 100

	// DefaultEFSearch is the default beam width during search.
	DefaultEFSearch = 100

	// DefaultRerankFactor oversizes the quantized shortlist before exact
	// re-ranking: the shortlist holds max(ef, k*factor) candidates.
	DefaultRerankFactor = 4
)

// Compile-time check
var _ index.Index = (*HNSW)(nil)

// Options represents the options for configuring HNSW.
type Options struct {
	// Dimension is the vector dimensionality. Required.
	Dimension int

	// Capacity is the fixed node pool size. Required.
	Capacity int

	// M is the number of bidirectional links per node per layer.
	// Layer 0 allows 2*M.
	M int

	// EFConstruction is the candidate beam width during insertion.
	EFConstruction int

	// EFSearch is the default candidate beam width during search.
	EFSearch int

	// Heuristic enables diversity-aware neighbor selection instead of
	// plain nearest-M.
	Heuristic bool

	// Metric selects the distance metric.
	Metric distance.Metric

	// NormalizeVectors L2-normalizes vectors on insert. Forced on for
	// the cosine metric.
	NormalizeVectors bool

	// Quantized enables binary-quantized traversal with exact re-ranking.
	Quantized bool

	// QuantizePolicy selects the bit threshold policy when Quantized.
	QuantizePolicy quantization.ThresholdPolicy

	// RerankFactor controls the exact re-rank shortlist size when
	// Quantized: max(ef, k*RerankFactor) candidates survive traversal.
	RerankFactor int

	// Precision selects the vector storage representation.
	Precision vectorstore.Precision

	// RandomSeed pins the layer draw for reproducible graphs.
	RandomSeed *int64
}

// DefaultOptions holds the default options for HNSW.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	Heuristic:      true,
	Metric:         distance.MetricL2,
	RerankFactor:   DefaultRerankFactor,
	Precision:      vectorstore.PrecisionFull,
}

// node is one entry in the preallocated pool. conns[l] holds the neighbor
// ids at layer l; len(conns) == level+1 once the node is linked.
type node struct {
	level int32
	conns [][]uint32
}

// HNSW represents the Hierarchical Navigable Small World graph.
type HNSW struct {
	opts Options

	nodes      []node
	count      int
	entryPoint uint32
	maxLevel   int

	vectors   vectorstore.Store
	quantizer *quantization.BinaryQuantizer
	codes     []quantization.Code

	distanceFunc    distance.Func
	layerMultiplier float64
	mmax            int
	mmax0           int

	rng   *rand.Rand
	rngMu sync.Mutex

	minQueuePool *sync.Pool
	maxQueuePool *sync.Pool
	visitedPool  *sync.Pool
}

// New creates a new HNSW instance.
func New(optFns ...func(o *Options)) (*HNSW, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("hnsw: invalid dimension %d", opts.Dimension)
	}
	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("hnsw: invalid capacity %d", opts.Capacity)
	}
	if opts.M < minimumM {
		opts.M = minimumM
	}
	if opts.EFConstruction <= 0 {
		opts.EFConstruction = DefaultEFConstruction
	}
	if opts.EFSearch <= 0 {
		opts.EFSearch = DefaultEFSearch
	}
	if opts.RerankFactor <= 0 {
		opts.RerankFactor = DefaultRerankFactor
	}
	if opts.Metric == distance.MetricCosine {
		opts.NormalizeVectors = true
	}

	distanceFunc, err := distance.Provider(opts.Metric, opts.Dimension)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if opts.RandomSeed != nil {
		rng = rand.New(rand.NewSource(*opts.RandomSeed))
	} else {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	vectors, err := vectorstore.New(opts.Precision, opts.Dimension, opts.Capacity)
	if err != nil {
		return nil, err
	}

	h := &HNSW{
		opts:            opts,
		nodes:           make([]node, opts.Capacity),
		vectors:         vectors,
		distanceFunc:    distanceFunc,
		layerMultiplier: layerNormalizationBase / math.Log(float64(opts.M)),
		mmax:            opts.M,
		mmax0:           mmax0Multiplier * opts.M,
		rng:             rng,
		minQueuePool: &sync.Pool{
			New: func() any { return queue.NewMin(opts.EFConstruction) },
		},
		maxQueuePool: &sync.Pool{
			New: func() any { return queue.NewMax(opts.EFConstruction) },
		},
		visitedPool: &sync.Pool{
			New: func() any { return visited.New(opts.Capacity) },
		},
	}

	if opts.Quantized {
		h.quantizer = quantization.NewBinaryQuantizer(opts.Dimension, opts.QuantizePolicy)
		h.codes = make([]quantization.Code, opts.Capacity)
	}

	return h, nil
}

// Count returns the number of stored vectors.
func (h *HNSW) Count() int { return h.count }

// Capacity returns the fixed node pool size.
func (h *HNSW) Capacity() int { return len(h.nodes) }

// Dimension returns the vector dimensionality.
func (h *HNSW) Dimension() int { return h.opts.Dimension }

// Vector returns the stored vector for an id.
func (h *HNSW) Vector(id uint32) ([]float32, bool) {
	return h.vectors.Get(id)
}

// Reset removes all vectors and edges, keeping the allocated pool.
func (h *HNSW) Reset() {
	for i := range h.nodes[:h.count] {
		h.nodes[i] = node{}
	}
	if h.codes != nil {
		for i := range h.codes[:h.count] {
			h.codes[i] = quantization.Code{}
		}
	}
	h.vectors.Reset()
	h.count = 0
	h.entryPoint = 0
	h.maxLevel = 0
}

// distTo scores a node against a fixed query.
type distTo func(id uint32) float32

// exactDist returns a closure computing exact distances from q to stored
// vectors. Half-precision stores decode into a per-closure buffer so the
// hot loop stays allocation-free.
func (h *HNSW) exactDist(q []float32) distTo {
	if half, ok := h.vectors.(*vectorstore.Half); ok {
		buf := make([]float32, h.opts.Dimension)
		return func(id uint32) float32 {
			if !half.GetInto(id, buf) {
				return math.MaxFloat32
			}
			return h.distanceFunc(q, buf)
		}
	}
	return func(id uint32) float32 {
		v, ok := h.vectors.Get(id)
		if !ok {
			return math.MaxFloat32
		}
		return h.distanceFunc(q, v)
	}
}

// quantizedDist returns a closure scoring nodes by binary code distance.
func (h *HNSW) quantizedDist(qcode quantization.Code) distTo {
	return func(id uint32) float32 {
		return quantization.Distance(qcode, h.codes[id])
	}
}

// Insert adds a vector, returning its dense id.
func (h *HNSW) Insert(v []float32) (uint32, error) {
	if err := index.ValidateVector(v, h.opts.Dimension); err != nil {
		return 0, err
	}
	if h.count >= len(h.nodes) {
		return 0, &index.ErrCapacityExceeded{Capacity: len(h.nodes)}
	}

	vec := v
	if h.opts.NormalizeVectors {
		normalized, ok := distance.NormalizeL2Copy(v)
		if !ok {
			return 0, fmt.Errorf("hnsw: cannot normalize zero vector")
		}
		vec = normalized
	}

	id := uint32(h.count)
	if err := h.vectors.Set(id, vec); err != nil {
		return 0, err
	}
	if h.quantizer != nil {
		h.quantizer.EncodeTo(vec, &h.codes[id])
	}

	level := h.drawLevel()
	h.nodes[id] = node{
		level: int32(level),
		conns: make([][]uint32, level+1),
	}

	// First node becomes the entry point of an otherwise empty graph.
	if h.count == 0 {
		h.count = 1
		h.entryPoint = id
		h.maxLevel = level
		return id, nil
	}

	h.linkNode(id, vec, level)
	h.count++

	if level > h.maxLevel {
		h.maxLevel = level
		h.entryPoint = id
	}

	return id, nil
}

// drawLevel samples the node level from the exponential distribution with
// multiplier 1/ln(M).
func (h *HNSW) drawLevel() int {
	h.rngMu.Lock()
	r := h.rng.Float64()
	h.rngMu.Unlock()
	if r == 0 {
		r = math.SmallestNonzeroFloat64
	}
	return int(math.Floor(-math.Log(r) * h.layerMultiplier))
}

// linkNode wires a freshly stored node into the graph.
func (h *HNSW) linkNode(id uint32, vec []float32, level int) {
	dist := h.exactDist(vec)

	currID := h.entryPoint
	currDist := dist(currID)

	// Greedy descent through the layers above the node's level.
	for l := h.maxLevel; l > level; l-- {
		currID, currDist = h.greedyStep(currID, currDist, l, dist)
	}

	// Search and link from min(level, maxLevel) down to 0.
	for l := min(level, h.maxLevel); l >= 0; l-- {
		results := h.searchLayer(currID, currDist, l, h.opts.EFConstruction, dist, nil)

		if best, ok := results.Min(); ok {
			currID = best.Node
			currDist = best.Distance
		}

		maxConns := h.mmax
		if l == 0 {
			maxConns = h.mmax0
		}

		neighbors := h.selectNeighbors(results, maxConns)
		results.Reset()
		h.maxQueuePool.Put(results)

		h.nodes[id].conns[l] = neighbors

		for _, neighborID := range neighbors {
			h.addConnection(neighborID, id, l)
		}
	}
}

// greedyStep walks to the closest neighbor at the given layer until no
// neighbor improves on the current position.
func (h *HNSW) greedyStep(currID uint32, currDist float32, level int, dist distTo) (uint32, float32) {
	for changed := true; changed; {
		changed = false
		for _, nextID := range h.neighbors(currID, level) {
			nextDist := dist(nextID)
			if nextDist < currDist {
				currID = nextID
				currDist = nextDist
				changed = true
			}
		}
	}
	return currID, currDist
}

func (h *HNSW) neighbors(id uint32, level int) []uint32 {
	n := &h.nodes[id]
	if level > int(n.level) {
		return nil
	}
	return n.conns[level]
}

// addConnection links source -> target at the given level, re-pruning when
// the neighbor list is full. Every edge dropped by the prune is also removed
// from the dropped node's own list, so edges stay bidirectional after every
// insertion.
func (h *HNSW) addConnection(sourceID, targetID uint32, level int) {
	conns := h.neighbors(sourceID, level)
	if slices.Contains(conns, targetID) {
		return
	}

	maxM := h.mmax
	if level == 0 {
		maxM = h.mmax0
	}

	if len(conns) < maxM {
		h.nodes[sourceID].conns[level] = append(conns, targetID)
		return
	}

	// Full list: re-select the best maxM among existing neighbors plus the
	// new candidate, by distance to the source vector.
	vSource, ok := h.vectors.Get(sourceID)
	if !ok {
		return
	}
	dist := h.exactDist(vSource)

	candidates := h.maxQueuePool.Get().(*queue.PriorityQueue)
	candidates.Reset()
	for _, c := range conns {
		candidates.Push(queue.Item{Node: c, Distance: dist(c)})
	}
	candidates.Push(queue.Item{Node: targetID, Distance: dist(targetID)})

	newConns := h.selectNeighbors(candidates, maxM)
	candidates.Reset()
	h.maxQueuePool.Put(candidates)

	// Repair reverse edges of everything the prune dropped.
	for _, old := range conns {
		if !slices.Contains(newConns, old) {
			h.removeLink(old, sourceID, level)
		}
	}

	h.nodes[sourceID].conns[level] = newConns
}

// removeLink deletes neighborID from id's list at the given layer.
func (h *HNSW) removeLink(id, neighborID uint32, level int) {
	conns := h.neighbors(id, level)
	for i, c := range conns {
		if c == neighborID {
			conns[i] = conns[len(conns)-1]
			h.nodes[id].conns[level] = conns[:len(conns)-1]
			return
		}
	}
}

// selectNeighbors selects up to m neighbors from candidates.
func (h *HNSW) selectNeighbors(candidates *queue.PriorityQueue, m int) []uint32 {
	if h.opts.Heuristic {
		return h.selectNeighborsHeuristic(candidates, m)
	}
	return h.selectNeighborsSimple(candidates, m)
}

// selectNeighborsSimple keeps the nearest m candidates.
func (h *HNSW) selectNeighborsSimple(candidates *queue.PriorityQueue, m int) []uint32 {
	for candidates.Len() > m {
		candidates.Pop()
	}
	res := make([]uint32, candidates.Len())
	for i := candidates.Len() - 1; i >= 0; i-- {
		item, _ := candidates.Pop()
		res[i] = item.Node
	}
	return res
}

// selectNeighborsHeuristic applies the relative-neighborhood diversity rule:
// a candidate is kept only if no already-selected neighbor is closer to the
// candidate than the candidate is to the query. Clustered candidates that
// shadow each other get rejected in favor of spread-out edges, which is what
// keeps the graph navigable across clusters.
func (h *HNSW) selectNeighborsHeuristic(candidates *queue.PriorityQueue, m int) []uint32 {
	if candidates.Len() <= m {
		return h.selectNeighborsSimple(candidates, m)
	}

	// candidates is a max-heap, so popping yields worst-to-best; the
	// heuristic consumes best-to-worst.
	temp := make([]queue.Item, candidates.Len())
	for i := len(temp) - 1; i >= 0; i-- {
		temp[i], _ = candidates.Pop()
	}

	result := make([]uint32, 0, m)
	resultVecs := make([][]float32, 0, m)

	for _, cand := range temp {
		if len(result) >= m {
			break
		}

		candVec, ok := h.vectors.Get(cand.Node)
		if !ok {
			continue
		}

		good := true
		for _, resVec := range resultVecs {
			if h.distanceFunc(candVec, resVec) < cand.Distance {
				good = false
				break
			}
		}

		if good {
			result = append(result, cand.Node)
			resultVecs = append(resultVecs, candVec)
		}
	}

	// Top up with the nearest rejected candidates so sparse regions still
	// get their full degree.
	if len(result) < m {
		for _, cand := range temp {
			if len(result) >= m {
				break
			}
			if !slices.Contains(result, cand.Node) {
				result = append(result, cand.Node)
			}
		}
	}

	return result
}

// searchLayer runs the best-first beam search at one layer. The returned
// max-heap holds up to ef results; the caller must Reset and return it to
// maxQueuePool.
func (h *HNSW) searchLayer(epID uint32, epDist float32, level, ef int, dist distTo, filter index.FilterFunc) *queue.PriorityQueue {
	vis := h.visitedPool.Get().(*visited.Set)
	vis.Reset()
	defer h.visitedPool.Put(vis)

	candidates := h.minQueuePool.Get().(*queue.PriorityQueue)
	candidates.Reset()
	defer func() {
		candidates.Reset()
		h.minQueuePool.Put(candidates)
	}()

	results := h.maxQueuePool.Get().(*queue.PriorityQueue)
	results.Reset()

	vis.Visit(epID)

	// The entry point always seeds traversal, even when filtered out of
	// the results, so the walk has somewhere to start.
	candidates.Push(queue.Item{Node: epID, Distance: epDist})
	if filter == nil || filter(epID) {
		results.Push(queue.Item{Node: epID, Distance: epDist})
	}

	for candidates.Len() > 0 {
		curr, _ := candidates.Pop()

		if results.Len() >= ef {
			if worst, _ := results.Top(); curr.Distance > worst.Distance {
				break
			}
		}

		for _, nextID := range h.neighbors(curr.Node, level) {
			if vis.Visited(nextID) {
				continue
			}
			vis.Visit(nextID)

			nextDist := dist(nextID)

			// Skip clearly-bad candidates once the beam is full. Kept
			// permissive under filtering so traversal can cross
			// filtered-out regions.
			if filter == nil && results.Len() >= ef {
				if worst, _ := results.Top(); nextDist > worst.Distance {
					continue
				}
			}

			candidates.Push(queue.Item{Node: nextID, Distance: nextDist})

			if filter == nil || filter(nextID) {
				results.Push(queue.Item{Node: nextID, Distance: nextDist})
				if results.Len() > ef {
					results.Pop()
				}
			}
		}
	}

	return results
}

// KNNSearch returns the k nearest neighbors of q, closest first.
func (h *HNSW) KNNSearch(q []float32, k int, efSearch int, filter index.FilterFunc) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, &index.ErrInvalidK{K: k}
	}
	if err := index.ValidateVector(q, h.opts.Dimension); err != nil {
		return nil, err
	}
	if h.count == 0 {
		return nil, nil
	}

	query := q
	if h.opts.NormalizeVectors {
		normalized, ok := distance.NormalizeL2Copy(q)
		if !ok {
			return nil, fmt.Errorf("hnsw: zero query vector")
		}
		query = normalized
	}

	ef := h.opts.EFSearch
	if efSearch > 0 {
		ef = efSearch
	}
	if ef < k {
		ef = k
	}

	exact := h.exactDist(query)

	// Quantized mode walks the graph on cheap code distances and keeps an
	// oversampled shortlist for exact re-ranking.
	dist := exact
	if h.quantizer != nil {
		qcode := h.quantizer.Encode(query)
		dist = h.quantizedDist(qcode)
		if oversampled := k * h.opts.RerankFactor; ef < oversampled {
			ef = oversampled
		}
	}

	currID := h.entryPoint
	currDist := dist(currID)
	for l := h.maxLevel; l > 0; l-- {
		currID, currDist = h.greedyStep(currID, currDist, l, dist)
	}

	results := h.searchLayer(currID, currDist, 0, ef, dist, filter)
	defer func() {
		results.Reset()
		h.maxQueuePool.Put(results)
	}()

	if h.quantizer != nil {
		return h.rerank(results, exact, k), nil
	}

	for results.Len() > k {
		results.Pop()
	}
	res := make([]index.SearchResult, results.Len())
	for i := results.Len() - 1; i >= 0; i-- {
		item, _ := results.Pop()
		res[i] = index.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return res, nil
}

// rerank rescores the shortlist with exact distances and keeps the best k.
func (h *HNSW) rerank(shortlist *queue.PriorityQueue, exact distTo, k int) []index.SearchResult {
	res := make([]index.SearchResult, 0, shortlist.Len())
	for shortlist.Len() > 0 {
		item, _ := shortlist.Pop()
		res = append(res, index.SearchResult{ID: item.Node, Distance: exact(item.Node)})
	}
	slices.SortFunc(res, func(a, b index.SearchResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	if len(res) > k {
		res = res[:k]
	}
	return res
}

// BruteSearch performs an exact linear scan, bypassing the graph.
func (h *HNSW) BruteSearch(q []float32, k int, filter index.FilterFunc) ([]index.SearchResult, error) {
	if k <= 0 {
		return nil, &index.ErrInvalidK{K: k}
	}
	if err := index.ValidateVector(q, h.opts.Dimension); err != nil {
		return nil, err
	}

	query := q
	if h.opts.NormalizeVectors {
		normalized, ok := distance.NormalizeL2Copy(q)
		if !ok {
			return nil, fmt.Errorf("hnsw: zero query vector")
		}
		query = normalized
	}

	dist := h.exactDist(query)
	pq := queue.NewMax(k)

	for id := uint32(0); int(id) < h.count; id++ {
		if filter != nil && !filter(id) {
			continue
		}
		d := dist(id)
		if pq.Len() < k {
			pq.Push(queue.Item{Node: id, Distance: d})
		} else if top, _ := pq.Top(); d < top.Distance {
			pq.Pop()
			pq.Push(queue.Item{Node: id, Distance: d})
		}
	}

	res := make([]index.SearchResult, pq.Len())
	for i := pq.Len() - 1; i >= 0; i-- {
		item, _ := pq.Pop()
		res[i] = index.SearchResult{ID: item.Node, Distance: item.Distance}
	}
	return res, nil
}
