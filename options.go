package vektor

import (
	"github.com/vektordb/vektor/distance"
	"github.com/vektordb/vektor/quantization"
	"github.com/vektordb/vektor/resource"
	"github.com/vektordb/vektor/vectorstore"
)

const (
	// DefaultFlatThreshold is the collection size at which the flat buffer
	// migrates to an HNSW graph. Below this a linear scan is both exact
	// and fast enough.
	DefaultFlatThreshold = 1_000

	// DefaultSegmentThreshold is the batch size at which a bulk load into
	// an empty collection is built as parallel segments.
	DefaultSegmentThreshold = 10_000
)

// Options configures a Collection.
type Options struct {
	// M is the HNSW connectivity: links per node per layer. Layer 0
	// allows 2*M.
	M int

	// EFConstruction is the insertion beam width.
	EFConstruction int

	// EFSearch is the default search beam width, overridable per query
	// with WithEFSearch.
	EFSearch int

	// Heuristic enables diversity-aware neighbor selection.
	Heuristic bool

	// Metric selects the distance metric.
	Metric distance.Metric

	// NormalizeVectors L2-normalizes vectors on insert. Forced on for the
	// cosine metric.
	NormalizeVectors bool

	// Quantized enables binary-quantized graph traversal with exact
	// re-ranking.
	Quantized bool

	// QuantizePolicy selects the bit threshold policy when Quantized.
	QuantizePolicy quantization.ThresholdPolicy

	// RerankFactor oversizes the quantized shortlist: max(ef, k*factor)
	// candidates survive traversal for exact re-ranking.
	RerankFactor int

	// Precision selects the vector storage representation.
	Precision vectorstore.Precision

	// FlatThreshold is the size at which the flat buffer migrates to a
	// graph. A threshold at or above the collection capacity disables
	// migration.
	FlatThreshold int

	// SegmentThreshold is the batch size at which InsertBatch into an
	// empty collection builds parallel segments instead of one graph.
	SegmentThreshold int

	// SegmentSize is the target vectors per bulk segment.
	SegmentSize int

	// MaxSegments caps the bulk partition count.
	MaxSegments int

	// RandomSeed pins the HNSW layer draws for reproducible graphs.
	RandomSeed *int64

	// Logger receives structured operation logs. Defaults to a noop
	// logger.
	Logger *Logger

	// Metrics receives operation metrics. Defaults to
	// NoopMetricsCollector.
	Metrics MetricsCollector

	// Controller limits concurrent segment builds and bulk ingest rate,
	// and accounts for vector storage memory. Optional.
	Controller *resource.Controller
}

// DefaultOptions holds the default options for a Collection.
var DefaultOptions = Options{
	M:                16,
	EFConstruction:   100,
	EFSearch:         100,
	Heuristic:        true,
	Metric:           distance.MetricL2,
	RerankFactor:     4,
	Precision:        vectorstore.PrecisionFull,
	FlatThreshold:    DefaultFlatThreshold,
	SegmentThreshold: DefaultSegmentThreshold,
	SegmentSize:      10_000,
	MaxSegments:      16,
}

// SearchOptions tunes a single query.
type SearchOptions struct {
	// EFSearch overrides the collection's search beam width when > 0.
	EFSearch int

	// Filter restricts results to node ids for which it returns true.
	Filter func(NodeID) bool
}

// WithEFSearch overrides the search beam width for one query.
func WithEFSearch(ef int) func(o *SearchOptions) {
	return func(o *SearchOptions) {
		o.EFSearch = ef
	}
}

// WithFilter restricts one query to nodes admitted by fn.
func WithFilter(fn func(NodeID) bool) func(o *SearchOptions) {
	return func(o *SearchOptions) {
		o.Filter = fn
	}
}
