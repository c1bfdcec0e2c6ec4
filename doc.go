// Package vektor is an embedded approximate nearest neighbor search engine
// for dense float32 vectors.
//
// A Collection holds vectors of one fixed dimension under external string
// ids and answers k-nearest-neighbor queries under squared L2, cosine, or
// dot product distance. Storage is allocated once at creation; capacity
// never grows.
//
// Small collections are served by an exact linear scan over a flat buffer.
// Past a configurable threshold the buffer migrates once to an HNSW graph.
// Large bulk loads into an empty collection are partitioned into segments
// built concurrently and searched with a fan-out and merge.
//
// Optional binary quantization trades a small amount of recall for compact
// 1-bit codes during graph traversal, with exact re-ranking of an
// oversampled shortlist. Distance kernels are selected at startup for the
// CPU's SIMD width.
//
//	c, err := vektor.New(128, 100_000)
//	if err != nil {
//		log.Fatal(err)
//	}
//	node, err := c.Insert(ctx, "doc-1", embedding)
//	results, err := c.Search(ctx, query, 10)
package vektor
