package hnsw

import "fmt"

// LevelStats summarizes one layer of the graph.
type LevelStats struct {
	Level          int
	Nodes          int
	Connections    int
	AvgConnections int
}

// Stats is a snapshot of graph shape and configuration.
type Stats struct {
	Count      int
	Capacity   int
	MaxLevel   int
	EntryPoint uint32
	M          int
	M0         int
	EF         int
	Quantized  bool
	Levels     []LevelStats
}

// Stats collects per-level node and edge counts.
func (h *HNSW) Stats() Stats {
	levelNodes := make([]int, h.maxLevel+1)
	levelConns := make([]int, h.maxLevel+1)

	for id := 0; id < h.count; id++ {
		n := &h.nodes[id]
		levelNodes[n.level]++
		for l, conns := range n.conns {
			levelConns[l] += len(conns)
		}
	}

	levels := make([]LevelStats, h.maxLevel+1)
	for l := range levels {
		// Nodes participating at layer l are all nodes with level >= l.
		present := 0
		for ll := l; ll <= h.maxLevel; ll++ {
			present += levelNodes[ll]
		}
		avg := 0
		if present > 0 {
			avg = levelConns[l] / present
		}
		levels[l] = LevelStats{
			Level:          l,
			Nodes:          present,
			Connections:    levelConns[l],
			AvgConnections: avg,
		}
	}

	return Stats{
		Count:      h.count,
		Capacity:   len(h.nodes),
		MaxLevel:   h.maxLevel,
		EntryPoint: h.entryPoint,
		M:          h.mmax,
		M0:         h.mmax0,
		EF:         h.opts.EFSearch,
		Quantized:  h.quantizer != nil,
		Levels:     levels,
	}
}

// String returns a short description of the graph.
func (h *HNSW) String() string {
	return fmt.Sprintf("HNSW(M=%d, EF=%d, Count=%d, MaxLevel=%d)",
		h.mmax, h.opts.EFSearch, h.count, h.maxLevel)
}

// Validate checks the structural invariants of the graph: neighbor lists
// within degree bounds, edges bidirectional, and no node linked above its
// own level. Intended for tests and debugging; cost is O(edges).
func (h *HNSW) Validate() error {
	for id := 0; id < h.count; id++ {
		n := &h.nodes[id]
		if len(n.conns) != int(n.level)+1 {
			return fmt.Errorf("node %d: %d layers for level %d", id, len(n.conns), n.level)
		}
		for l, conns := range n.conns {
			maxM := h.mmax
			if l == 0 {
				maxM = h.mmax0
			}
			if len(conns) > maxM {
				return fmt.Errorf("node %d layer %d: degree %d exceeds %d", id, l, len(conns), maxM)
			}
			for _, c := range conns {
				if int(c) >= h.count {
					return fmt.Errorf("node %d layer %d: edge to unknown node %d", id, l, c)
				}
				if c == uint32(id) {
					return fmt.Errorf("node %d layer %d: self edge", id, l)
				}
				peer := &h.nodes[c]
				if l > int(peer.level) {
					return fmt.Errorf("node %d layer %d: edge to node %d with level %d", id, l, c, peer.level)
				}
				reverse := false
				for _, rc := range peer.conns[l] {
					if rc == uint32(id) {
						reverse = true
						break
					}
				}
				if !reverse {
					return fmt.Errorf("node %d layer %d: edge to %d has no reverse edge", id, l, c)
				}
			}
		}
	}
	return nil
}
