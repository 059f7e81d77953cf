package database

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
)

// ErrIndexEmpty is returned when searching an index without templates.
var ErrIndexEmpty = errors.New("index not initialized")

// HNSWIndex wraps the HNSW graph for face template search. Node keys are
// caller-chosen positions, so results can be mapped back to gallery order.
type HNSWIndex struct {
	graph     *hnsw.Graph[int64]
	templates map[int64]*StoredTemplate
	dim       int
	mu        sync.RWMutex
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		templates: make(map[int64]*StoredTemplate),
	}
}

// BuildFromTemplates builds the index, keying each template by its slice position.
// Templates without an embedding, or with a dimension different from the first
// indexed template, are skipped.
func (h *HNSWIndex) BuildFromTemplates(templates []StoredTemplate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.graph = nil
	h.dim = 0
	h.templates = make(map[int64]*StoredTemplate, len(templates))

	if len(templates) == 0 {
		return
	}

	// Create new graph with cosine distance.
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.EfSearch = HNSWEfSearch
	g.Distance = hnsw.CosineDistance

	for i := range templates {
		t := &templates[i]
		if len(t.Embedding) == 0 {
			continue
		}
		if h.dim == 0 {
			h.dim = len(t.Embedding)
		} else if len(t.Embedding) != h.dim {
			continue
		}
		key := int64(i)
		g.Add(hnsw.MakeNode(key, t.Embedding))
		h.templates[key] = t
	}

	if len(h.templates) > 0 {
		h.graph = g
	}
}

// Search finds the k nearest templates to the query embedding.
// Returns template keys and their cosine distances, nearest first.
func (h *HNSWIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil {
		return nil, nil, ErrIndexEmpty
	}
	if len(query) != h.dim {
		return nil, nil, errors.New("query dimension does not match index")
	}

	neighbors := h.graph.Search(query, k)

	ids := make([]int64, len(neighbors))
	distances := make([]float64, len(neighbors))
	for i, n := range neighbors {
		ids[i] = n.Key
		distances[i] = CosineDistance(query, n.Value)
	}
	return ids, distances, nil
}

// Template returns the template indexed under key.
func (h *HNSWIndex) Template(key int64) *StoredTemplate {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.templates[key]
}

// Count returns the number of indexed templates.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.templates)
}

// IsEmpty returns true if the index has no graph data.
func (h *HNSWIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil
}
