package database

// Ledger field layouts. Dates and times are stored as text so every backend
// compares them the same way.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// HNSW index parameters for face template embeddings
const (
	// HNSWMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	HNSWMaxNeighbors = 16

	// HNSWEfSearch is the search candidate pool size.
	// Higher values improve recall but slow down search.
	HNSWEfSearch = 100

	// HNSWSearchMultiplier is the factor to request more candidates from HNSW
	// to ensure we have enough after distance filtering.
	HNSWSearchMultiplier = 3
)
