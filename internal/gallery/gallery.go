// Package gallery holds the enrolled face templates and identifies detected
// faces against them.
package gallery

import (
	"errors"
	"slices"
	"sync/atomic"

	"github.com/kozaktomas/classroll/internal/database"
)

// ErrEmptyGallery is returned when nothing is enrolled.
var ErrEmptyGallery = errors.New("gallery has no enrolled templates")

// Unknown is the identity returned when no template is close enough.
const Unknown = "Unknown"

// Strategy selects how a face is matched against the gallery.
type Strategy string

const (
	// StrategyFirst returns the first template, in enrolment order, within tolerance.
	StrategyFirst Strategy = "first"
	// StrategyNearest returns the closest template within tolerance, via HNSW.
	StrategyNearest Strategy = "nearest"
)

// ParseStrategy maps a config value to a Strategy, defaulting to StrategyFirst.
func ParseStrategy(s string) Strategy {
	if Strategy(s) == StrategyNearest {
		return StrategyNearest
	}
	return StrategyFirst
}

// Gallery is an immutable set of templates. Replace it as a whole through a Holder.
type Gallery struct {
	templates   []database.StoredTemplate
	names       []string
	index       *database.HNSWIndex
	maxDistance float64
	strategy    Strategy
}

// New builds a gallery. templates must already be in enrolment order.
func New(templates []database.StoredTemplate, maxDistance float64, strategy Strategy) *Gallery {
	g := &Gallery{
		templates:   slices.Clone(templates),
		maxDistance: maxDistance,
		strategy:    strategy,
	}

	seen := make(map[string]bool)
	for _, t := range g.templates {
		if !seen[t.Name] {
			seen[t.Name] = true
			g.names = append(g.names, t.Name)
		}
	}
	slices.Sort(g.names)

	if strategy == StrategyNearest {
		g.index = database.NewHNSWIndex()
		g.index.BuildFromTemplates(g.templates)
	}
	return g
}

// Len returns the number of templates.
func (g *Gallery) Len() int {
	return len(g.templates)
}

// Names returns the enrolled identities, sorted.
func (g *Gallery) Names() []string {
	return slices.Clone(g.names)
}

// Strategy returns the matching strategy.
func (g *Gallery) Strategy() Strategy {
	return g.strategy
}

// Identify returns the identity for an embedding and its distance, or Unknown.
func (g *Gallery) Identify(embedding []float32) (string, float64) {
	if len(g.templates) == 0 || len(embedding) == 0 {
		return Unknown, 2.0
	}
	if g.strategy == StrategyNearest && g.index != nil && !g.index.IsEmpty() {
		return g.nearest(embedding)
	}
	return g.first(embedding)
}

func (g *Gallery) first(embedding []float32) (string, float64) {
	for _, t := range g.templates {
		d := database.CosineDistance(embedding, t.Embedding)
		if d <= g.maxDistance {
			return t.Name, d
		}
	}
	return Unknown, 2.0
}

func (g *Gallery) nearest(embedding []float32) (string, float64) {
	k := min(g.index.Count(), database.HNSWSearchMultiplier)
	keys, distances, err := g.index.Search(embedding, k)
	if err != nil || len(keys) == 0 {
		return g.first(embedding)
	}
	// Graph order is approximate; take the smallest exact distance.
	best := -1
	for i := range keys {
		if best == -1 || distances[i] < distances[best] {
			best = i
		}
	}
	if distances[best] > g.maxDistance {
		return Unknown, distances[best]
	}
	t := g.index.Template(keys[best])
	if t == nil {
		return Unknown, 2.0
	}
	return t.Name, distances[best]
}

// Holder publishes the current gallery to concurrent readers. Swaps are atomic,
// so an identification never sees a half-loaded gallery.
type Holder struct {
	current atomic.Pointer[Gallery]
}

// NewHolder creates a holder with an initial gallery.
func NewHolder(g *Gallery) *Holder {
	h := &Holder{}
	if g == nil {
		g = New(nil, 0, StrategyFirst)
	}
	h.current.Store(g)
	return h
}

// Load returns the current gallery.
func (h *Holder) Load() *Gallery {
	return h.current.Load()
}

// Store replaces the current gallery.
func (h *Holder) Store(g *Gallery) {
	h.current.Store(g)
}
