package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/classroll/internal/gallery"
)

// GalleryHandler inspects and reloads the face gallery
type GalleryHandler struct {
	loader *gallery.Loader
	holder *gallery.Holder
}

// NewGalleryHandler creates a new gallery handler
func NewGalleryHandler(loader *gallery.Loader, holder *gallery.Holder) *GalleryHandler {
	return &GalleryHandler{
		loader: loader,
		holder: holder,
	}
}

// GalleryResponse summarizes the active gallery.
type GalleryResponse struct {
	Templates int      `json:"templates"`
	Students  []string `json:"students"`
	Strategy  string   `json:"strategy"`
}

func newGalleryResponse(g *gallery.Gallery) GalleryResponse {
	names := g.Names()
	if names == nil {
		names = []string{}
	}
	return GalleryResponse{
		Templates: g.Len(),
		Students:  names,
		Strategy:  string(g.Strategy()),
	}
}

// Get returns the active gallery
func (h *GalleryHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newGalleryResponse(h.holder.Load()))
}

// Reload builds a new gallery and swaps it in. ?source=store reads persisted
// templates; the default re-embeds the enrolment directory. On failure the
// active gallery is kept.
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	var (
		g   *gallery.Gallery
		err error
	)
	source := r.URL.Query().Get("source")
	switch source {
	case "store":
		g, err = h.loader.FromStore(r.Context())
	case "", "dir":
		g, err = h.loader.FromDir(r.Context(), nil)
	default:
		respondError(w, http.StatusBadRequest, "source must be dir or store")
		return
	}

	if errors.Is(err, gallery.ErrEmptyGallery) {
		respondError(w, http.StatusUnprocessableEntity, "no face templates found")
		return
	}
	if err != nil {
		log.Printf("Gallery reload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to reload gallery")
		return
	}

	h.holder.Store(g)
	log.Printf("Gallery reloaded from %s: %d templates", sanitizeForLog(source), g.Len())
	respondJSON(w, http.StatusOK, newGalleryResponse(g))
}
