package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mock"
	"github.com/kozaktomas/classroll/internal/faceclient"
	"github.com/kozaktomas/classroll/internal/gallery"
)

type fixedEmbedder struct{}

func (fixedEmbedder) EmbedSingleFace(ctx context.Context, data []byte) (*faceclient.Detection, string, error) {
	if len(data) == 0 {
		return nil, "", faceclient.ErrNoFace
	}
	return &faceclient.Detection{Embedding: []float32{float32(data[0]), 1}, DetScore: 0.9}, "test-model", nil
}

func enrolmentFixture(t *testing.T, students ...string) string {
	t.Helper()
	dir := t.TempDir()
	for i, name := range students {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name, "1.jpg"), []byte{byte(i + 1)}, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestGalleryHandler_ReloadFromDir(t *testing.T) {
	store := mock.NewMockTemplateStore()
	loader := &gallery.Loader{
		Dir:         enrolmentFixture(t, "Alice", "Bob"),
		Embedder:    fixedEmbedder{},
		Store:       store,
		MaxDistance: 0.5,
		Strategy:    gallery.StrategyNearest,
	}
	holder := gallery.NewHolder(nil)
	h := NewGalleryHandler(loader, holder)

	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/gallery/reload", nil))
	assertStatusCode(t, rec, http.StatusOK)

	var resp GalleryResponse
	parseJSONResponse(t, rec, &resp)
	if resp.Templates != 2 || len(resp.Students) != 2 || resp.Strategy != "nearest" {
		t.Errorf("unexpected gallery %+v", resp)
	}
	if holder.Load().Len() != 2 {
		t.Error("gallery was not swapped in")
	}

	rec = httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest(http.MethodGet, "/api/v1/gallery", nil))
	parseJSONResponse(t, rec, &resp)
	if resp.Templates != 2 {
		t.Errorf("Get() = %+v", resp)
	}
}

func TestGalleryHandler_ReloadFromStore(t *testing.T) {
	store := mock.NewMockTemplateStore()
	store.ReplaceTemplates(context.Background(), "Carol", []database.StoredTemplate{{Name: "Carol", Embedding: []float32{1, 0}}})

	holder := gallery.NewHolder(nil)
	h := NewGalleryHandler(&gallery.Loader{Store: store, MaxDistance: 0.5}, holder)

	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/gallery/reload?source=store", nil))
	assertStatusCode(t, rec, http.StatusOK)
	if names := holder.Load().Names(); len(names) != 1 || names[0] != "Carol" {
		t.Errorf("unexpected gallery names %v", names)
	}
}

func TestGalleryHandler_ReloadKeepsGalleryOnFailure(t *testing.T) {
	current := gallery.New([]database.StoredTemplate{{Name: "Alice", Embedding: []float32{1, 0}}}, 0.5, gallery.StrategyFirst)
	holder := gallery.NewHolder(current)
	h := NewGalleryHandler(&gallery.Loader{Dir: t.TempDir(), Embedder: fixedEmbedder{}}, holder)

	rec := httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/gallery/reload", nil))
	assertStatusCode(t, rec, http.StatusUnprocessableEntity)
	assertJSONError(t, rec, "no face templates found")
	if holder.Load() != current {
		t.Error("failed reload must keep the active gallery")
	}

	rec = httptest.NewRecorder()
	h.Reload(rec, httptest.NewRequest(http.MethodPost, "/api/v1/gallery/reload?source=ftp", nil))
	assertStatusCode(t, rec, http.StatusBadRequest)
}
