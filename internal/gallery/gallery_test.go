package gallery

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/database/mock"
	"github.com/kozaktomas/classroll/internal/faceclient"
)

func templates() []database.StoredTemplate {
	return []database.StoredTemplate{
		{ID: 1, Name: "Alice", Embedding: []float32{1, 0, 0}},
		{ID: 2, Name: "Bob", Embedding: []float32{0.9, 0.1, 0}},
		{ID: 3, Name: "Carol", Embedding: []float32{0, 0, 1}},
	}
}

func TestGallery_FirstMatchUsesGalleryOrder(t *testing.T) {
	g := New(templates(), 0.5, StrategyFirst)

	// Closer to Bob, but Alice comes first and is within tolerance.
	name, _ := g.Identify([]float32{0.9, 0.1, 0})
	if name != "Alice" {
		t.Errorf("Identify() = %s, want Alice", name)
	}
}

func TestGallery_Nearest(t *testing.T) {
	g := New(templates(), 0.5, StrategyNearest)

	name, d := g.Identify([]float32{0.9, 0.1, 0})
	if name != "Bob" {
		t.Errorf("Identify() = %s, want Bob", name)
	}
	if d > 1e-6 {
		t.Errorf("Expected ~0 distance, got %f", d)
	}
}

func TestGallery_Unknown(t *testing.T) {
	tests := []struct {
		name      string
		gallery   *Gallery
		embedding []float32
	}{
		{"far away", New(templates(), 0.1, StrategyFirst), []float32{0, 1, 0}},
		{"far away nearest", New(templates(), 0.1, StrategyNearest), []float32{0, 1, 0}},
		{"empty gallery", New(nil, 0.5, StrategyFirst), []float32{1, 0, 0}},
		{"empty embedding", New(templates(), 0.5, StrategyFirst), nil},
		{"dimension mismatch", New(templates(), 0.5, StrategyFirst), []float32{1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if name, _ := tt.gallery.Identify(tt.embedding); name != Unknown {
				t.Errorf("Identify() = %s, want %s", name, Unknown)
			}
		})
	}
}

func TestGallery_Names(t *testing.T) {
	ts := append(templates(), database.StoredTemplate{Name: "Alice", Embedding: []float32{1, 1, 0}})
	g := New(ts, 0.5, StrategyFirst)
	names := g.Names()
	if len(names) != 3 || names[0] != "Alice" || names[2] != "Carol" {
		t.Errorf("Names() = %v", names)
	}
	if g.Len() != 4 {
		t.Errorf("Len() = %d, want 4", g.Len())
	}
}

func TestParseStrategy(t *testing.T) {
	if ParseStrategy("nearest") != StrategyNearest {
		t.Error("expected nearest")
	}
	if ParseStrategy("bogus") != StrategyFirst {
		t.Error("expected fallback to first")
	}
}

func TestHolder_SwapIsAtomic(t *testing.T) {
	h := NewHolder(nil)
	if h.Load().Len() != 0 {
		t.Fatal("expected empty initial gallery")
	}

	g1 := New(templates()[:1], 0.5, StrategyFirst)
	g2 := New(templates(), 0.5, StrategyFirst)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				h.Store(g1)
			} else {
				h.Store(g2)
			}
			if l := h.Load().Len(); l != 1 && l != 3 {
				t.Errorf("observed partial gallery of %d templates", l)
			}
		}()
	}
	wg.Wait()
}

type fakeEmbedder struct {
	byContent map[string][]float32
}

func (f *fakeEmbedder) EmbedSingleFace(ctx context.Context, data []byte) (*faceclient.Detection, string, error) {
	emb, ok := f.byContent[string(bytes.TrimSpace(data))]
	if !ok {
		return nil, "", faceclient.ErrNoFace
	}
	return &faceclient.Detection{Embedding: emb, DetScore: 0.9}, "test-model", nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func enrolmentDir(t *testing.T) string {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Bob", "1.jpg"), "bob")
	writeFile(t, filepath.Join(dir, "Alice", "1.JPG"), "alice")
	writeFile(t, filepath.Join(dir, "Alice", "2.png"), "blurry")
	writeFile(t, filepath.Join(dir, "Alice", "notes.txt"), "alice")
	writeFile(t, filepath.Join(dir, ".cache", "x.jpg"), "alice")
	if err := os.MkdirAll(filepath.Join(dir, "Dave"), 0o755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestScanDir(t *testing.T) {
	images, err := ScanDir(enrolmentDir(t))
	if err != nil {
		t.Fatalf("ScanDir() error = %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("expected 3 images, got %+v", images)
	}
	if images[0].Name != "Alice" || images[2].Name != "Bob" {
		t.Errorf("unexpected order %+v", images)
	}
}

func TestDirRoster(t *testing.T) {
	names, err := DirRoster{Dir: enrolmentDir(t)}.Names(context.Background())
	if err != nil {
		t.Fatalf("Names() error = %v", err)
	}
	want := []string{"Alice", "Bob", "Dave"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %s, want %s", i, names[i], want[i])
		}
	}

	if _, err := (DirRoster{Dir: filepath.Join(t.TempDir(), "missing")}).Names(context.Background()); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestLoader_FromDirPersists(t *testing.T) {
	store := mock.NewMockTemplateStore()
	l := &Loader{
		Dir: enrolmentDir(t),
		Embedder: &fakeEmbedder{byContent: map[string][]float32{
			"alice": {1, 0, 0},
			"bob":   {0, 1, 0},
		}},
		Store:       store,
		MaxDistance: 0.5,
		Strategy:    StrategyFirst,
	}

	var calls int
	g, err := l.FromDir(context.Background(), func(done, total int) {
		calls++
		if total != 3 {
			t.Errorf("expected total 3, got %d", total)
		}
	})
	if err != nil {
		t.Fatalf("FromDir() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 progress calls, got %d", calls)
	}
	if g.Len() != 2 {
		t.Errorf("expected 2 templates (blurry skipped), got %d", g.Len())
	}
	if name, _ := g.Identify([]float32{0, 1, 0}); name != "Bob" {
		t.Errorf("Identify() = %s, want Bob", name)
	}

	if n, _ := store.Count(context.Background()); n != 2 {
		t.Errorf("expected 2 persisted templates, got %d", n)
	}

	fromStore, err := l.FromStore(context.Background())
	if err != nil {
		t.Fatalf("FromStore() error = %v", err)
	}
	if fromStore.Len() != 2 {
		t.Errorf("expected 2 templates from store, got %d", fromStore.Len())
	}
}

func TestLoader_FromDirRemovesUnenrolledStudents(t *testing.T) {
	ctx := context.Background()
	store := mock.NewMockTemplateStore()
	seed := []database.StoredTemplate{{Name: "Erin", Embedding: []float32{0, 0, 1}}}
	if err := store.ReplaceTemplates(ctx, "Erin", seed); err != nil {
		t.Fatal(err)
	}

	l := &Loader{
		Dir: enrolmentDir(t),
		Embedder: &fakeEmbedder{byContent: map[string][]float32{
			"alice": {1, 0, 0},
			"bob":   {0, 1, 0},
		}},
		Store:       store,
		MaxDistance: 0.1,
		Strategy:    StrategyFirst,
	}
	if _, err := l.FromDir(ctx, nil); err != nil {
		t.Fatalf("FromDir() error = %v", err)
	}

	g, err := l.FromStore(ctx)
	if err != nil {
		t.Fatalf("FromStore() error = %v", err)
	}
	if name, _ := g.Identify([]float32{0, 0, 1}); name != Unknown {
		t.Errorf("Identify() = %s, want %s for a student without a directory", name, Unknown)
	}

	roster, err := DirRoster{Dir: l.Dir}.Names(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range g.Names() {
		if !slices.Contains(roster, name) {
			t.Errorf("gallery name %s is not on the roster %v", name, roster)
		}
	}
}

func TestLoader_Empty(t *testing.T) {
	l := &Loader{Dir: t.TempDir(), Embedder: &fakeEmbedder{}, Store: mock.NewMockTemplateStore()}

	if _, err := l.FromDir(context.Background(), nil); !errors.Is(err, ErrEmptyGallery) {
		t.Errorf("FromDir() error = %v, want ErrEmptyGallery", err)
	}
	if _, err := l.FromStore(context.Background()); !errors.Is(err, ErrEmptyGallery) {
		t.Errorf("FromStore() error = %v, want ErrEmptyGallery", err)
	}
}
