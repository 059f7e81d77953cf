package gallery

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kozaktomas/classroll/internal/database"
	"github.com/kozaktomas/classroll/internal/faceclient"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Embedder computes the embedding of the face shown in an enrolment image.
type Embedder interface {
	EmbedSingleFace(ctx context.Context, imageData []byte) (*faceclient.Detection, string, error)
}

// Image is one enrolment image of a student.
type Image struct {
	Name string
	Path string
}

// ScanDir lists the enrolment images under dir/<student>/, sorted by student
// then file name. Hidden entries are ignored.
func ScanDir(dir string) ([]Image, error) {
	students, err := listStudents(dir)
	if err != nil {
		return nil, err
	}

	var images []Image
	for _, name := range students {
		entries, err := os.ReadDir(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		for _, e := range entries {
			if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
				continue
			}
			if !slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
				continue
			}
			images = append(images, Image{Name: name, Path: filepath.Join(dir, name, e.Name())})
		}
	}
	return images, nil
}

// Loader builds galleries from the template store or the enrolment directory.
type Loader struct {
	Dir         string
	Embedder    Embedder
	Store       database.TemplateWriter // optional
	MaxDistance float64
	Strategy    Strategy
}

// FromStore builds a gallery from the persisted templates.
func (l *Loader) FromStore(ctx context.Context) (*Gallery, error) {
	if l.Store == nil {
		return nil, ErrEmptyGallery
	}
	templates, err := l.Store.GetTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	if len(templates) == 0 {
		return nil, ErrEmptyGallery
	}
	return New(templates, l.MaxDistance, l.Strategy), nil
}

// FromDir embeds every enrolment image and builds a gallery. Images without a
// usable face are logged and skipped. With a Store, each student's templates
// replace the stored ones and students without a template in this run are
// removed, so the store always matches the enrolment directory. progress,
// when set, is called after every image.
func (l *Loader) FromDir(ctx context.Context, progress func(done, total int)) (*Gallery, error) {
	images, err := ScanDir(l.Dir)
	if err != nil {
		return nil, err
	}

	var templates []database.StoredTemplate
	for i, img := range images {
		t, err := l.embed(ctx, img)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("Skipping enrolment image %s: %v", img.Path, err)
		} else {
			templates = append(templates, *t)
		}
		if progress != nil {
			progress(i+1, len(images))
		}
	}

	if len(templates) == 0 {
		return nil, ErrEmptyGallery
	}

	if l.Store != nil {
		if err := l.persist(ctx, templates); err != nil {
			return nil, err
		}
	}

	return New(templates, l.MaxDistance, l.Strategy), nil
}

func (l *Loader) embed(ctx context.Context, img Image) (*database.StoredTemplate, error) {
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	face, model, err := l.Embedder.EmbedSingleFace(ctx, data)
	if err != nil {
		return nil, err
	}
	return &database.StoredTemplate{
		Name:      img.Name,
		Source:    img.Path,
		Embedding: face.Embedding,
		DetScore:  face.DetScore,
		Model:     model,
		Dim:       len(face.Embedding),
	}, nil
}

func (l *Loader) persist(ctx context.Context, templates []database.StoredTemplate) error {
	byName := make(map[string][]database.StoredTemplate)
	var names []string
	for _, t := range templates {
		if _, ok := byName[t.Name]; !ok {
			names = append(names, t.Name)
		}
		byName[t.Name] = append(byName[t.Name], t)
	}
	for _, name := range names {
		if err := l.Store.ReplaceTemplates(ctx, name, byName[name]); err != nil {
			return fmt.Errorf("saving templates of %s: %w", name, err)
		}
	}

	stored, err := l.Store.GetTemplates(ctx)
	if err != nil {
		return fmt.Errorf("loading stored templates: %w", err)
	}
	removed := make(map[string]bool)
	for _, t := range stored {
		if _, ok := byName[t.Name]; ok || removed[t.Name] {
			continue
		}
		if err := l.Store.DeleteTemplates(ctx, t.Name); err != nil {
			return fmt.Errorf("removing templates of %s: %w", t.Name, err)
		}
		removed[t.Name] = true
		log.Printf("Removed stored templates of %s: no longer enrolled", t.Name)
	}
	return nil
}
