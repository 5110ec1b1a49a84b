package texture

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/arcanus/internal/engine/sprite"
	"github.com/Faultbox/arcanus/internal/logger"
)

// Source provides raw file bytes by name.
type Source interface {
	Load(name string) ([]byte, error)
}

type tintKey struct {
	name  string
	color color.RGBA
}

// Loader decodes images on first use and hands out the same bitmap for
// every later request of that file. Returned images must not be modified.
type Loader struct {
	src    Source
	images map[string]*image.RGBA
	tinted map[tintKey]*image.RGBA
	mu     sync.Mutex
	log    *zap.Logger
}

// NewLoader creates a loader reading from src.
func NewLoader(src Source) *Loader {
	return &Loader{
		src:    src,
		images: make(map[string]*image.RGBA),
		tinted: make(map[tintKey]*image.RGBA),
		log:    logger.Named("texture"),
	}
}

// Image returns the decoded image for name.
func (l *Loader) Image(name string) (*image.RGBA, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.image(name)
}

func (l *Loader) image(name string) (*image.RGBA, error) {
	if img, ok := l.images[name]; ok {
		return img, nil
	}

	data, err := l.src.Load(name)
	if err != nil {
		return nil, fmt.Errorf("loading image %s: %w", name, err)
	}
	img, err := Decode(name, data)
	if err != nil {
		return nil, err
	}

	l.images[name] = img
	l.log.Debug("decoded image",
		zap.String("name", name),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// Tinted returns image name multiplied by c, cached per (name, colour).
func (l *Loader) Tinted(name string, c color.RGBA) (*image.RGBA, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := tintKey{name: name, color: c}
	if img, ok := l.tinted[key]; ok {
		return img, nil
	}

	base, err := l.image(name)
	if err != nil {
		return nil, err
	}
	img := sprite.Tint(base, c)
	l.tinted[key] = img
	return img, nil
}

// Len returns the number of distinct decoded images, tinted variants excluded.
func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.images)
}

// Clear drops every decoded image.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.images = make(map[string]*image.RGBA)
	l.tinted = make(map[tintKey]*image.RGBA)
}
