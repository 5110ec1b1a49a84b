// Package debug writes rendered bitmaps to disk for inspection.
package debug

import (
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// ErrNoFrames is returned when asked to save an empty frame list.
var ErrNoFrames = errors.New("no frames to save")

// Capture saves bitmaps under outputDir with a common file name prefix.
type Capture struct {
	outputDir string
	prefix    string
}

// NewCapture creates a capture writing to outputDir.
func NewCapture(outputDir, prefix string) *Capture {
	return &Capture{
		outputDir: outputDir,
		prefix:    prefix,
	}
}

// Filename returns the path a file named prefix_suffix would be written to.
func (c *Capture) Filename(suffix string) string {
	filename := c.prefix + "_" + suffix
	if c.outputDir != "" {
		filename = filepath.Join(c.outputDir, filename)
	}
	return filename
}

// SaveImage writes img as prefix_suffix.png.
func (c *Capture) SaveImage(suffix string, img image.Image) (string, error) {
	if err := c.ensureDir(); err != nil {
		return "", err
	}

	filename := c.Filename(suffix + ".png")
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return filename, nil
}

// SaveFrames writes each frame as prefix_frameNN.png and returns the paths.
func (c *Capture) SaveFrames(frames []*image.RGBA) ([]string, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}

	paths := make([]string, 0, len(frames))
	for i, fr := range frames {
		path, err := c.SaveImage(fmt.Sprintf("frame%02d", i), fr)
		if err != nil {
			return paths, fmt.Errorf("frame %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveGIF writes the frames as a looping animated prefix.gif. delay is in
// hundredths of a second per frame.
func (c *Capture) SaveGIF(frames []*image.RGBA, delay int) (string, error) {
	if len(frames) == 0 {
		return "", ErrNoFrames
	}
	if err := c.ensureDir(); err != nil {
		return "", err
	}

	anim := &gif.GIF{}
	for _, fr := range frames {
		anim.Image = append(anim.Image, Paletted(fr))
		anim.Delay = append(anim.Delay, delay)
	}

	filename := c.Filename("anim.gif")
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer file.Close()

	if err := gif.EncodeAll(file, anim); err != nil {
		return "", fmt.Errorf("encoding GIF: %w", err)
	}
	return filename, nil
}

// Paletted dithers img onto the Plan 9 palette.
func Paletted(img image.Image) *image.Paletted {
	b := img.Bounds()
	out := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
	draw.FloydSteinberg.Draw(out, out.Bounds(), img, b.Min)
	return out
}

func (c *Capture) ensureDir() error {
	if c.outputDir == "" {
		return nil
	}
	if err := os.MkdirAll(c.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	return nil
}
