package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeRLE          = 10 // RLE compressed true-color
)

// TGA decoding errors.
var (
	ErrTGATruncated   = errors.New("TGA data truncated")
	ErrTGAUnsupported = errors.New("unsupported TGA variant")
)

// tgaReader walks TGA pixel data and places pixels in scan order.
type tgaReader struct {
	img         *image.RGBA
	data        []byte
	pos         int
	width       int
	height      int
	bpp         int // Bytes per pixel
	topToBottom bool
	placed      int
}

// next reads one BGR(A) pixel.
func (r *tgaReader) next() (color.RGBA, bool) {
	if r.pos+r.bpp > len(r.data) {
		return color.RGBA{}, false
	}
	p := r.data[r.pos:]
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if r.bpp == 4 {
		c.A = p[3]
	}
	r.pos += r.bpp
	return c, true
}

// put stores c at the next position. Returns false once the image is full.
func (r *tgaReader) put(c color.RGBA) bool {
	if r.placed >= r.width*r.height {
		return false
	}
	x := r.placed % r.width
	y := r.placed / r.width
	if !r.topToBottom {
		y = r.height - 1 - y
	}
	// Premultiply so the result composes correctly with draw.Over
	if c.A < 255 {
		c.R = uint8(uint16(c.R) * uint16(c.A) / 255)
		c.G = uint8(uint16(c.G) * uint16(c.A) / 255)
		c.B = uint8(uint16(c.B) * uint16(c.A) / 255)
	}
	r.img.SetRGBA(x, y, c)
	r.placed++
	return true
}

// DecodeTGA decodes uncompressed (type 2) and RLE (type 10) true-color TGA
// data with 24 or 32 bits per pixel.
func DecodeTGA(data []byte) (*image.RGBA, error) {
	if len(data) < 18 {
		return nil, fmt.Errorf("%w: header", ErrTGATruncated)
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bits := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped", ErrTGAUnsupported)
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("%w: type %d", ErrTGAUnsupported, imageType)
	}
	if bits != 24 && bits != 32 {
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrTGAUnsupported, bits)
	}

	offset := 18 + idLength
	if offset > len(data) {
		return nil, fmt.Errorf("%w: id field", ErrTGATruncated)
	}

	r := &tgaReader{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		data:        data[offset:],
		width:       width,
		height:      height,
		bpp:         bits / 8,
		topToBottom: descriptor&0x20 != 0,
	}

	if imageType == TGATypeUncompressed {
		if len(r.data) < width*height*r.bpp {
			return nil, fmt.Errorf("%w: pixel data", ErrTGATruncated)
		}
		for {
			c, ok := r.next()
			if !ok || !r.put(c) {
				break
			}
		}
		return r.img, nil
	}

	decodeTGARLE(r)
	return r.img, nil
}

// decodeTGARLE expands run-length packets. A short stream leaves the
// remaining pixels transparent.
func decodeTGARLE(r *tgaReader) {
	for r.placed < r.width*r.height && r.pos < len(r.data) {
		packet := r.data[r.pos]
		r.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := r.next()
			if !ok {
				return
			}
			for i := 0; i < count; i++ {
				if !r.put(c) {
					return
				}
			}
			continue
		}

		for i := 0; i < count; i++ {
			c, ok := r.next()
			if !ok || !r.put(c) {
				return
			}
		}
	}
}
