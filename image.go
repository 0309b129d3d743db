package bjpeg

import "bjpeg/internal/jpegstream"

// Pixel is a single 8-bit RGB sample.
type Pixel = jpegstream.Pixel

// Image is the concrete output sink: a 2D grid of RGB pixels plus an
// optional comment, matching the SetSize/SetComment/PixelAt contract the
// core decoder depends on. The core never sees this type directly — it
// only sees the jpegstream.Sink interface Image satisfies.
type Image struct {
	width, height int
	pixels        []Pixel
	comment       string
}

// NewImage returns an empty image with no pixels allocated yet; SetSize
// allocates the pixel grid.
func NewImage() *Image {
	return &Image{}
}

// SetSize allocates a width x height pixel grid, discarding any previous
// contents.
func (img *Image) SetSize(width, height int) {
	img.width, img.height = width, height
	img.pixels = make([]Pixel, width*height)
}

// SetComment records the decoded COM segment's text, if any.
func (img *Image) SetComment(text string) {
	img.comment = text
}

// PixelAt returns a pointer to the pixel at (row, col) for in-place
// mutation by the decoder.
func (img *Image) PixelAt(row, col int) *Pixel {
	return &img.pixels[row*img.width+col]
}

// Width returns the image width in pixels.
func (img *Image) Width() int { return img.width }

// Height returns the image height in pixels.
func (img *Image) Height() int { return img.height }

// Comment returns the decoded comment text, or "" if none was present.
func (img *Image) Comment() string { return img.comment }

// At returns the pixel at (row, col) by value.
func (img *Image) At(row, col int) Pixel {
	return img.pixels[row*img.width+col]
}
