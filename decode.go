// Package bjpeg decodes baseline sequential JPEG (SOF0, 8-bit samples,
// Huffman coding) byte streams into RGB pixel grids. Progressive JPEG,
// arithmetic coding, restart markers, hierarchical mode and 12-bit
// samples are not supported.
package bjpeg

import (
	"bufio"
	"io"

	"bjpeg/internal/jpegstream"
)

// Decode reads a baseline sequential JPEG stream from r and returns the
// decoded image. It is the top-level entry point: it drives marker
// segmentation, Huffman/quantization table construction, entropy
// decoding, and color conversion, and returns the fully populated image
// or the first error encountered. No partial image is ever returned.
func Decode(r io.Reader) (*Image, error) {
	img := NewImage()
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	if err := jpegstream.Decode(br, img); err != nil {
		return nil, err
	}
	return img, nil
}
