package jpegstream

import (
	"bufio"

	"bjpeg/internal/bitio"
)

// Decode drives the full pipeline over src: marker segmentation, segment
// handler dispatch, and the MCU pipeline, writing the result into sink.
func Decode(src *bufio.Reader, sink Sink) error {
	r := bitio.New(src)

	segments, err := ReadSegments(r)
	if err != nil {
		return err
	}

	ctx := NewContext()
	var comment string
	hasComment := false
	if err := ApplySegments(ctx, segments, func(s string) { comment = s; hasComment = true }); err != nil {
		return err
	}

	var scan []byte
	for _, seg := range segments {
		if seg.Marker == SOS {
			scan = seg.Scan
			break
		}
	}

	if err := DecodeMCUs(ctx, scan, sink); err != nil {
		return err
	}
	if hasComment {
		sink.SetComment(comment)
	}
	return nil
}
