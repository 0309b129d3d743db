package jpegstream

import (
	"sort"

	"bjpeg/internal/bitio"
)

// Marker values recognized by the segmenter.
const (
	SOI   uint16 = 0xFFD8
	EOI   uint16 = 0xFFD9
	COM   uint16 = 0xFFFE
	DQT   uint16 = 0xFFDB
	DHT   uint16 = 0xFFC4
	SOF0  uint16 = 0xFFC0
	SOS   uint16 = 0xFFDA
	app0  uint16 = 0xFFE0
	app15 uint16 = 0xFFEF
)

func isAPPn(marker uint16) bool { return marker >= app0 && marker <= app15 }

// Segment is one marker segment as produced by the segmenter: Body is the
// raw payload bytes after the 2-byte length prefix (SOI/EOI have none);
// Scan holds the de-stuffed entropy-coded payload that trails an SOS
// segment.
type Segment struct {
	Marker uint16
	Length uint16 // as declared in the stream, including itself
	Body   []byte
	Scan   []byte // only populated for SOS
}

// segmentPriority orders the four essential segments for the processor;
// everything else (COM, APPn) is unordered relative to them but keeps its
// original relative order, via a stable sort.
func segmentPriority(marker uint16) int {
	switch marker {
	case SOF0:
		return 0
	case DHT:
		return 1
	case DQT:
		return 2
	case SOS:
		return 3
	default:
		return 4
	}
}

// ReadSegments scans r into an ordered list of segments: SOI is validated,
// EOI terminates collection, and the four essential segments (SOF0, DHT,
// DQT, SOS) are stably reordered so the processor sees them in that
// order. COM and APPn segments keep their original relative order.
func ReadSegments(r *bitio.Reader) ([]Segment, error) {
	marker, err := r.ReadU16BE()
	if err != nil {
		return nil, newErr(BadMagic, "could not read SOI")
	}
	if marker != SOI {
		return nil, newErr(BadMagic, "stream does not open with SOI")
	}

	var segments []Segment
	var sawSOF0, sawSOS bool
	var pending uint16
	havePending := false

	for {
		var m uint16
		if havePending {
			m = pending
			havePending = false
		} else {
			var err error
			m, err = readMarker(r)
			if err != nil {
				return nil, err
			}
		}

		switch {
		case m == EOI:
			if !sawSOF0 || !sawSOS {
				return nil, newErr(UnknownMarker, "EOI reached while still expecting header data")
			}
			return reorder(segments), nil
		case m == SOI:
			return nil, newErr(UnknownMarker, "duplicate SOI")
		case m == SOF0:
			if sawSOF0 {
				return nil, newErr(DuplicateSegment, "duplicate SOF0")
			}
			sawSOF0 = true
			seg, err := readLengthPrefixed(r, m)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
		case m == SOS:
			if sawSOS {
				return nil, newErr(DuplicateSegment, "duplicate SOS")
			}
			sawSOS = true
			seg, err := readLengthPrefixed(r, m)
			if err != nil {
				return nil, err
			}
			scan, next, err := readScanData(r)
			if err != nil {
				return nil, err
			}
			seg.Scan = scan
			segments = append(segments, seg)
			pending = next
			havePending = true
		case m == DHT || m == DQT || m == COM || isAPPn(m):
			seg, err := readLengthPrefixed(r, m)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
		default:
			return nil, newErr(UnknownMarker, "marker %#04x not recognized", m)
		}
	}
}

// readMarker reads a two-byte marker, collapsing any run of 0xFF fill
// bytes that precedes the marker's identifying low byte into a single
// marker prefix.
func readMarker(r *bitio.Reader) (uint16, error) {
	b1, err := r.ReadByteAligned()
	if err != nil {
		return 0, newErr(UnexpectedEnd, "reading marker")
	}
	if b1 != 0xFF {
		return 0, newErr(UnknownMarker, "expected marker prefix 0xFF, got %#02x", b1)
	}
	for {
		b2, err := r.ReadByteAligned()
		if err != nil {
			return 0, newErr(UnexpectedEnd, "reading marker")
		}
		if b2 == 0xFF {
			continue // fill byte, keep looking for the real marker byte
		}
		return 0xFF00 | uint16(b2), nil
	}
}

// readLengthPrefixed reads the 2-byte big-endian length and the following
// length-2 payload bytes for any marker except SOI/EOI.
func readLengthPrefixed(r *bitio.Reader, marker uint16) (Segment, error) {
	length, err := r.ReadU16BE()
	if err != nil {
		return Segment{}, newErr(UnexpectedEnd, "reading segment length")
	}
	if length < 2 {
		return Segment{}, newErr(BadSegmentLength, "length %d < 2", length)
	}
	body, err := r.ReadString(int(length - 2))
	if err != nil {
		return Segment{}, newErr(UnexpectedEnd, "reading segment body")
	}
	return Segment{Marker: marker, Length: length, Body: body}, nil
}

// readScanData reads the entropy-coded payload following an SOS segment's
// header, undoing byte stuffing (0xFF 0x00 -> literal 0xFF) and stopping
// at the next real marker, which it returns for the caller to process
// without re-reading its prefix bytes.
func readScanData(r *bitio.Reader) (scan []byte, next uint16, err error) {
	for {
		b, err := r.ReadByteAligned()
		if err != nil {
			return nil, 0, newErr(UnexpectedEnd, "reading scan data")
		}
		if b != 0xFF {
			scan = append(scan, b)
			continue
		}
		b2, err := r.ReadByteAligned()
		if err != nil {
			return nil, 0, newErr(UnexpectedEnd, "reading scan data")
		}
		if b2 == 0x00 {
			scan = append(scan, 0xFF)
			continue
		}
		return scan, 0xFF00 | uint16(b2), nil
	}
}

func reorder(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	copy(out, segments)
	sort.SliceStable(out, func(i, j int) bool {
		return segmentPriority(out[i].Marker) < segmentPriority(out[j].Marker)
	})
	return out
}
