package jpegstream

import "fmt"

// Kind enumerates every way a decode can fail. Each failure path maps to
// exactly one Kind; no error is retried and no partial result is ever
// returned.
type Kind int

const (
	// BadMagic: the stream does not open with SOI.
	BadMagic Kind = iota
	// UnexpectedEnd: a read ran past the end of the stream or segment payload.
	UnexpectedEnd
	// BadSegmentLength: declared length < 2, or it disagrees with the payload.
	BadSegmentLength
	// UnknownMarker: a marker outside the recognized set.
	UnknownMarker
	// DuplicateSegment: SOF0/SOS seen twice, or a duplicate DHT/DQT id.
	DuplicateSegment
	// MalformedTree: DHT lengths inconsistent with the value count, or depth > 16.
	MalformedTree
	// InvalidCode: the entropy stream reached a nonexistent Huffman child.
	InvalidCode
	// MissingTable: SOS referenced a DC/AC/QT id never defined.
	MissingTable
	// NotBaseline: progressive trailer, precision != 8, or other unsupported flag.
	NotBaseline
	// UnsupportedSampling: a sampling multiplier outside {1, 2}, or a zero factor.
	UnsupportedSampling
	// DataUnitOverflow: an AC run-length wrote more than 63 AC coefficients.
	DataUnitOverflow
)

func (k Kind) String() string {
	switch k {
	case BadMagic:
		return "BadMagic"
	case UnexpectedEnd:
		return "UnexpectedEnd"
	case BadSegmentLength:
		return "BadSegmentLength"
	case UnknownMarker:
		return "UnknownMarker"
	case DuplicateSegment:
		return "DuplicateSegment"
	case MalformedTree:
		return "MalformedTree"
	case InvalidCode:
		return "InvalidCode"
	case MissingTable:
		return "MissingTable"
	case NotBaseline:
		return "NotBaseline"
	case UnsupportedSampling:
		return "UnsupportedSampling"
	case DataUnitOverflow:
		return "DataUnitOverflow"
	default:
		return "Unknown"
	}
}

// Error is the single error type surfaced by the decoder. It carries the
// failure Kind plus a human-readable detail, following the teacher's
// habit of naming the failing field in the message.
type Error struct {
	Kind   Kind
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return "jpegstream: " + e.Kind.String()
	}
	return fmt.Sprintf("jpegstream: %s: %s", e.Kind, e.Detail)
}

// Is supports errors.Is against a bare Kind-tagged *Error sentinel, so
// callers can write errors.Is(err, jpegstream.Err(jpegstream.NotBaseline)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Err builds a sentinel *Error of the given Kind, for use with errors.Is.
func Err(k Kind) *Error { return &Error{Kind: k} }

func newErr(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Detail: fmt.Sprintf(format, args...)}
}
