package bjpeg

import "bjpeg/internal/jpegstream"

// Kind enumerates every way Decode can fail.
type Kind = jpegstream.Kind

// Error is the single error type Decode returns on failure.
type Error = jpegstream.Error

// The error kinds a caller can match against with errors.Is, e.g.
// errors.Is(err, bjpeg.ErrNotBaseline).
var (
	ErrBadMagic            = jpegstream.Err(jpegstream.BadMagic)
	ErrUnexpectedEnd       = jpegstream.Err(jpegstream.UnexpectedEnd)
	ErrBadSegmentLength    = jpegstream.Err(jpegstream.BadSegmentLength)
	ErrUnknownMarker       = jpegstream.Err(jpegstream.UnknownMarker)
	ErrDuplicateSegment    = jpegstream.Err(jpegstream.DuplicateSegment)
	ErrMalformedTree       = jpegstream.Err(jpegstream.MalformedTree)
	ErrInvalidCode         = jpegstream.Err(jpegstream.InvalidCode)
	ErrMissingTable        = jpegstream.Err(jpegstream.MissingTable)
	ErrNotBaseline         = jpegstream.Err(jpegstream.NotBaseline)
	ErrUnsupportedSampling = jpegstream.Err(jpegstream.UnsupportedSampling)
	ErrDataUnitOverflow    = jpegstream.Err(jpegstream.DataUnitOverflow)
)
