package jpegstream

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"bjpeg/internal/bitio"
)

func readSegmentsFromBytes(t *testing.T, data []byte) ([]Segment, error) {
	t.Helper()
	return ReadSegments(bitio.New(bufio.NewReader(bytes.NewReader(data))))
}

func TestReadSegmentsBadMagic(t *testing.T) {
	_, err := readSegmentsFromBytes(t, []byte{0x00, 0x01, 0xFF, 0xD9})
	require.ErrorIs(t, err, Err(BadMagic))
}

func TestReadMarkerCollapsesFillBytes(t *testing.T) {
	// A run of 0xFF fill bytes before the real marker byte must be
	// collapsed into a single marker read.
	data := []byte{0xFF, 0xFF, 0xFF, 0xD9}
	r := bitio.New(bufio.NewReader(bytes.NewReader(data)))
	marker, err := readMarker(r)
	require.NoError(t, err)
	require.Equal(t, EOI, marker)
}

func TestReadSegmentsUnknownMarkerBeforeSOF0(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(be16(SOI))
	buf.Write(be16(EOI))
	_, err := readSegmentsFromBytes(t, buf.Bytes())
	require.Error(t, err)
	require.ErrorIs(t, err, Err(UnknownMarker))
}

func TestReadSegmentsBadSegmentLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(be16(SOI))
	buf.Write(be16(DQT))
	// Length field below the minimum of 2 is malformed.
	buf.Write(be16(1))
	_, err := readSegmentsFromBytes(t, buf.Bytes())
	require.ErrorIs(t, err, Err(BadSegmentLength))
}

func TestReadSegmentsTruncatedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(be16(SOI))
	buf.Write(be16(DQT))
	buf.Write(be16(10))
	buf.WriteByte(0x00) // declares 10 bytes of body, supplies only 1
	_, err := readSegmentsFromBytes(t, buf.Bytes())
	require.Error(t, err)
}

func TestReadSegmentsReordersBySegmentPriority(t *testing.T) {
	b := newJPEGBuilder()
	b.dhtSingleSymbol(0, 0, 1)
	b.dqt(0, [64]byte{})
	b.sof0(1, 1, []testChannel{{id: 1, h: 1, v: 1, qt: 0}})
	sw := &bitWriter{}
	b.sos([]scanChannel{{id: 1, dc: 0, ac: 0}}, 0, 0x3F, 0, sw)
	data := b.eoi()

	segs, err := readSegmentsFromBytes(t, data)
	require.NoError(t, err)
	require.True(t, len(segs) >= 4)
	require.Equal(t, uint16(SOF0), segs[0].Marker)
	require.Equal(t, uint16(DHT), segs[1].Marker)
	require.Equal(t, uint16(DQT), segs[2].Marker)
	require.Equal(t, uint16(SOS), segs[3].Marker)
}

// Property #1: truncating a well-formed stream at any byte position,
// scan data included, never panics, and always resolves to either
// success or a reported error.
func TestReadSegmentsTruncationNeverPanics(t *testing.T) {
	b := newJPEGBuilder()
	b.dhtSingleSymbol(0, 0, 1)
	b.dhtSingleSymbol(1, 0, 0)
	b.dqt(0, [64]byte{})
	b.sof0(1, 1, []testChannel{{id: 1, h: 1, v: 1, qt: 0}})
	sw := &bitWriter{}
	sw.writeBits(0, 1)
	sw.writeBits(0, 1)
	b.sos([]scanChannel{{id: 1, dc: 0, ac: 0}}, 0, 0x3F, 0, sw)
	full := b.eoi()

	for cut := 1; cut < len(full); cut++ {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("panic at truncation length %d: %v", cut, r)
				}
			}()
			_, _ = readSegmentsFromBytes(t, full[:cut])
		}()
	}
}
