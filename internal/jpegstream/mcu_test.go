package jpegstream

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"bjpeg/internal/bitio"
	"bjpeg/internal/huffman"
)

func singleSymbolTree(t *testing.T, symbol byte) *huffman.Tree {
	t.Helper()
	counts := make([]int, 16)
	counts[0] = 1
	tree, err := huffman.Build(counts, []byte{symbol})
	require.NoError(t, err)
	return tree
}

func readerFromBits(w *bitWriter) *bitio.Reader {
	return bitio.New(bufio.NewReader(bytes.NewReader(w.flush())))
}

// Property: the JPEG variable-length signed encoding round-trips through
// readSigned for a spread of magnitudes and signs.
func TestReadSignedRoundTrip(t *testing.T) {
	for _, diff := range []int32{0, 1, -1, 5, -5, 63, -63, 800, -800} {
		value, size := signedBits(diff)
		w := &bitWriter{}
		w.writeBits(value, size)
		r := readerFromBits(w)
		got, err := readSigned(r, byte(size))
		require.NoError(t, err)
		require.Equal(t, diff, got, "diff=%d", diff)
	}
}

// Property #6: a data unit with zero DC and no AC coefficients
// level-shifts to a uniform 128 (mid-gray) sample plane.
func TestDecodeOneDataUnitAllZeroLevelShiftsTo128(t *testing.T) {
	dcTree := singleSymbolTree(t, 0) // size 0 -> diff 0, no value bits
	acTree := singleSymbolTree(t, 0) // (run=0,size=0) -> EOB

	w := &bitWriter{}
	w.writeBits(0, 1) // DC symbol code
	w.writeBits(0, 1) // AC EOB code
	r := readerFromBits(w)

	var qt QuantTable
	var prevDC int32
	samples, err := decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC)
	require.NoError(t, err)
	for _, s := range samples {
		require.Equal(t, float64(128), s)
	}
}

// S3: a single DC coefficient of 800, quantization table entry 1 at
// position 0, and no AC coefficients. The all-DC inverse DCT produces a
// uniform spatial sample of F(0,0)/8 = 100, which level-shifts to 228.
func TestDecodeOneDataUnitDCOnlyMatchesIDCTFormula(t *testing.T) {
	dcTree := singleSymbolTree(t, 10) // size 10
	acTree := singleSymbolTree(t, 0)  // EOB

	value, size := signedBits(800)
	require.Equal(t, 10, size)
	w := &bitWriter{}
	w.writeBits(0, 1) // DC symbol code
	w.writeBits(value, size)
	w.writeBits(0, 1) // AC EOB code
	r := readerFromBits(w)

	var qt QuantTable
	qt[0] = 1
	var prevDC int32
	samples, err := decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC)
	require.NoError(t, err)
	for _, s := range samples {
		require.InDelta(t, 228, s, 0.5)
	}
}

// Property #3: DC coefficients are predicted from the running sum of
// prior differences within the same channel, not decoded absolutely.
func TestDCPredictionAccumulates(t *testing.T) {
	dcTree := singleSymbolTree(t, 1) // size 1
	acTree := singleSymbolTree(t, 0) // EOB

	w := &bitWriter{}
	// First data unit: diff = +1.
	w.writeBits(0, 1)
	w.writeBits(1, 1)
	w.writeBits(0, 1)
	// Second data unit: diff = +1 again, so absolute DC becomes 2.
	w.writeBits(0, 1)
	w.writeBits(1, 1)
	w.writeBits(0, 1)
	r := readerFromBits(w)

	var qt QuantTable
	qt[0] = 8
	var prevDC int32

	first, err := decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC)
	require.NoError(t, err)
	require.Equal(t, int32(1), prevDC)
	require.InDelta(t, 129, first[0], 0.5) // 128 + (1*8)/8

	second, err := decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC)
	require.NoError(t, err)
	require.Equal(t, int32(2), prevDC)
	require.InDelta(t, 130, second[0], 0.5) // 128 + (2*8)/8
}

// Property #1 (entropy-stream half): truncation inside the scan payload
// surfaces as a Kind-tagged UnexpectedEnd, not a bare bitio sentinel.
func TestDecodeOneDataUnitTruncatedScanIsUnexpectedEnd(t *testing.T) {
	dcTree := singleSymbolTree(t, 10) // size 10, needs 10 value bits
	acTree := singleSymbolTree(t, 0)

	w := &bitWriter{}
	w.writeBits(0, 1) // DC code only, no value bits follow
	r := readerFromBits(w)

	var qt QuantTable
	var prevDC int32
	_, err := decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC)
	require.ErrorIs(t, err, Err(UnexpectedEnd))
}

// A bit with no corresponding Huffman child surfaces as a Kind-tagged
// InvalidCode, not the bare huffman sentinel.
func TestDecodeOneDataUnitBadCodeIsInvalidCode(t *testing.T) {
	counts := make([]int, 16)
	counts[0] = 1
	dcTree, err := huffman.Build(counts, []byte{0}) // only code "0" exists
	require.NoError(t, err)
	acTree := singleSymbolTree(t, 0)

	w := &bitWriter{}
	w.writeBits(1, 1) // "1" has no right child in a single-leaf tree
	r := readerFromBits(w)

	var qt QuantTable
	var prevDC int32
	_, err = decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC)
	require.ErrorIs(t, err, Err(InvalidCode))
}

func TestDecodeOneDataUnitACRunOverflowErrors(t *testing.T) {
	dcTree := singleSymbolTree(t, 0)
	// AC symbol (run=15,size=1) repeated until the run pushes k past 63.
	acTree := singleSymbolTree(t, 0xF1)

	w := &bitWriter{}
	w.writeBits(0, 1) // DC: diff 0
	for i := 0; i < 3; i++ {
		w.writeBits(0, 1) // AC symbol code
		w.writeBits(0, 1) // the size-1 coefficient value bit
	}
	w.writeBits(0, 1) // 4th AC symbol: k=49+15=64, overflows before reading a value
	r := readerFromBits(w)

	var qt QuantTable
	var prevDC int32
	_, err := decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC)
	require.ErrorIs(t, err, Err(DataUnitOverflow))
}

type fakeSink struct {
	width, height int
	comment       string
	pixels        map[[2]int]*Pixel
}

func newFakeSink() *fakeSink {
	return &fakeSink{pixels: make(map[[2]int]*Pixel)}
}

func (s *fakeSink) SetSize(w, h int)      { s.width, s.height = w, h }
func (s *fakeSink) SetComment(text string) { s.comment = text }
func (s *fakeSink) PixelAt(row, col int) *Pixel {
	key := [2]int{row, col}
	if px, ok := s.pixels[key]; ok {
		return px
	}
	px := &Pixel{}
	s.pixels[key] = px
	return px
}

// Property #5: only pixels within [0,width) x [0,height) are written,
// even when the MCU grid overhangs the image (non-multiple-of-8 sizes).
func TestDecodeMCUsCropsOverhangingMCU(t *testing.T) {
	ctx := NewContext()
	require.NoError(t, handleSOF0(ctx, sof0Segment(3, 3, []testChannel{{id: 1, h: 1, v: 1, qt: 0}})))
	require.NoError(t, handleDHT(ctx, dhtSegment(0, 0, 0)))
	require.NoError(t, handleDHT(ctx, dhtSegment(1, 0, 0)))
	require.NoError(t, handleDQT(ctx, dqtSegment(0, [64]byte{})))
	require.NoError(t, handleSOS(ctx, sosSegment([]scanChannel{{id: 1, dc: 0, ac: 0}}, 0x00, 0x3F, 0x00)))

	w := &bitWriter{}
	w.writeBits(0, 1) // DC symbol -> diff 0
	w.writeBits(0, 1) // AC EOB
	scan := w.flush()

	sink := newFakeSink()
	require.NoError(t, DecodeMCUs(ctx, scan, sink))
	require.Equal(t, 3, sink.width)
	require.Equal(t, 3, sink.height)
	require.Len(t, sink.pixels, 9) // only the 3x3 region, not the full 8x8 MCU
}
