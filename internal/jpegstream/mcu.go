package jpegstream

import (
	"errors"
	"math"

	"bjpeg/internal/bitio"
	"bjpeg/internal/huffman"
	"bjpeg/internal/idct"
)

// Pixel is a single RGB sample, clamped to [0, 2^precision-1] (always
// [0,255] for the 8-bit precision this decoder supports).
type Pixel struct {
	R, G, B byte
}

// Sink is the output image collaborator: opaque to the core decoder,
// which only needs to set the image size, record an optional comment,
// and write pixels.
type Sink interface {
	SetSize(width, height int)
	SetComment(text string)
	PixelAt(row, col int) *Pixel
}

// DecodeMCUs runs the MCU pipeline over scan (the de-stuffed
// entropy-coded payload that followed SOS), writing decoded pixels into
// sink. ctx must already have been populated by ApplySegments.
func DecodeMCUs(ctx *Context, scan []byte, sink Sink) error {
	sink.SetSize(ctx.Width, ctx.Height)

	r := bodyReader(scan)
	prevDC := make([]int32, len(ctx.Channels))
	acc := newAccumulator(ctx.MCUHeightPx, ctx.MCUWidthPx)

	for mcuRow := 0; mcuRow < ctx.MCURows; mcuRow++ {
		for mcuCol := 0; mcuCol < ctx.MCUCols; mcuCol++ {
			clear(acc.r)
			clear(acc.g)
			clear(acc.b)

			for chIdx := range ctx.Channels {
				ch := &ctx.Channels[chIdx]
				dcTree := ctx.DCTables[ch.DCTableID]
				acTree := ctx.ACTables[ch.ACTableID]
				qt := ctx.QTables[ch.QTID]

				for duY := 0; duY < int(ch.RawV); duY++ {
					for duX := 0; duX < int(ch.RawH); duX++ {
						samples, err := decodeOneDataUnit(r, dcTree, acTree, qt, &prevDC[chIdx])
						if err != nil {
							return err
						}
						kind := channelKind(len(ctx.Channels), chIdx)
						accumulate(acc, samples, kind, duY*8, duX*8, int(ch.V), int(ch.H))
					}
				}
			}

			writeMCU(sink, acc, ctx, mcuRow, mcuCol)
		}
	}
	return nil
}

type chKind int

const (
	kindY chKind = iota
	kindCb
	kindCr
)

func channelKind(numChannels, idx int) chKind {
	if numChannels == 1 {
		return kindY
	}
	switch idx {
	case 0:
		return kindY
	case 1:
		return kindCb
	default:
		return kindCr
	}
}

// decodeOneDataUnit entropy-decodes one data unit's DC and AC
// coefficients, dequantizes, and runs the inverse DCT, returning 64
// level-shifted and clamped spatial samples in natural row-major order.
func decodeOneDataUnit(r *bitio.Reader, dcTree, acTree *huffman.Tree, qt QuantTable, prevDC *int32) ([64]float64, error) {
	var zigzag [64]int32

	dcSize, err := decodeHuffSymbol(r, dcTree)
	if err != nil {
		return [64]float64{}, err
	}
	if dcSize > 15 {
		return [64]float64{}, newErr(DataUnitOverflow, "DC size %d out of range", dcSize)
	}
	diff, err := readSigned(r, byte(dcSize))
	if err != nil {
		return [64]float64{}, err
	}
	*prevDC += diff
	zigzag[0] = *prevDC

	k := 1
	for k < 64 {
		rs, err := decodeHuffSymbol(r, acTree)
		if err != nil {
			return [64]float64{}, err
		}
		run := byte(rs >> 4)
		size := byte(rs & 0x0F)
		if size == 0 {
			if run == 15 {
				k += 16
				if k >= 64 {
					return [64]float64{}, newErr(DataUnitOverflow, "AC run overflowed data unit")
				}
				continue
			}
			break // (0,0): fill remainder with zeros
		}
		k += int(run)
		if k >= 64 {
			return [64]float64{}, newErr(DataUnitOverflow, "AC run overflowed data unit")
		}
		val, err := readSigned(r, size)
		if err != nil {
			return [64]float64{}, err
		}
		zigzag[k] = val
		k++
	}

	var natural [64]int32
	deZigZag(zigzag, &natural)

	var coeffs [64]float64
	for i, v := range natural {
		coeffs[i] = float64(v) * float64(qt[i])
	}

	samples := idct.Transform(coeffs)
	for i := range samples {
		samples[i] = levelShiftClamp(samples[i])
	}
	return samples, nil
}

func decodeHuffSymbol(r *bitio.Reader, tree *huffman.Tree) (uint16, error) {
	sym, err := tree.Decode(func() (byte, error) { return r.ReadBit() })
	if err != nil {
		return 0, wrapEntropyErr(err)
	}
	return sym, nil
}

// wrapEntropyErr converts the bare sentinel errors surfaced by bitio and
// huffman during entropy decoding into a Kind-tagged *Error, matching
// every other failure path in the package.
func wrapEntropyErr(err error) error {
	switch {
	case errors.Is(err, bitio.ErrUnexpectedEnd):
		return newErr(UnexpectedEnd, "entropy stream: %v", err)
	case errors.Is(err, huffman.ErrInvalidCode):
		return newErr(InvalidCode, "entropy stream: %v", err)
	default:
		return err
	}
}

// readSigned decodes a JPEG variable-length signed integer from size
// bits: if the first bit is 1 the value is the unsigned number formed by
// the bits; if it is 0, the value is unsigned - 2^size + 1. size==0
// yields 0.
func readSigned(r *bitio.Reader, size byte) (int32, error) {
	if size == 0 {
		return 0, nil
	}
	bits, err := r.ReadBits(size)
	if err != nil {
		return 0, wrapEntropyErr(err)
	}
	v := int32(bits)
	if v < (1 << (size - 1)) {
		v -= (1 << size) - 1
	}
	return v, nil
}

func levelShiftClamp(v float64) float64 {
	v = math.Round(v) + 128
	return clamp(v)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// accumulator holds per-MCU RGB planes, row-major, (height*width) long.
type accumulator struct {
	height, width int
	r, g, b       []float64
}

func newAccumulator(height, width int) *accumulator {
	n := height * width
	return &accumulator{
		height: height, width: width,
		r: make([]float64, n), g: make([]float64, n), b: make([]float64, n),
	}
}

// accumulate up-samples one channel's 8x8 data unit by duplication into a
// (vMult*8) x (hMult*8) region at MCU-local offset (rowOff, colOff), and
// folds each up-sampled sample into the running RGB planes per the
// channel's color-conversion formula.
func accumulate(acc *accumulator, samples [64]float64, kind chKind, rowOff, colOff, vMult, hMult int) {
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			v := samples[i*8+j]
			for dy := 0; dy < vMult; dy++ {
				for dx := 0; dx < hMult; dx++ {
					row := rowOff + i*vMult + dy
					col := colOff + j*hMult + dx
					idx := row*acc.width + col
					switch kind {
					case kindY:
						acc.r[idx] += v
						acc.g[idx] += v
						acc.b[idx] += v
					case kindCb:
						acc.g[idx] += -0.34414 * (v - 128)
						acc.b[idx] += 1.772 * (v - 128)
					case kindCr:
						acc.r[idx] += 1.402 * (v - 128)
						acc.g[idx] += -0.71414 * (v - 128)
					}
				}
			}
		}
	}
}

// writeMCU rounds and clamps the accumulator's RGB planes and writes them
// into sink at the MCU's absolute pixel offset, cropping against the
// image extent.
func writeMCU(sink Sink, acc *accumulator, ctx *Context, mcuRow, mcuCol int) {
	baseRow := mcuRow * ctx.MCUHeightPx
	baseCol := mcuCol * ctx.MCUWidthPx
	for i := 0; i < acc.height; i++ {
		row := baseRow + i
		if row >= ctx.Height {
			continue
		}
		for j := 0; j < acc.width; j++ {
			col := baseCol + j
			if col >= ctx.Width {
				continue
			}
			idx := i*acc.width + j
			px := sink.PixelAt(row, col)
			px.R = byte(clamp(math.Round(acc.r[idx])))
			px.G = byte(clamp(math.Round(acc.g[idx])))
			px.B = byte(clamp(math.Round(acc.b[idx])))
		}
	}
}
