package jpegstream

import (
	"bufio"
	"bytes"

	"bjpeg/internal/bitio"
	"bjpeg/internal/huffman"
)

func bodyReader(body []byte) *bitio.Reader {
	return bitio.New(bufio.NewReader(bytes.NewReader(body)))
}

// ApplySegments feeds the (already reordered) segment list into the
// matching handler for each marker kind, building up ctx. setComment
// receives the payload of a COM segment, if any.
func ApplySegments(ctx *Context, segments []Segment, setComment func(string)) error {
	for _, seg := range segments {
		var err error
		switch seg.Marker {
		case SOF0:
			err = handleSOF0(ctx, seg)
		case DHT:
			err = handleDHT(ctx, seg)
		case DQT:
			err = handleDQT(ctx, seg)
		case COM:
			if setComment != nil {
				setComment(string(seg.Body))
			}
		case SOS:
			err = handleSOS(ctx, seg)
		default:
			if isAPPn(seg.Marker) {
				// APPn payloads are accepted but ignored.
				continue
			}
			err = newErr(UnknownMarker, "marker %#04x not recognized", seg.Marker)
		}
		if err != nil {
			return err
		}
	}
	if !ctx.sofSeen {
		return newErr(UnknownMarker, "no SOF0 segment present")
	}
	if !ctx.sosSeen {
		return newErr(UnknownMarker, "no SOS segment present")
	}
	return nil
}

func handleSOF0(ctx *Context, seg Segment) error {
	r := bodyReader(seg.Body)

	precision, err := r.ReadByteAligned()
	if err != nil {
		return newErr(UnexpectedEnd, "SOF0 precision")
	}
	if precision != 8 {
		return newErr(NotBaseline, "precision %d != 8", precision)
	}

	height, err := r.ReadU16BE()
	if err != nil {
		return newErr(UnexpectedEnd, "SOF0 height")
	}
	width, err := r.ReadU16BE()
	if err != nil {
		return newErr(UnexpectedEnd, "SOF0 width")
	}
	if height == 0 || width == 0 {
		return newErr(NotBaseline, "zero image dimension")
	}

	nf, err := r.ReadByteAligned()
	if err != nil {
		return newErr(UnexpectedEnd, "SOF0 component count")
	}
	if nf != 1 && nf != 3 {
		return newErr(UnsupportedSampling, "unsupported channel count %d", nf)
	}
	if int(seg.Length) != 8+3*int(nf) {
		return newErr(BadSegmentLength, "SOF0 length %d != %d", seg.Length, 8+3*int(nf))
	}

	channels := make([]Channel, nf)
	var hmax, vmax byte
	for i := 0; i < int(nf); i++ {
		id, err := r.ReadByteAligned()
		if err != nil {
			return newErr(UnexpectedEnd, "SOF0 channel id")
		}
		h, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "SOF0 channel H")
		}
		v, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "SOF0 channel V")
		}
		if h == 0 || v == 0 {
			return newErr(UnsupportedSampling, "zero sampling factor for channel %d", id)
		}
		qtID, err := r.ReadByteAligned()
		if err != nil {
			return newErr(UnexpectedEnd, "SOF0 channel QT id")
		}
		if h > hmax {
			hmax = h
		}
		if v > vmax {
			vmax = v
		}
		channels[i] = Channel{ID: id - 1, RawH: h, RawV: v, QTID: qtID}
	}

	for i := range channels {
		if hmax%channels[i].RawH != 0 || vmax%channels[i].RawV != 0 {
			return newErr(UnsupportedSampling, "sampling factor does not evenly divide max")
		}
		h := hmax / channels[i].RawH
		v := vmax / channels[i].RawV
		if h != 1 && h != 2 {
			return newErr(UnsupportedSampling, "H multiplier %d out of range", h)
		}
		if v != 1 && v != 2 {
			return newErr(UnsupportedSampling, "V multiplier %d out of range", v)
		}
		channels[i].H = h
		channels[i].V = v
	}

	ctx.Precision = precision
	ctx.Height = int(height)
	ctx.Width = int(width)
	ctx.Channels = channels
	ctx.HMax, ctx.VMax = hmax, vmax
	ctx.MCUWidthPx = int(hmax) * 8
	ctx.MCUHeightPx = int(vmax) * 8
	ctx.MCUCols = (ctx.Width + ctx.MCUWidthPx - 1) / ctx.MCUWidthPx
	ctx.MCURows = (ctx.Height + ctx.MCUHeightPx - 1) / ctx.MCUHeightPx
	ctx.sofSeen = true
	return nil
}

func handleDHT(ctx *Context, seg Segment) error {
	r := bodyReader(seg.Body)
	remaining := len(seg.Body)
	for remaining > 0 {
		tc, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "DHT class")
		}
		th, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "DHT id")
		}
		if tc > 1 {
			return newErr(MalformedTree, "invalid DHT class %d", tc)
		}
		remaining--

		counts := make([]int, 16)
		total := 0
		for i := 0; i < 16; i++ {
			c, err := r.ReadByteAligned()
			if err != nil {
				return newErr(UnexpectedEnd, "DHT counts")
			}
			counts[i] = int(c)
			total += int(c)
		}
		remaining -= 16

		values := make([]byte, total)
		for i := range values {
			v, err := r.ReadByteAligned()
			if err != nil {
				return newErr(UnexpectedEnd, "DHT values")
			}
			values[i] = v
		}
		remaining -= total

		// Anything left over must be enough to hold another table's
		// class/id byte plus its 16 count bytes; a smaller leftover means
		// this table's declared lengths didn't match the symbols actually
		// supplied for it.
		const minTableRecord = 1 + 16
		if remaining > 0 && remaining < minTableRecord {
			return newErr(MalformedTree, "DHT has %d leftover bytes, too few for another table", remaining)
		}

		tree, err := huffman.Build(counts, values)
		if err != nil {
			return newErr(MalformedTree, "%v", err)
		}

		var table map[byte]*huffman.Tree
		if tc == 0 {
			table = ctx.DCTables
		} else {
			table = ctx.ACTables
		}
		if _, exists := table[th]; exists {
			return newErr(DuplicateSegment, "duplicate huffman table id %d", th)
		}
		table[th] = tree
	}
	return nil
}

func handleDQT(ctx *Context, seg Segment) error {
	r := bodyReader(seg.Body)
	remaining := len(seg.Body)
	for remaining > 0 {
		pq, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "DQT element size")
		}
		tq, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "DQT id")
		}
		remaining--

		if _, exists := ctx.QTables[tq]; exists {
			return newErr(DuplicateSegment, "duplicate quant table id %d", tq)
		}

		var zigzag [64]int32
		for i := 0; i < 64; i++ {
			var v uint16
			if pq == 0 {
				b, err := r.ReadByteAligned()
				if err != nil {
					return newErr(UnexpectedEnd, "DQT value")
				}
				v = uint16(b)
				remaining--
			} else {
				w, err := r.ReadU16BE()
				if err != nil {
					return newErr(UnexpectedEnd, "DQT value")
				}
				v = w
				remaining -= 2
			}
			zigzag[i] = int32(v)
		}

		var natural [64]int32
		deZigZag(zigzag, &natural)

		var table QuantTable
		for i, v := range natural {
			table[i] = uint16(v)
		}
		ctx.QTables[tq] = table
	}
	return nil
}

func handleSOS(ctx *Context, seg Segment) error {
	r := bodyReader(seg.Body)

	ns, err := r.ReadByteAligned()
	if err != nil {
		return newErr(UnexpectedEnd, "SOS component count")
	}
	if int(ns) != len(ctx.Channels) {
		return newErr(NotBaseline, "SOS component count %d != SOF0 %d", ns, len(ctx.Channels))
	}
	if int(seg.Length) != 6+2*int(ns) {
		return newErr(BadSegmentLength, "SOS length %d != %d", seg.Length, 6+2*int(ns))
	}

	byID := make(map[byte]*Channel, len(ctx.Channels))
	for i := range ctx.Channels {
		byID[ctx.Channels[i].ID] = &ctx.Channels[i]
	}

	scanOrder := make([]Channel, ns)
	for i := 0; i < int(ns); i++ {
		id, err := r.ReadByteAligned()
		if err != nil {
			return newErr(UnexpectedEnd, "SOS channel id")
		}
		dc, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "SOS DC table id")
		}
		ac, err := r.ReadNibble()
		if err != nil {
			return newErr(UnexpectedEnd, "SOS AC table id")
		}
		ch, ok := byID[id-1]
		if !ok {
			return newErr(MissingTable, "SOS references unknown channel %d", id)
		}
		if _, ok := ctx.DCTables[dc]; !ok {
			return newErr(MissingTable, "SOS references unknown DC table %d", dc)
		}
		if _, ok := ctx.ACTables[ac]; !ok {
			return newErr(MissingTable, "SOS references unknown AC table %d", ac)
		}
		if _, ok := ctx.QTables[ch.QTID]; !ok {
			return newErr(MissingTable, "SOS references unknown QT %d", ch.QTID)
		}
		cp := *ch
		cp.DCTableID = dc
		cp.ACTableID = ac
		scanOrder[i] = cp
	}

	ss, err := r.ReadByteAligned()
	if err != nil {
		return newErr(UnexpectedEnd, "SOS Ss")
	}
	se, err := r.ReadByteAligned()
	if err != nil {
		return newErr(UnexpectedEnd, "SOS Se")
	}
	ahal, err := r.ReadByteAligned()
	if err != nil {
		return newErr(UnexpectedEnd, "SOS Ah/Al")
	}
	if ss != 0x00 || se != 0x3F || ahal != 0x00 {
		return newErr(NotBaseline, "non-baseline SOS trailer %#02x %#02x %#02x", ss, se, ahal)
	}

	ctx.Channels = scanOrder
	ctx.sosSeen = true
	return nil
}
