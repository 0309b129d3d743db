package jpegstream

import "bjpeg/internal/huffman"

// Channel is a per-component descriptor. RawH/RawV are the sampling
// factors as declared in SOF0 — the number of data units of this channel
// per MCU. H/V are rewritten by SOF0 processing to the per-channel
// up-sampling multipliers Hmax/RawH and Vmax/RawV, each of which must be
// 1 or 2.
type Channel struct {
	ID         byte
	RawH, RawV byte
	H, V       byte
	QTID       byte
	DCTableID  byte
	ACTableID  byte
}

// QuantTable holds 64 coefficients in natural row-major order, already
// de-zig-zagged during DQT parsing.
type QuantTable [64]uint16

// Context is the mutable state shared between segment handlers and the
// MCU pipeline for the lifetime of a single decode call.
type Context struct {
	Precision byte
	Width     int
	Height    int

	// Channels is reordered to scan order once SOS has been processed;
	// until then it reflects SOF0 order.
	Channels []Channel

	DCTables map[byte]*huffman.Tree
	ACTables map[byte]*huffman.Tree
	QTables  map[byte]QuantTable

	HMax, VMax         byte
	MCUWidthPx         int
	MCUHeightPx        int
	MCUCols, MCURows   int

	sofSeen bool
	sosSeen bool
}

// NewContext returns an empty decoder context ready to receive segments.
func NewContext() *Context {
	return &Context{
		DCTables: make(map[byte]*huffman.Tree),
		ACTables: make(map[byte]*huffman.Tree),
		QTables:  make(map[byte]QuantTable),
	}
}
