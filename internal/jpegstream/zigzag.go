package jpegstream

// zigZagOrder[k] is the natural (row-major) index of the coefficient that
// appears at zig-zag position k. It is generated by the diagonal walk
// described in the DQT parsing rules: starting at (0,0), each step moves
// along the top/bottom edge, down the left/right edge at the start of a
// new diagonal, or steps by (-1,+1) on even diagonals and (+1,-1) on odd
// diagonals.
var zigZagOrder = computeZigZagOrder()

func computeZigZagOrder() [64]int {
	var order [64]int
	row, col := 0, 0
	for i := 0; i < 64; i++ {
		order[i] = row*8 + col
		if i == 63 {
			break
		}
		if (row+col)%2 == 0 {
			switch {
			case col == 7:
				row++
			case row == 0:
				col++
			default:
				row--
				col++
			}
		} else {
			switch {
			case row == 7:
				col++
			case col == 0:
				row++
			default:
				row++
				col--
			}
		}
	}
	return order
}

// deZigZag writes the 64 zig-zag-ordered values in src into natural
// row-major order in dst.
func deZigZag(src [64]int32, dst *[64]int32) {
	for k, v := range src {
		dst[zigZagOrder[k]] = v
	}
}
