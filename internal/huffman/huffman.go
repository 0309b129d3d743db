// Package huffman builds canonical Huffman trees from the BITS/HUFFVAL
// pair encoded in a JPEG DHT segment and walks them bit by bit during
// entropy decoding.
package huffman

import "errors"

// ErrMalformedTree is returned when the supplied (lengths, values) pair
// cannot form a valid canonical Huffman tree.
var ErrMalformedTree = errors.New("huffman: malformed tree")

// ErrInvalidCode is returned by a Cursor when a bit leads to a missing
// child — the entropy stream does not correspond to any known code.
var ErrInvalidCode = errors.New("huffman: invalid code")

const maxCodeLength = 16

type node struct {
	left, right int32 // -1 when absent
	symbol      uint16
	leaf        bool
}

// Tree is a canonical Huffman tree built from a JPEG DHT table. Leaves at
// depth d always appear before any subtree at depth greater than d, per
// the canonical code ordering defined by the JPEG specification.
type Tree struct {
	nodes []node
}

// Build constructs a canonical Huffman tree. codeLengths[i] gives the
// number of codes of length i+1 (i.e. it is 1-indexed in JPEG terms but
// 0-indexed here); values gives the symbols in canonical order.
//
// Construction walks the tree with a path stack: descend left until a
// leaf slot at the code's length is available, assign the next symbol,
// then ascend to the nearest ancestor that still has an unused right
// child, take one right step, and descend left again for the next
// symbol. This reproduces canonical JPEG code ordering without requiring
// parent pointers on the nodes themselves.
func Build(codeLengths []int, values []byte) (*Tree, error) {
	if len(codeLengths) > maxCodeLength {
		return nil, ErrMalformedTree
	}

	var total int
	for _, c := range codeLengths {
		total += c
	}
	if total != len(values) {
		return nil, ErrMalformedTree
	}

	t := &Tree{nodes: make([]node, 1, total*2+1)}
	t.nodes[0] = node{left: -1, right: -1}

	if total == 0 {
		return t, nil
	}

	lengths := make([]int, 0, total)
	for length, count := range codeLengths {
		for i := 0; i < count; i++ {
			lengths = append(lengths, length+1)
		}
	}

	path := make([]int32, 1, maxCodeLength+1)
	path[0] = 0 // root

	for s, target := range lengths {
		if target > maxCodeLength {
			return nil, ErrMalformedTree
		}
		if s > 0 {
			if err := t.ascendAndStepRight(&path); err != nil {
				return nil, err
			}
		}
		if err := t.descendLeft(&path, target); err != nil {
			return nil, err
		}
		cur := path[len(path)-1]
		if t.nodes[cur].leaf || t.nodes[cur].left != -1 || t.nodes[cur].right != -1 {
			return nil, ErrMalformedTree
		}
		t.nodes[cur].leaf = true
		t.nodes[cur].symbol = uint16(values[s])
	}

	return t, nil
}

func (t *Tree) alloc() int32 {
	t.nodes = append(t.nodes, node{left: -1, right: -1})
	return int32(len(t.nodes) - 1)
}

func (t *Tree) descendLeft(path *[]int32, target int) error {
	for len(*path)-1 < target {
		top := (*path)[len(*path)-1]
		if t.nodes[top].leaf {
			return ErrMalformedTree
		}
		if t.nodes[top].left == -1 {
			t.nodes[top].left = t.alloc()
		}
		*path = append(*path, t.nodes[top].left)
	}
	return nil
}

func (t *Tree) ascendAndStepRight(path *[]int32) error {
	for {
		if len(*path) == 1 {
			return ErrMalformedTree
		}
		*path = (*path)[:len(*path)-1]
		parent := (*path)[len(*path)-1]
		if t.nodes[parent].right == -1 {
			t.nodes[parent].right = t.alloc()
			*path = append(*path, t.nodes[parent].right)
			return nil
		}
	}
}

// Cursor walks a Tree one bit at a time.
type Cursor struct {
	tree *Tree
	cur  int32
}

// NewCursor returns a cursor positioned at the tree's root.
func (t *Tree) NewCursor() *Cursor {
	return &Cursor{tree: t, cur: 0}
}

// Move advances the cursor by one bit. When the bit leads to a leaf it
// returns the decoded symbol with ok=true and resets the cursor to the
// root; otherwise it returns ok=false having descended one level. It
// fails with ErrInvalidCode when the bit has no corresponding child.
func (c *Cursor) Move(bit byte) (symbol uint16, ok bool, err error) {
	n := c.tree.nodes[c.cur]
	var next int32
	if bit == 0 {
		next = n.left
	} else {
		next = n.right
	}
	if next == -1 {
		return 0, false, ErrInvalidCode
	}
	c.cur = next
	if c.tree.nodes[c.cur].leaf {
		symbol = c.tree.nodes[c.cur].symbol
		c.cur = 0
		return symbol, true, nil
	}
	return 0, false, nil
}

// Decode reads bits from next until a symbol is produced.
func (t *Tree) Decode(next func() (byte, error)) (uint16, error) {
	c := t.NewCursor()
	for {
		bit, err := next()
		if err != nil {
			return 0, err
		}
		sym, ok, err := c.Move(bit)
		if err != nil {
			return 0, err
		}
		if ok {
			return sym, nil
		}
	}
}
