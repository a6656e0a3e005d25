package bmff

import "strings"

// Box is a materialized node of the ISO BMFF tree. Exactly one of
// Payload or Children is conceptually authoritative: a container box
// lists only its parsed children, a leaf exposes its payload bytes.
// For mdat/free/skip, Payload is left nil and only Size is recorded.
type Box struct {
	Type       BoxType
	Size       uint64
	Offset     int
	HeaderSize int
	Version    uint8
	Flags      uint32
	Payload    []byte
	Children   []*Box
}

// DataOffset returns the byte offset where this box's data begins.
func (b *Box) DataOffset() int { return b.Offset + b.HeaderSize }

// DataSize returns the size of this box's data, excluding the header.
func (b *Box) DataSize() uint64 { return b.Size - uint64(b.HeaderSize) }

// FindChild returns the first child of the given type, or nil.
func (b *Box) FindChild(t BoxType) *Box {
	for _, c := range b.Children {
		if c.Type == t {
			return c
		}
	}
	return nil
}

// FindChildren returns all children of the given type.
func (b *Box) FindChildren(t BoxType) []*Box {
	var out []*Box
	for _, c := range b.Children {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// FindByPath descends a slash-delimited path of box types, composing
// FindChild at each step.
func (b *Box) FindByPath(path string) *Box {
	cur := b
	for _, seg := range strings.Split(path, "/") {
		if cur == nil || len(seg) != 4 {
			return nil
		}
		var t BoxType
		copy(t[:], seg)
		cur = cur.FindChild(t)
	}
	return cur
}

// Tracks returns all trak children, assuming b is a moov box.
func (b *Box) Tracks() []*Box {
	return b.FindChildren(TypeTrak)
}

// isTreeContainer reports whether a box type is recursed into while
// building the tree. It uses IsContainerBox's full set, including
// tref/trgr/meta, so the tree reflects everything the cursor Reader
// already understands.
func isTreeContainer(t BoxType) bool {
	return IsContainerBox(t)
}

// isLazy reports whether a box's payload should be left unloaded.
func isLazy(t BoxType) bool {
	switch t {
	case TypeMdat, TypeFree, TypeSkip:
		return true
	}
	return false
}

// ReadBoxes walks buf at the top level, recursing into recognized
// container types, and returns the ordered sequence of parsed boxes.
// Empty input fails with InvalidMP4.
func ReadBoxes(buf []byte) ([]*Box, error) {
	if len(buf) == 0 {
		return nil, InvalidMP4("empty input")
	}
	return readBoxesAt(buf, 0)
}

// readBoxesAt parses a flat run of sibling boxes within buf, which is
// already the enclosing scope's slice; baseOffset is buf's byte offset
// in the caller's original source and is added to every box Offset.
func readBoxesAt(buf []byte, baseOffset int) ([]*Box, error) {
	var boxes []*Box
	r := NewReader(buf)
	for r.Next() {
		box := &Box{
			Type:       r.Type(),
			Size:       r.Size(),
			Offset:     baseOffset + r.Offset(),
			HeaderSize: r.HeaderSize(),
		}
		if IsFullBox(box.Type) {
			box.Version = r.Version()
			box.Flags = r.Flags()
		}
		switch {
		case isTreeContainer(box.Type):
			children, err := readBoxesAt(r.Data(), box.DataOffset())
			if err != nil {
				return nil, err
			}
			box.Children = children
		case isLazy(box.Type):
			// payload intentionally not loaded
		default:
			box.Payload = r.Data()
		}
		boxes = append(boxes, box)
	}
	if err := checkTrailing(buf, r.Pos()); err != nil {
		return nil, err
	}
	return boxes, nil
}

// checkTrailing inspects the bytes left over after Reader.Next stopped
// returning true, distinguishing harmless end-of-scope padding (fewer
// than 8 leftover bytes, no new box ever committed) from a genuinely
// truncated or overrunning box declaration.
func checkTrailing(buf []byte, pos int) error {
	remaining := len(buf) - pos
	if remaining <= 0 {
		return nil
	}
	if remaining < 8 {
		return nil
	}
	size := uint64(be.Uint32(buf[pos:]))
	headerSize := 8
	ptr := pos + 8
	if size == 1 {
		if remaining < 16 {
			return InvalidMP4("truncated header")
		}
		size = be.Uint64(buf[ptr:])
		headerSize = 16
	}
	if size == 0 {
		size = uint64(remaining)
	}
	if size < uint64(headerSize) || pos+int(size) > len(buf) {
		return InvalidMP4("box size exceeds data")
	}
	return nil
}
