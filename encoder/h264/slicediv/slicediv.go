// Package slicediv partitions a macroblock grid into slices the way a given
// class of encode hardware is able to emit them.
package slicediv

import "fmt"

// Class is the slice structure a hardware generation supports.
type Class int

const (
	OneSlice            Class = iota // single slice per picture
	Row2Row                          // power-of-two row count per slice
	RowSlice                         // equal row count, last slice takes the rest
	ArbitraryRowSlice                // any row boundary
	ArbitraryMbSlice                 // any MB boundary (temporal scalability, size driven)
	LowPower                         // VDEnc: same arithmetic as RowSlice
)

func (c Class) String() string {
	switch c {
	case OneSlice:
		return "OneSlice"
	case Row2Row:
		return "Row2Row"
	case RowSlice:
		return "RowSlice"
	case ArbitraryRowSlice:
		return "ArbitraryRowSlice"
	case ArbitraryMbSlice:
		return "ArbitraryMbSlice"
	case LowPower:
		return "LowPower"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// RowAligned reports whether slices of this class always start on an MB row.
func (c Class) RowAligned() bool {
	return c != ArbitraryMbSlice
}

// Divider walks the slices of one picture. The zero value is not usable; build
// it with New or NewBySize.
type Divider struct {
	class     Class
	widthMbs  uint32
	heightMbs uint32
	numSlice  uint32

	// row-aligned classes
	rowsLeft    uint32
	slicesLeft  uint32
	fixedRows   uint32 // 0 for ArbitraryRowSlice, which recomputes per slice
	curFirstRow uint32
	curNumRows  uint32

	// ArbitraryMbSlice
	sliceSizeMbs uint32
	curFirstMb   uint32
	curNumMb     uint32
}

// New builds a divider for numSlice requested slices on a widthMbs x heightMbs grid.
// The request is clamped to [1, heightMbs] and then adjusted to what the class can
// produce; NumSlice reports the result.
func New(class Class, numSlice, widthMbs, heightMbs uint32) *Divider {
	d := &Divider{class: class, widthMbs: max(widthMbs, 1), heightMbs: max(heightMbs, 1)}
	n := clamp(numSlice, 1, d.heightMbs)
	h := d.heightMbs

	switch class {
	case ArbitraryRowSlice:
		d.numSlice = n
	case Row2Row:
		k := uint32(1)
		for ceilDiv(h, k) > n {
			k *= 2
		}
		d.fixedRows = k
		d.numSlice = ceilDiv(h, k)
	case RowSlice, LowPower:
		sh := ceilDiv(h, n)
		for sh*(n-1) >= h {
			n++
			sh = ceilDiv(h, n)
		}
		d.fixedRows = sh
		d.numSlice = n
	case ArbitraryMbSlice:
		total := d.widthMbs * h
		d.sliceSizeMbs = ceilDiv(total, n)
		d.numSlice = ceilDiv(total, d.sliceSizeMbs)
	default:
		d.class = OneSlice
		d.numSlice = 1
		d.fixedRows = h
	}
	d.reset()
	return d
}

// NewBySize builds a divider from a target slice size in macroblocks. Row-aligned
// classes round the size up to whole rows. ArbitraryMbSlice keeps at least one
// row per slice so the count stays within heightMbs.
func NewBySize(class Class, sliceSizeMbs, widthMbs, heightMbs uint32) *Divider {
	widthMbs, heightMbs = max(widthMbs, 1), max(heightMbs, 1)
	total := widthMbs * heightMbs
	size := clamp(sliceSizeMbs, 1, total)
	if class == ArbitraryMbSlice {
		d := &Divider{class: class, widthMbs: widthMbs, heightMbs: heightMbs}
		d.sliceSizeMbs = max(size, widthMbs)
		d.numSlice = ceilDiv(total, size)
		d.reset()
		return d
	}
	return New(class, ceilDiv(heightMbs, ceilDiv(size, widthMbs)), widthMbs, heightMbs)
}

// Count returns the number of slices New would produce.
func Count(class Class, numSlice, widthMbs, heightMbs uint32) uint32 {
	return New(class, numSlice, widthMbs, heightMbs).NumSlice()
}

func (d *Divider) reset() {
	if d.class == ArbitraryMbSlice {
		d.slicesLeft = d.numSlice
		d.curFirstMb = 0
		d.curNumMb = min(d.sliceSizeMbs, d.widthMbs*d.heightMbs)
		return
	}
	d.rowsLeft = d.heightMbs
	d.slicesLeft = d.numSlice
	d.curFirstRow = 0
	d.curNumRows = d.rowsForCurrent()
}

func (d *Divider) rowsForCurrent() uint32 {
	if d.slicesLeft == 0 {
		return 0
	}
	if d.fixedRows == 0 || d.slicesLeft == 1 {
		return ceilDiv(d.rowsLeft, d.slicesLeft)
	}
	return min(d.fixedRows, d.rowsLeft)
}

// Next advances to the following slice. It returns false when the slice just
// consumed was the last one; the divider then stays on that slice.
func (d *Divider) Next() bool {
	if d.slicesLeft <= 1 {
		return false
	}
	if d.class == ArbitraryMbSlice {
		d.slicesLeft--
		d.curFirstMb += d.curNumMb
		d.curNumMb = min(d.sliceSizeMbs, d.widthMbs*d.heightMbs-d.curFirstMb)
		return true
	}
	d.rowsLeft -= d.curNumRows
	d.slicesLeft--
	d.curFirstRow += d.curNumRows
	d.curNumRows = d.rowsForCurrent()
	return true
}

func (d *Divider) Class() Class { return d.class }

func (d *Divider) NumSlice() uint32 { return d.numSlice }

// FirstMbInSlice is first_mb_in_slice of the current slice (frame MB address).
func (d *Divider) FirstMbInSlice() uint32 {
	if d.class == ArbitraryMbSlice {
		return d.curFirstMb
	}
	return d.curFirstRow * d.widthMbs
}

func (d *Divider) NumMbInSlice() uint32 {
	if d.class == ArbitraryMbSlice {
		return d.curNumMb
	}
	return d.curNumRows * d.widthMbs
}

// FirstMbRow and NumMbRows describe row-aligned slices; for ArbitraryMbSlice they
// report the rows the slice touches.
func (d *Divider) FirstMbRow() uint32 {
	return d.FirstMbInSlice() / d.widthMbs
}

func (d *Divider) NumMbRows() uint32 {
	if d.class != ArbitraryMbSlice {
		return d.curNumRows
	}
	first := d.curFirstMb / d.widthMbs
	last := (d.curFirstMb + d.curNumMb - 1) / d.widthMbs
	return last - first + 1
}

// Slice is one entry of a SliceDivision.
type Slice struct {
	FirstMb   uint32
	NumMb     uint32
	FirstRow  uint32
	NumMbRows uint32
}

// Slices walks a fresh copy of d and returns every slice in order.
func (d *Divider) Slices() []Slice {
	c := *d
	c.reset()
	out := make([]Slice, 0, c.numSlice)
	for {
		out = append(out, Slice{
			FirstMb:   c.FirstMbInSlice(),
			NumMb:     c.NumMbInSlice(),
			FirstRow:  c.FirstMbRow(),
			NumMbRows: c.NumMbRows(),
		})
		if !c.Next() {
			return out
		}
	}
}

func ceilDiv(a, b uint32) uint32 {
	return (a + b - 1) / b
}

func clamp(v, lo, hi uint32) uint32 {
	return max(lo, min(v, hi))
}
