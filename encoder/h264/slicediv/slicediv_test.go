package slicediv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var allClasses = []Class{OneSlice, Row2Row, RowSlice, ArbitraryRowSlice, ArbitraryMbSlice, LowPower}

func TestCoverage(t *testing.T) {
	t.Parallel()

	for _, class := range allClasses {
		t.Run(class.String(), func(t *testing.T) {
			t.Parallel()
			for _, grid := range [][2]uint32{{1, 1}, {45, 1}, {120, 68}, {80, 45}, {22, 18}, {11, 9}, {240, 135}} {
				w, h := grid[0], grid[1]
				for n := uint32(0); n <= h+3; n++ {
					d := New(class, n, w, h)
					slices := d.Slices()
					require.Len(t, slices, int(d.NumSlice()))
					require.GreaterOrEqual(t, d.NumSlice(), uint32(1))
					require.LessOrEqual(t, d.NumSlice(), h)

					var nextMb, rows uint32
					for _, s := range slices {
						require.Equal(t, nextMb, s.FirstMb, "%dx%d n=%d", w, h, n)
						require.NotZero(t, s.NumMb)
						nextMb += s.NumMb
						if class.RowAligned() {
							require.Equal(t, rows, s.FirstRow)
							rows += s.NumMbRows
						}
					}
					require.Equal(t, w*h, nextMb)
					if class.RowAligned() {
						require.Equal(t, h, rows)
					}
				}
			}
		})
	}
}

func TestRequestedCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		class   Class
		n, w, h uint32
		want    uint32
		rows    []uint32
	}{
		{name: "row2row_single_row", class: Row2Row, n: 5, w: 45, h: 1, want: 1, rows: []uint32{1}},
		{name: "row2row_power_of_two", class: Row2Row, n: 3, w: 10, h: 8, want: 2, rows: []uint32{4, 4}},
		{name: "row2row_remainder", class: Row2Row, n: 3, w: 10, h: 10, want: 3, rows: []uint32{4, 4, 2}},
		{name: "arbitrary_even", class: ArbitraryRowSlice, n: 4, w: 120, h: 68, want: 4, rows: []uint32{17, 17, 17, 17}},
		{name: "arbitrary_uneven", class: ArbitraryRowSlice, n: 3, w: 10, h: 10, want: 3, rows: []uint32{4, 3, 3}},
		{name: "row_slice", class: RowSlice, n: 3, w: 10, h: 10, want: 3, rows: []uint32{4, 4, 2}},
		{name: "row_slice_degenerate_tail", class: RowSlice, n: 6, w: 10, h: 10, want: 10},
		{name: "low_power", class: LowPower, n: 4, w: 120, h: 68, want: 4, rows: []uint32{17, 17, 17, 17}},
		{name: "one_slice", class: OneSlice, n: 8, w: 120, h: 68, want: 1, rows: []uint32{68}},
		{name: "clamped_to_height", class: ArbitraryRowSlice, n: 100, w: 10, h: 4, want: 4, rows: []uint32{1, 1, 1, 1}},
		{name: "zero_request", class: ArbitraryRowSlice, n: 0, w: 10, h: 4, want: 1, rows: []uint32{4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := New(tt.class, tt.n, tt.w, tt.h)
			require.Equal(t, tt.want, d.NumSlice())
			require.Equal(t, tt.want, Count(tt.class, tt.n, tt.w, tt.h))
			if tt.rows == nil {
				return
			}
			var got []uint32
			for _, s := range d.Slices() {
				got = append(got, s.NumMbRows)
			}
			require.Equal(t, tt.rows, got)
		})
	}
}

func TestNextIsTerminal(t *testing.T) {
	t.Parallel()

	d := New(ArbitraryRowSlice, 2, 4, 4)
	require.Equal(t, uint32(0), d.FirstMbInSlice())
	require.Equal(t, uint32(8), d.NumMbInSlice())
	require.True(t, d.Next())
	require.Equal(t, uint32(8), d.FirstMbInSlice())
	require.False(t, d.Next())
	require.False(t, d.Next())
	require.Equal(t, uint32(8), d.FirstMbInSlice())
	require.Equal(t, uint32(8), d.NumMbInSlice())
}

func TestFlattenedSlices(t *testing.T) {
	t.Parallel()

	d := NewBySize(ArbitraryMbSlice, 50, 45, 4)
	require.Equal(t, uint32(4), d.NumSlice())
	slices := d.Slices()
	require.Equal(t, uint32(50), slices[1].FirstMb)
	require.Equal(t, uint32(30), slices[3].NumMb)
	require.Equal(t, uint32(1), slices[1].FirstRow)
	require.Equal(t, uint32(2), slices[1].NumMbRows)

	d = New(ArbitraryMbSlice, 3, 10, 5)
	require.Equal(t, uint32(3), d.NumSlice())
	require.Equal(t, []uint32{17, 17, 16}, []uint32{d.Slices()[0].NumMb, d.Slices()[1].NumMb, d.Slices()[2].NumMb})
}

func TestNewBySizeRowAligned(t *testing.T) {
	t.Parallel()

	// 130 MBs on a 120-wide grid round up to two rows per slice.
	d := NewBySize(ArbitraryRowSlice, 130, 120, 68)
	require.Equal(t, uint32(34), d.NumSlice())
	d = NewBySize(RowSlice, 1, 120, 68)
	require.Equal(t, uint32(68), d.NumSlice())
}

func TestNewBySizeClampsCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                 string
		size, width, height  uint32
		wantSlices, wantSize uint32
	}{
		{name: "one_mb", size: 1, width: 120, height: 68, wantSlices: 68, wantSize: 120},
		{name: "below_row", size: 40, width: 45, height: 4, wantSlices: 4, wantSize: 45},
		{name: "zero", size: 0, width: 8, height: 2, wantSlices: 2, wantSize: 8},
		{name: "whole_picture", size: 1000, width: 8, height: 2, wantSlices: 1, wantSize: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := NewBySize(ArbitraryMbSlice, tt.size, tt.width, tt.height)
			require.Equal(t, tt.wantSlices, d.NumSlice())
			require.LessOrEqual(t, d.NumSlice(), tt.height)

			var covered uint32
			for _, s := range d.Slices() {
				require.LessOrEqual(t, s.NumMb, tt.wantSize)
				covered += s.NumMb
			}
			require.Equal(t, tt.width*tt.height, covered)
		})
	}
}
