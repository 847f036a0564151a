//nolint:mnd // CABAC engine constants
package h264

import "github.com/ugparu/avchw/utils/bits"

// cabacContext is one context variable: probability state and most probable symbol.
type cabacContext struct {
	state uint8
	mps   uint8
}

// newCabacContext initialises a context from its (m, n) pair at SliceQPY (9.3.1.1).
func newCabacContext(m, n int8, sliceQP int32) cabacContext {
	qp := min(max(sliceQP, 0), maxSliceQP)
	pre := min(max((int32(m)*qp)>>4 + int32(n), 1), 126)
	if pre <= 63 {
		return cabacContext{state: uint8(63 - pre)} //nolint:gosec
	}
	return cabacContext{state: uint8(pre - 64), mps: 1} //nolint:gosec
}

// mbSkipInit holds the (m, n) initialisation of the mb_skip_flag contexts, indexed
// by [isB][ctxIdx offset][cabac_init_idc]: ctxIdx 11..13 for P, 24..26 for B (Table 9-13, 9-14).
var mbSkipInit = [2][3][3][2]int8{
	{
		{{23, 33}, {22, 25}, {29, 16}},
		{{23, 2}, {34, 0}, {25, 0}},
		{{21, 0}, {16, 0}, {14, 0}},
	},
	{
		{{18, 64}, {26, 34}, {20, 40}},
		{{9, 43}, {19, 22}, {20, 10}},
		{{29, 0}, {40, 0}, {29, 0}},
	},
}

// rangeTabLPS is Table 9-44, indexed by [pStateIdx][qCodIRangeIdx].
var rangeTabLPS = [64][4]uint16{
	{128, 176, 208, 240}, {128, 167, 197, 227}, {128, 158, 187, 216}, {123, 150, 178, 205},
	{116, 142, 169, 195}, {111, 135, 160, 185}, {105, 128, 152, 175}, {100, 122, 144, 166},
	{95, 116, 137, 158}, {90, 110, 130, 150}, {85, 104, 123, 142}, {81, 99, 117, 135},
	{77, 94, 111, 128}, {73, 89, 105, 122}, {69, 85, 100, 116}, {66, 80, 95, 110},
	{62, 76, 90, 104}, {59, 72, 86, 99}, {56, 69, 81, 94}, {53, 65, 77, 89},
	{51, 62, 73, 85}, {48, 59, 69, 80}, {46, 56, 66, 76}, {43, 53, 63, 72},
	{41, 50, 59, 69}, {39, 48, 56, 65}, {37, 45, 54, 62}, {35, 43, 51, 59},
	{33, 41, 48, 56}, {32, 39, 46, 53}, {30, 37, 43, 50}, {29, 35, 41, 48},
	{27, 33, 39, 45}, {26, 31, 37, 43}, {24, 30, 35, 41}, {23, 28, 33, 39},
	{22, 27, 32, 37}, {21, 26, 30, 35}, {20, 24, 29, 33}, {19, 23, 27, 31},
	{18, 22, 26, 30}, {17, 21, 25, 28}, {16, 20, 23, 27}, {15, 19, 22, 25},
	{14, 18, 21, 24}, {14, 17, 20, 23}, {13, 16, 19, 22}, {12, 15, 18, 21},
	{12, 14, 17, 20}, {11, 14, 16, 19}, {11, 13, 15, 18}, {10, 12, 15, 17},
	{10, 12, 14, 16}, {9, 11, 13, 15}, {9, 11, 12, 14}, {8, 10, 12, 14},
	{8, 9, 11, 13}, {7, 9, 11, 12}, {7, 9, 10, 12}, {7, 8, 10, 11},
	{6, 8, 9, 11}, {6, 7, 9, 10}, {6, 7, 8, 9}, {2, 2, 2, 2},
}

// transIdxLPS is the LPS column of Table 9-45; the MPS transition is min(state+1, 62).
var transIdxLPS = [64]uint8{
	0, 0, 1, 2, 2, 4, 4, 5, 6, 7, 8, 9, 9, 11, 11, 12,
	13, 13, 15, 15, 16, 16, 18, 18, 19, 19, 21, 21, 22, 22, 23, 24,
	24, 25, 26, 26, 27, 27, 28, 29, 29, 30, 30, 30, 31, 32, 32, 33,
	33, 33, 34, 34, 35, 35, 35, 36, 36, 36, 37, 37, 37, 38, 38, 63,
}

func transIdxMPS(state uint8) uint8 {
	if state >= 62 {
		return state
	}
	return state + 1
}

// cabacEncoder is the arithmetic encoding engine of 9.3.4.2 writing straight
// into a NAL unit writer, so emulation prevention follows the writer's mode.
type cabacEncoder struct {
	w           *bits.Writer
	low         uint32
	rng         uint32
	outstanding int
	firstBit    bool
}

func newCabacEncoder(w *bits.Writer) *cabacEncoder {
	return &cabacEncoder{w: w, rng: 510, firstBit: true}
}

// EncodeDecision codes bin with ctx and updates its state.
func (c *cabacEncoder) EncodeDecision(ctx *cabacContext, bin uint8) {
	lps := uint32(rangeTabLPS[ctx.state][(c.rng>>6)&3])
	c.rng -= lps
	if bin != ctx.mps {
		c.low += c.rng
		c.rng = lps
		if ctx.state == 0 {
			ctx.mps = 1 - ctx.mps
		}
		ctx.state = transIdxLPS[ctx.state]
	} else {
		ctx.state = transIdxMPS(ctx.state)
	}
	c.renormalize()
}

// EncodeTerminate codes end_of_slice_flag; a 1 flushes the engine, and the
// last flushed bit doubles as rbsp_stop_one_bit.
func (c *cabacEncoder) EncodeTerminate(bin uint8) {
	c.rng -= 2
	if bin == 0 {
		c.renormalize()
		return
	}
	c.low += c.rng
	c.rng = 2
	c.renormalize()
	c.putBit(uint8(c.low>>9) & 1)
	c.w.WriteBits(uint((c.low>>7)&3 | 1), 2)
}

func (c *cabacEncoder) renormalize() {
	for c.rng < 256 {
		switch {
		case c.low < 256:
			c.putBit(0)
		case c.low >= 512:
			c.low -= 512
			c.putBit(1)
		default:
			c.low -= 256
			c.outstanding++
		}
		c.rng <<= 1
		c.low <<= 1
	}
}

func (c *cabacEncoder) putBit(b uint8) {
	if c.firstBit {
		c.firstBit = false
	} else {
		c.w.WriteBit(uint(b))
	}
	for ; c.outstanding > 0; c.outstanding-- {
		c.w.WriteBit(uint(1 - b))
	}
}
