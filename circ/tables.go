// Package circ implements the Cross-Interleaved Reed-Solomon Code
// layer: the streaming encoder that turns 2352-byte sectors into
// 33-symbol channel lines, the data-sector scrambler, and the decoder
// that reassembles sectors from a captured channel bitstream.
package circ

// The CIRC interleave is fixed by three companion tables on the 24
// payload columns. delayedLine is how many lines ahead of the current
// one column c's payload byte is fetched from (offset by
// delayedOffset); swizzledColumn permutes input columns so adjacent
// output symbols never come from adjacent input bytes; delayedC2Data
// is delayedLine as seen from the C2 gather.
var delayedLine = [24]int{
	106, 103, 98, 95, 90, 87, 82, 79, 74, 71, 66, 63,
	44, 41, 36, 33, 29, 26, 20, 17, 12, 9, 5, 2,
}

var swizzledColumn = [24]int{
	5, 4, 13, 12, 21, 20, 7, 6, 15, 14, 23, 22,
	9, 8, 17, 16, 1, 0, 11, 10, 19, 18, 3, 2,
}

var delayedC2Data = [24]int{
	107, 104, 99, 96, 91, 88, 83, 80, 75, 72, 67, 64,
	43, 40, 35, 32, 27, 24, 19, 16, 11, 8, 3, 0,
}

// delayedC2Locs positions the four C2 parity lanes in the delay
// schedule.
var delayedC2Locs = [4]int{59, 56, 51, 48}

// delayedC2Decode is the per-position line delay of a C2 codeword as
// seen by the decoder, covering the payload halves and the parity in
// the middle.
var delayedC2Decode = [28]int{
	107, 104, 99, 96, 91, 88, 83, 80, 75, 72, 67, 64,
	59, 56, 51, 48,
	43, 40, 35, 32, 27, 24, 19, 16, 11, 8, 3, 0,
}

// delayedOffset is the smallest data-line delay that keeps the
// digital-data sync pattern from being split across the interleave.
const delayedOffset = 2

// unswizzledColumn inverts swizzledColumn.
var unswizzledColumn [24]int

func init() {
	var seen [24]bool
	for c, k := range swizzledColumn {
		if seen[k] {
			panic("circ: swizzle table is not a permutation")
		}
		seen[k] = true
		unswizzledColumn[k] = c
	}
}

// linePos maps a payload column to its position in a 28-byte data+C2
// block (C2 occupies positions 12..15).
func linePos(c int) int {
	if c < 12 {
		return c
	}
	return c + 4
}
