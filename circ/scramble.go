package circ

import (
	"bytes"

	"github.com/grumpycoders/iec-60908/cd"
)

// scrambleLUT is the fixed 2340-byte scramble sequence, derived from a
// 15-bit LFSR seeded with 0x0001 over x^15 + x + 1, eight bits per
// byte LSB first.
var scrambleLUT [cd.BytesPerSector - 12]byte

func init() {
	reg := 0x0001
	for i := range scrambleLUT {
		var b byte
		for bit := 0; bit < 8; bit++ {
			b |= byte(reg&1) << bit
			fb := (reg ^ reg>>1) & 1
			reg = reg>>1 | fb<<14
		}
		scrambleLUT[i] = b
	}
}

// Scramble XORs the scramble sequence over a data sector's payload,
// leaving the 12-byte sync pattern alone. Applying it twice restores
// the sector.
func Scramble(sector []byte) {
	for i := 12; i < cd.BytesPerSector; i++ {
		sector[i] ^= scrambleLUT[i-12]
	}
}

// DescrambleAt undoes the scramble on a decoded sector whose
// data-sector sync was found at byte offset s, wrapping around the
// sector end.
func DescrambleAt(sector []byte, s int) {
	for i := 12; i < cd.BytesPerSector; i++ {
		sector[(i+s)%cd.BytesPerSector] ^= scrambleLUT[i-12]
	}
}

// FindDataSync returns the offset of the 12-byte data-sector sync
// pattern in a decoded sector, or -1.
func FindDataSync(sector []byte) int {
	return bytes.Index(sector, cd.DataSync[:])
}
