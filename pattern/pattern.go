// Package pattern synthesizes the sectors the encoder and its tests
// feed through the pipeline: the pregap lead-in and a handful of raw
// test patterns.
package pattern

import (
	"github.com/grumpycoders/iec-60908/cd"
	"github.com/grumpycoders/iec-60908/msf"
)

// PregapSectors is how many pregap sectors precede the program area.
const PregapSectors = 153

// Pregap builds one pregap sector: the 12-byte data-sector sync, the
// BCD timecode of lba, a mode-1 marker and a zero payload.
func Pregap(lba int32) [cd.BytesPerSector]byte {
	var out [cd.BytesPerSector]byte
	copy(out[:12], cd.DataSync[:])
	bcd := msf.FromLBA(lba).BCD()
	out[12] = bcd[0]
	out[13] = bcd[1]
	out[14] = bcd[2]
	out[15] = 1
	return out
}

// ColumnRamp fills a sector with the payload-column index of every
// byte (test1.raw).
func ColumnRamp() [cd.BytesPerSector]byte {
	var out [cd.BytesPerSector]byte
	for i := range out {
		out[i] = byte(i % cd.PayloadColumns)
	}
	return out
}

// RowRamp fills a sector with its line index (test2.raw).
func RowRamp() [cd.BytesPerSector]byte {
	var out [cd.BytesPerSector]byte
	for i := range out {
		out[i] = byte(i / cd.PayloadColumns)
	}
	return out
}

// SectorFill fills a sector with a constant (test3.raw uses the sector
// index).
func SectorFill(v byte) [cd.BytesPerSector]byte {
	var out [cd.BytesPerSector]byte
	for i := range out {
		out[i] = v
	}
	return out
}

// OffsetRamp fills a sector with its byte offset modulo 256
// (test4.raw).
func OffsetRamp() [cd.BytesPerSector]byte {
	var out [cd.BytesPerSector]byte
	for i := range out {
		out[i] = byte(i)
	}
	return out
}
