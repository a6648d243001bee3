// Package subq interprets the subchannel side data of a sector: the
// eight bit-columns P..W multiplexed one byte per frame, the P gap
// flag, and the CRC-protected Q channel.
package subq

import (
	"github.com/grumpycoders/iec-60908/cd"
	"github.com/grumpycoders/iec-60908/crc16"
	"github.com/grumpycoders/iec-60908/msf"
)

// Channel indices into the transposed subchannel block.
const (
	P = iota
	Q
	R
	S
	T
	U
	V
	W
)

// BlockSize is the length of one subchannel bit-column in bytes.
const BlockSize = cd.SubchannelSize / 8

// Control nibble flags, numbered in transmission order (bit 0 first).
const (
	// ControlPreEmphasis marks audio recorded with pre-emphasis.
	ControlPreEmphasis = 0x1
	// ControlCopyPermitted clears the copy-prohibit default.
	ControlCopyPermitted = 0x2
	// ControlData marks a digital data track; the decoder descrambles
	// sectors carrying it.
	ControlData = 0x4
	// ControlBroadcast marks four-channel broadcast use.
	ControlBroadcast = 0x8
)

// Q address modes.
const (
	ADRNone    = 0
	ADRPosition = 1
	ADRCatalog  = 2
	ADRISRC     = 3
)

// Column extracts subchannel bit-column ch from the 96 subchannel
// bytes of a sector, MSB first: channel P rides bit 7 of every byte.
func Column(sub []byte, ch int) [BlockSize]byte {
	var out [BlockSize]byte
	for i, b := range sub {
		if b>>(7-ch)&1 != 0 {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// QInfo is a decoded Q block.
type QInfo struct {
	Control byte
	ADR     byte
	Data    [9]byte
	CRC     uint16
	// CRCValid reports whether the transmitted checksum matched; the
	// remaining fields are surfaced either way.
	CRCValid bool
}

// IsData reports whether the control nibble marks a digital data track.
func (q QInfo) IsData() bool {
	return q.Control&ControlData != 0
}

// Position decodes an ADR-1 data-Q payload. The second return is false
// for other address modes.
func (q QInfo) Position() (Position, bool) {
	if q.ADR != ADRPosition {
		return Position{}, false
	}
	return Position{
		Track:    msf.FromBCD(q.Data[0]),
		Index:    msf.FromBCD(q.Data[1]),
		Relative: msf.FromBCDBytes([3]byte{q.Data[2], q.Data[3], q.Data[4]}),
		Absolute: msf.FromBCDBytes([3]byte{q.Data[6], q.Data[7], q.Data[8]}),
	}, true
}

// Position is the ADR-1 interpretation of data-Q: a track-relative and
// an absolute timecode.
type Position struct {
	Track    byte
	Index    byte
	Relative msf.MSF
	Absolute msf.MSF
}

// EncodeQ assembles the 12-byte Q block for a control nibble, address
// mode and data-Q payload, including the inverted CRC.
func EncodeQ(control, adr byte, data [9]byte) [12]byte {
	var out [12]byte
	out[0] = control<<4 | adr&0x0F
	copy(out[1:10], data[:])
	crc := crc16.Sum(out[:10])
	out[10] = byte(crc >> 8)
	out[11] = byte(crc)
	return out
}

// DecodeQ parses a 12-byte Q block and validates its checksum.
func DecodeQ(block []byte) QInfo {
	return QInfo{
		Control:  block[0] >> 4,
		ADR:      block[0] & 0x0F,
		Data:     [9]byte(block[1:10]),
		CRC:      uint16(block[10])<<8 | uint16(block[11]),
		CRCValid: crc16.Valid(block[:12]),
	}
}

// PositionQ builds the ADR-1 Q block for one sector of a track.
func PositionQ(track, index byte, rel, abs msf.MSF, control byte) [12]byte {
	relBCD := rel.BCD()
	absBCD := abs.BCD()
	return EncodeQ(control, ADRPosition, [9]byte{
		msf.ToBCD(track), msf.ToBCD(index),
		relBCD[0], relBCD[1], relBCD[2],
		0x00,
		absBCD[0], absBCD[1], absBCD[2],
	})
}

// Generate produces the 96 subchannel bytes the encoder attaches to a
// sector: the P gap flag in every byte and the Q block bit-serially,
// MSB first.
func Generate(q [12]byte, gap bool) [cd.SubchannelSize]byte {
	var out [cd.SubchannelSize]byte
	for i := range out {
		if gap {
			out[i] = 0x80
		}
		if q[i/8]&(0x80>>(i%8)) != 0 {
			out[i] |= 0x40
		}
	}
	return out
}

// Gap reports whether the P column flags a gap (all ones) rather than
// the inside of a track (all zeros). The count of set bits is returned
// so callers can log ambiguous columns.
func Gap(sub []byte) (gap bool, ones int) {
	for _, b := range sub {
		if b&0x80 != 0 {
			ones++
		}
	}
	return ones >= len(sub)/2, ones
}
