// Package msf converts between logical block addresses and the
// minute:second:frame timecodes used in sector headers and
// subchannel-Q, along with the packed-BCD form they are stored in.
package msf

import "fmt"

// MSF is a Red Book timecode at 75 frames per second.
type MSF struct {
	M, S, F byte
}

// FromLBA converts a logical block address to a timecode.
func FromLBA(lba int32) MSF {
	return MSF{
		M: byte(lba / (75 * 60)),
		S: byte(lba / 75 % 60),
		F: byte(lba % 75),
	}
}

// LBA converts the timecode back to a logical block address.
func (m MSF) LBA() int32 {
	return int32(m.F) + 75*int32(m.S) + 75*60*int32(m.M)
}

// BCD returns the three timecode fields in packed BCD, the form they
// take on disc.
func (m MSF) BCD() [3]byte {
	return [3]byte{ToBCD(m.M), ToBCD(m.S), ToBCD(m.F)}
}

// FromBCDBytes decodes a packed-BCD timecode triple.
func FromBCDBytes(b [3]byte) MSF {
	return MSF{M: FromBCD(b[0]), S: FromBCD(b[1]), F: FromBCD(b[2])}
}

func (m MSF) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", m.M, m.S, m.F)
}

// ToBCD packs a value in 0..99 into BCD.
func ToBCD(n byte) byte {
	return n/10<<4 | n%10
}

// FromBCD unpacks a BCD byte.
func FromBCD(b byte) byte {
	return b>>4*10 + b&0x0F
}
