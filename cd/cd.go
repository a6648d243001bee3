// Package cd holds the Red Book geometry constants shared by the
// CIRC encoder and the bitstream decoder.
package cd

// SampleRate is the number of samples per second. All Redbook audio
// CDs use 44.1KHz.
const SampleRate = 44100

// BytesPerSample is 2 bytes, representing signed 16-bit samples.
const BytesPerSample = 2

// Channels is the number of audio channels in the data. All Redbook
// audio CDs are stereo.
const Channels = 2

// FramesPerSecond is the number of timecode frames in one second of audio.
// A timecode frame is the smallest valid unit of length for a track, defined
// as 1/75th of a second. Redbook track offsets are specified in MM:SS:FF.
//
// Note that this definition of frame is interchangable with sector.
// It is distinct from a 588-bit channel data frame, of which there are
// 98 per sector.
const FramesPerSecond = 75

// BytesPerSector is the number of bytes contained in one sector of
// CD data (and equivalently in one timecode frame), 2352 bytes.
const BytesPerSector = SampleRate * Channels * BytesPerSample / FramesPerSecond

// FramesPerSector is the number of channel data frames in one sector.
// The subchannel symbols of those 98 frames form one subchannel block.
const FramesPerSector = 98

// SymbolsPerFrame is the number of EFM symbols in one channel frame:
// 1 subchannel symbol, 24 data bytes, 4 C2 parity bytes and 4 C1
// parity bytes.
const SymbolsPerFrame = 33

// BitsPerFrame is the length of one channel frame on disc: a 24-bit
// sync pattern plus 33 symbols of 14 bits, each preceded by 3 merge bits,
// and 3 more merge bits ahead of the next frame's sync.
const BitsPerFrame = 24 + SymbolsPerFrame*(3+14) + 3

// BitsPerSector is the number of channel bits one sector occupies.
const BitsPerSector = FramesPerSector * BitsPerFrame

// LineSize is the size of one CIRC output line: the 32 byte-valued
// symbols of a frame, excluding the subchannel symbol.
const LineSize = 32

// SubchannelSize is the number of subchannel bytes per sector. Frames 0
// and 1 carry the S0/S1 markers instead of data, leaving 96 bytes.
const SubchannelSize = FramesPerSector - 2

// BytesPerSectorWithSubchannel is the size of one decoded sector
// immediately followed by its subchannel block.
const BytesPerSectorWithSubchannel = BytesPerSector + SubchannelSize

// PayloadColumns is the number of data bytes interleaved into each line.
const PayloadColumns = 24

// DataSync is the 12-byte synchronization pattern that starts every
// digital data sector.
var DataSync = [12]byte{
	0x00,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0xFF, 0xFF, 0xFF, 0xFF, 0xFF,
	0x00,
}
