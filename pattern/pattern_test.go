package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grumpycoders/iec-60908/cd"
)

func TestPregapHeader(t *testing.T) {
	s := Pregap(0)
	assert.Equal(t, cd.DataSync[:], s[:12])
	assert.Equal(t, []byte{0x00, 0x00, 0x00}, s[12:15], "MSF 00:00:00 in BCD")
	assert.Equal(t, byte(1), s[15])
	for _, b := range s[16:] {
		assert.Zero(t, b)
	}

	// one second in: MSF 00:01:00
	s = Pregap(75)
	assert.Equal(t, []byte{0x00, 0x01, 0x00}, s[12:15])

	// BCD, not binary
	s = Pregap(75 * 25)
	assert.Equal(t, []byte{0x00, 0x25, 0x00}, s[12:15])
}

func TestRamps(t *testing.T) {
	col := ColumnRamp()
	assert.Equal(t, byte(5), col[5])
	assert.Equal(t, byte(5), col[24+5])
	assert.Equal(t, byte(23), col[cd.BytesPerSector-1])

	row := RowRamp()
	assert.Equal(t, byte(0), row[23])
	assert.Equal(t, byte(1), row[24])
	assert.Equal(t, byte(97), row[cd.BytesPerSector-1])

	fill := SectorFill(9)
	for _, b := range fill {
		assert.Equal(t, byte(9), b)
	}

	off := OffsetRamp()
	assert.Equal(t, byte(255), off[255])
	assert.Equal(t, byte(0), off[256])
}
