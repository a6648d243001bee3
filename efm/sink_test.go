package efm

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memWriter captures the NRZ-I level stream for inspection.
type memWriter struct {
	levels []byte
}

func (m *memWriter) WriteBit(b byte) error {
	m.levels = append(m.levels, b)
	return nil
}

func (m *memWriter) Flush() error { return nil }

func encodeFrames(t *testing.T, frames int, seed int64) []byte {
	t.Helper()
	mw := &memWriter{}
	s := NewSink(mw)
	r := rand.New(rand.NewSource(seed))
	for f := 0; f < frames; f++ {
		for k := 0; k < SymbolsPerFrame; k++ {
			require.NoError(t, s.PutSymbol(Symbol(r.Intn(256))))
		}
	}
	require.NoError(t, s.Finish())
	return mw.levels
}

// toBits undoes NRZ-I: a bit is 1 where the level changed.
func toBits(levels []byte) []byte {
	bits := make([]byte, len(levels))
	prev := byte(0)
	for i, l := range levels {
		bits[i] = l ^ prev
		prev = l
	}
	return bits
}

func TestFrameIs588Bits(t *testing.T) {
	assert.Len(t, encodeFrames(t, 1, 1), 588)
	assert.Len(t, encodeFrames(t, 7, 1), 7*588)
}

func TestSyncAtEveryFrame(t *testing.T) {
	bits := toBits(encodeFrames(t, 5, 2))
	for f := 0; f < 5; f++ {
		for i := 0; i < FrameSyncBits; i++ {
			assert.Equal(t, byte(uint32(FrameSync)>>i&1), bits[f*588+i], "frame %d bit %d", f, i)
		}
	}
}

func TestRunLengthLimits(t *testing.T) {
	// between consecutive ones the zero count stays within [2, 10]
	// everywhere, merge bits and sync included
	bits := toBits(encodeFrames(t, 40, 3))
	last := -1
	for i, b := range bits {
		if b == 0 {
			continue
		}
		if last >= 0 {
			gap := i - last - 1
			require.GreaterOrEqual(t, gap, 2, "at bit %d", i)
			require.LessOrEqual(t, gap, 10, "at bit %d", i)
		}
		last = i
	}
}

func TestLevelRunLimits(t *testing.T) {
	// equivalently, runs of identical levels are 3..11 long
	levels := encodeFrames(t, 40, 4)
	run := 1
	for i := 1; i < len(levels); i++ {
		if levels[i] == levels[i-1] {
			run++
			continue
		}
		require.GreaterOrEqual(t, run, 3, "at level %d", i)
		require.LessOrEqual(t, run, 11, "at level %d", i)
		run = 1
	}
}

func TestDeterminism(t *testing.T) {
	assert.Equal(t, encodeFrames(t, 10, 5), encodeFrames(t, 10, 5))
}

func TestNRZIIdempotence(t *testing.T) {
	levels := encodeFrames(t, 3, 6)
	bits := toBits(levels)
	redone := make([]byte, len(bits))
	level := byte(0)
	for i, b := range bits {
		level ^= b
		redone[i] = level
	}
	assert.Equal(t, levels, redone)
}

func TestSymbolsRoundTrip(t *testing.T) {
	mw := &memWriter{}
	s := NewSink(mw)
	var want []Symbol
	r := rand.New(rand.NewSource(7))
	for f := 0; f < 4; f++ {
		for k := 0; k < SymbolsPerFrame; k++ {
			sym := Symbol(r.Intn(256))
			if k == 0 && f%2 == 0 {
				sym = S0
			}
			want = append(want, sym)
			require.NoError(t, s.PutSymbol(sym))
		}
	}
	require.NoError(t, s.Finish())

	bits := toBits(mw.levels)
	var got []Symbol
	for f := 0; f < 4; f++ {
		for k := 0; k < SymbolsPerFrame; k++ {
			off := f*588 + FrameSyncBits + k*(3+SymbolBits) + 3
			var w uint16
			for i := 0; i < SymbolBits; i++ {
				w |= uint16(bits[off+i]) << i
			}
			got = append(got, Lookup(w))
		}
	}
	assert.Equal(t, want, got)
}

func TestSinkRejectsInvalidSymbols(t *testing.T) {
	s := NewSink(&memWriter{})
	assert.ErrorIs(t, s.PutSymbol(Symbol(300)), ErrInvalidSymbol)
}

func TestPackedWriter(t *testing.T) {
	var buf bytes.Buffer
	p := NewPackedWriter(&buf)
	// 0b1101 LSB-first plus a lone bit in the next byte
	for _, b := range []byte{1, 0, 1, 1, 0, 0, 0, 0, 1} {
		require.NoError(t, p.WriteBit(b))
	}
	require.NoError(t, p.Flush())
	assert.Equal(t, []byte{0x0D, 0x01}, buf.Bytes())
}

func TestTextWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewTextWriter(&buf)
	for _, b := range []byte{1, 0, 1} {
		require.NoError(t, w.WriteBit(b))
	}
	require.NoError(t, w.Flush())
	assert.Equal(t, "101", buf.String())
}
