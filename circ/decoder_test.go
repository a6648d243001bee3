package circ

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grumpycoders/iec-60908/cd"
	"github.com/grumpycoders/iec-60908/efm"
	"github.com/grumpycoders/iec-60908/msf"
	"github.com/grumpycoders/iec-60908/pattern"
	"github.com/grumpycoders/iec-60908/subq"
)

// levelWriter captures the channel levels the sink emits.
type levelWriter struct {
	levels []byte
}

func (l *levelWriter) WriteBit(b byte) error {
	l.levels = append(l.levels, b)
	return nil
}

func (l *levelWriter) Flush() error { return nil }

// encodeLevels pushes sectors (with optional matching subchannels)
// through the full encoder and returns the channel-level capture.
func encodeLevels(t *testing.T, sectors [][]byte, subs [][]byte) []byte {
	t.Helper()
	lw := &levelWriter{}
	sink := efm.NewSink(lw)
	enc := NewEncoder(sink, quietLog())
	for i, s := range sectors {
		var sub []byte
		if subs != nil {
			sub = subs[i]
		}
		require.NoError(t, enc.Queue(s, sub))
	}
	require.NoError(t, sink.Finish())
	return lw.levels
}

const warmup = 3

func TestRoundTrip(t *testing.T) {
	// ramp pattern: every byte carries its line index
	ramp := pattern.RowRamp()
	sectors := make([][]byte, 10)
	for i := range sectors {
		sectors[i] = ramp[:]
	}
	levels := encodeLevels(t, sectors, nil)
	assert.Len(t, levels, 8*cd.BitsPerSector)

	dec := NewDecoder(Options{}, quietLog())
	decoded, err := dec.Decode(levels)
	require.NoError(t, err)
	require.Len(t, decoded, 8)

	for i := warmup; i < len(decoded); i++ {
		assert.Equal(t, ramp[:], decoded[i].Payload[:], "sector %d", i)
		assert.Zero(t, decoded[i].Erasures, "sector %d", i)
		assert.False(t, decoded[i].MissingS1, "sector %d", i)
	}
}

func TestRoundTripRandomData(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	sectors := make([][]byte, 9)
	for i := range sectors {
		sectors[i] = randSector(r)
	}
	levels := encodeLevels(t, sectors, nil)

	dec := NewDecoder(Options{}, quietLog())
	decoded, err := dec.Decode(levels)
	require.NoError(t, err)
	require.Len(t, decoded, 7)

	for i := warmup; i < len(decoded); i++ {
		assert.Equal(t, sectors[i], decoded[i].Payload[:], "sector %d", i)
	}
}

func TestCleanCaptureHasNoRSReports(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	sectors := make([][]byte, 8)
	for i := range sectors {
		sectors[i] = randSector(r)
	}
	dec := NewDecoder(Options{}, quietLog())
	decoded, err := dec.Decode(encodeLevels(t, sectors, nil))
	require.NoError(t, err)

	for i := warmup; i < len(decoded); i++ {
		assert.Empty(t, decoded[i].C1Reports, "sector %d", i)
		assert.Empty(t, decoded[i].C2Reports, "sector %d", i)
	}
}

func TestPhaseInversionInvariance(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	sectors := make([][]byte, 7)
	for i := range sectors {
		sectors[i] = randSector(r)
	}
	levels := encodeLevels(t, sectors, nil)
	inverted := make([]byte, len(levels))
	for i, l := range levels {
		inverted[i] = l ^ 1
	}

	dec := NewDecoder(Options{}, quietLog())
	a, err := dec.Decode(levels)
	require.NoError(t, err)
	b, err := NewDecoder(Options{}, quietLog()).Decode(inverted)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Payload, b[i].Payload, "sector %d", i)
	}
}

func TestSubchannelRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	n := 9
	sectors := make([][]byte, n)
	subs := make([][]byte, n)
	for i := range sectors {
		sectors[i] = randSector(r)
		q := subq.PositionQ(1, 1, msf.FromLBA(int32(i)), msf.FromLBA(int32(i)), 0)
		sub := subq.Generate(q, false)
		subs[i] = sub[:]
	}
	dec := NewDecoder(Options{}, quietLog())
	decoded, err := dec.Decode(encodeLevels(t, sectors, subs))
	require.NoError(t, err)
	require.Len(t, decoded, n-2)

	for i := range decoded {
		// the subchannel is not interleaved, so it is valid from the start
		require.Equal(t, subs[i], decoded[i].Subchannel[:], "sector %d", i)
		assert.True(t, decoded[i].Q.CRCValid, "sector %d", i)
		pos, ok := decoded[i].Q.Position()
		require.True(t, ok)
		assert.Equal(t, msf.FromLBA(int32(i)), pos.Absolute)
		assert.False(t, decoded[i].PGap)
	}
}

func TestDataSectorsAreDescrambled(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	n := 9
	sectors := make([][]byte, n)
	subs := make([][]byte, n)
	plain := make([][]byte, n)
	for i := range sectors {
		s := pattern.Pregap(int32(i))
		for j := 16; j < len(s); j++ {
			s[j] = byte(r.Intn(256))
		}
		plain[i] = append([]byte{}, s[:]...)
		scrambled := append([]byte{}, s[:]...)
		Scramble(scrambled)
		sectors[i] = scrambled
		q := subq.PositionQ(1, 1, msf.FromLBA(int32(i)), msf.FromLBA(int32(i)), subq.ControlData)
		sub := subq.Generate(q, false)
		subs[i] = sub[:]
	}
	dec := NewDecoder(Options{}, quietLog())
	decoded, err := dec.Decode(encodeLevels(t, sectors, subs))
	require.NoError(t, err)

	for i := warmup; i < len(decoded); i++ {
		require.True(t, decoded[i].Scrambled, "sector %d", i)
		assert.Equal(t, 0, decoded[i].DataSyncOffset, "sector %d", i)
		assert.Equal(t, plain[i], decoded[i].Payload[:], "sector %d", i)
	}
}

func TestCorruptedCaptureIsReported(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	sectors := make([][]byte, 8)
	for i := range sectors {
		sectors[i] = randSector(r)
	}
	levels := encodeLevels(t, sectors, nil)
	// flip one level in the payload area of a mid-stream frame; the
	// damaged channel word decodes to a wrong byte or an erasure
	target := 4*cd.BitsPerSector + 10*cd.BitsPerFrame + 100
	levels[target] ^= 1

	dec := NewDecoder(Options{}, quietLog())
	decoded, err := dec.Decode(levels)
	require.NoError(t, err)

	reports := 0
	for i := range decoded {
		reports += len(decoded[i].C1Reports) + len(decoded[i].C2Reports)
	}
	assert.NotZero(t, reports)
}

func TestLeadingGarbageIsSkipped(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	sectors := make([][]byte, 8)
	for i := range sectors {
		sectors[i] = randSector(r)
	}
	levels := encodeLevels(t, sectors, nil)
	// start the capture mid-sector
	cut := levels[17*cd.BitsPerFrame+200:]

	dec := NewDecoder(Options{}, quietLog())
	decoded, err := dec.Decode(cut)
	require.NoError(t, err)
	// the partial leading sector is gone
	require.Len(t, decoded, 5)
	for i := warmup; i < len(decoded); i++ {
		assert.Equal(t, sectors[i+1], decoded[i].Payload[:], "sector %d", i)
	}
}

func TestNoSync(t *testing.T) {
	_, err := NewDecoder(Options{}, quietLog()).Decode(make([]byte, 4000))
	assert.ErrorIs(t, err, ErrNoFrameSync)

	_, err = NewDecoder(Options{}, quietLog()).Decode([]byte{0, 1})
	assert.ErrorIs(t, err, ErrCaptureTooShort)
}
