package circ

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/grumpycoders/iec-60908/cd"
	"github.com/grumpycoders/iec-60908/efm"
	"github.com/grumpycoders/iec-60908/rs"
)

// SymbolSink receives the 33 symbols of each encoded line in channel
// order.
type SymbolSink interface {
	PutSymbol(efm.Symbol) error
}

// ErrBadSectorSize is returned when a queued sector is not exactly
// 2352 bytes.
var ErrBadSectorSize = errors.New("circ: sector must be 2352 bytes")

// ErrBadSubchannelSize is returned when a queued subchannel block is
// not exactly 96 bytes.
var ErrBadSubchannelSize = errors.New("circ: subchannel must be 96 bytes")

const (
	futureSectors = 3
	pastRows      = 59
	pastRowSize   = 28
)

// Encoder is the streaming CIRC encoder. Sectors are pushed in one at
// a time; once three are buffered, each push emits the 98 lines of the
// oldest and retires it. The interleave reaches both forward into the
// buffered sectors and backward into a ring of previously emitted
// lines, which starts out holding silence so the very first frames are
// already well-formed.
type Encoder struct {
	sink SymbolSink
	log  *logrus.Logger

	sectors  [futureSectors][cd.BytesPerSector]byte
	subs     [futureSectors][cd.SubchannelSize]byte
	realSlot [futureSectors]bool
	head     int
	buffered int
	real     int

	past     [pastRows][pastRowSize]byte
	pastHead int

	emitted int64
}

// NewEncoder returns an Encoder feeding sink. A nil logger falls back
// to the logrus standard logger.
func NewEncoder(sink SymbolSink, log *logrus.Logger) *Encoder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Encoder{sink: sink, log: log}
	for r := range e.past {
		for j := 12; j < 16; j++ {
			e.past[r][j] = 0xFF
		}
	}
	return e
}

// Queue pushes one sector and its subchannel block (nil for none) into
// the encoder. When enough future data is buffered this emits exactly
// 98 lines for the oldest pending sector.
func (e *Encoder) Queue(sector, sub []byte) error {
	if len(sector) != cd.BytesPerSector {
		return ErrBadSectorSize
	}
	if sub != nil && len(sub) != cd.SubchannelSize {
		return ErrBadSubchannelSize
	}
	return e.queue(sector, sub, true)
}

// Flush drains every queued sector by pushing silence until none of
// the buffered sectors carry caller data. The encoder remains usable
// afterwards, with the trailing silence acting as the next stream's
// warmup.
func (e *Encoder) Flush() error {
	var zero [cd.BytesPerSector]byte
	for e.real > 0 {
		if err := e.queue(zero[:], nil, false); err != nil {
			return err
		}
	}
	return nil
}

// Emitted returns the number of sectors emitted so far.
func (e *Encoder) Emitted() int64 {
	return e.emitted
}

func (e *Encoder) queue(sector, sub []byte, real bool) error {
	slot := (e.head + e.buffered) % futureSectors
	copy(e.sectors[slot][:], sector)
	if sub != nil {
		copy(e.subs[slot][:], sub)
	} else {
		e.subs[slot] = [cd.SubchannelSize]byte{}
	}
	e.realSlot[slot] = real
	if real {
		e.real++
	}
	e.buffered++
	if e.buffered < futureSectors {
		return nil
	}
	for i := 0; i < cd.FramesPerSector; i++ {
		if err := e.emitLine(i); err != nil {
			return err
		}
	}
	if e.realSlot[e.head] {
		e.real--
	}
	e.head = (e.head + 1) % futureSectors
	e.buffered--
	e.emitted++
	e.log.WithField("sector", e.emitted).Debug("sector emitted")
	return nil
}

// future reads a payload byte at a line offset relative to the oldest
// buffered sector's first line.
func (e *Encoder) future(row, col int) byte {
	slot := (e.head + row/cd.FramesPerSector) % futureSectors
	return e.sectors[slot][row%cd.FramesPerSector*cd.PayloadColumns+col]
}

// pastRow indexes the emitted-lines ring; row 0 is the oldest, 58 the
// line emitted immediately before the current one.
func (e *Encoder) pastRow(r int) *[pastRowSize]byte {
	return &e.past[(e.pastHead+r)%pastRows]
}

func (e *Encoder) pushPast(row *[pastRowSize]byte) {
	e.past[e.pastHead] = *row
	e.pastHead = (e.pastHead + 1) % pastRows
}

// c2Vector gathers the 24-byte C2 input for parity lane n positioned
// at delay loc: the first payload half comes out of the emitted-lines
// ring, the second straight from the interleave of the future sectors.
func (e *Encoder) c2Vector(i, loc int, vec *[rs.C2MessageSize]byte) {
	for c := 0; c < 12; c++ {
		vec[c] = e.pastRow(pastRows - (delayedC2Data[c] - loc))[c]
	}
	for c := 12; c < 24; c++ {
		row := delayedLine[c] + i + loc - delayedC2Data[c] - delayedOffset
		vec[c] = e.future(row, swizzledColumn[c])
	}
}

func (e *Encoder) emitLine(i int) error {
	sub := &e.subs[e.head]

	var p [cd.PayloadColumns]byte
	for c := range p {
		p[c] = e.future(delayedLine[c]+i-delayedOffset, swizzledColumn[c])
	}

	// C2, stored inverted.
	var c2v [4]byte
	var vec24 [rs.C2MessageSize]byte
	for n := range c2v {
		e.c2Vector(i, delayedC2Locs[n], &vec24)
		c2v[n] = rs.C2Parity(vec24[:], n) ^ 0xFF
	}

	// The next line's C2 lanes 0 and 2, uninverted: C1's one-line-ahead
	// gather needs them before that line exists.
	var c2f [2]byte
	for m := range c2f {
		e.c2Vector(i, delayedC2Locs[m*2]+1, &vec24)
		c2f[m] = rs.C2Parity(vec24[:], m*2)
	}

	// C1 check symbols 1 and 3 belong to the codeword anchored one
	// line ahead: even positions live on line i+1, odd on line i.
	var c1v [4]byte
	var vec28 [rs.C1MessageSize]byte
	for c := 0; c < cd.PayloadColumns; c++ {
		if c%2 == 0 {
			vec28[linePos(c)] = e.future(delayedLine[c]+i+1-delayedOffset, swizzledColumn[c])
		} else {
			vec28[linePos(c)] = p[c]
		}
	}
	vec28[12] = c2f[0]
	vec28[13] = c2v[1] ^ 0xFF
	vec28[14] = c2f[1]
	vec28[15] = c2v[3] ^ 0xFF
	c1v[1] = rs.C1Parity(vec28[:], 1) ^ 0xFF
	c1v[3] = rs.C1Parity(vec28[:], 3) ^ 0xFF

	// C1 check symbols 0 and 2 close the codeword anchored here: even
	// positions on this line, odd on the previous one.
	prev := e.pastRow(pastRows - 1)
	for c := 0; c < cd.PayloadColumns; c++ {
		if c%2 == 0 {
			vec28[linePos(c)] = p[c]
		} else {
			vec28[linePos(c)] = prev[linePos(c)]
		}
	}
	vec28[12] = c2v[0] ^ 0xFF
	vec28[13] = prev[13] ^ 0xFF
	vec28[14] = c2v[2] ^ 0xFF
	vec28[15] = prev[15] ^ 0xFF
	c1v[0] = rs.C1Parity(vec28[:], 0) ^ 0xFF
	c1v[2] = rs.C1Parity(vec28[:], 2) ^ 0xFF

	// Subchannel symbol, then P1 · C2 · P2 · C1.
	var subsym efm.Symbol
	switch i {
	case 0:
		subsym = efm.S0
	case 1:
		subsym = efm.S1
	default:
		subsym = efm.Symbol(sub[i-2])
	}
	if err := e.sink.PutSymbol(subsym); err != nil {
		return err
	}
	var line [pastRowSize]byte
	copy(line[:12], p[:12])
	copy(line[12:16], c2v[:])
	copy(line[16:], p[12:])
	for _, b := range line {
		if err := e.sink.PutSymbol(efm.Symbol(b)); err != nil {
			return err
		}
	}
	for _, b := range c1v {
		if err := e.sink.PutSymbol(efm.Symbol(b)); err != nil {
			return err
		}
	}
	e.pushPast(&line)
	return nil
}

// LineSink writes encoded lines as raw 32-byte records, dropping the
// subchannel symbol. Useful for inspecting the interleave without the
// EFM layer.
type LineSink struct {
	w      io.Writer
	column int
	buf    []byte
}

// NewLineSink returns a LineSink writing to w.
func NewLineSink(w io.Writer) *LineSink {
	return &LineSink{w: w, buf: make([]byte, 0, cd.LineSize)}
}

func (l *LineSink) PutSymbol(s efm.Symbol) error {
	col := l.column
	l.column = (l.column + 1) % cd.SymbolsPerFrame
	if col == 0 {
		return nil // subchannel slot
	}
	if s < 0 || s > 0xFF {
		return efm.ErrInvalidSymbol
	}
	l.buf = append(l.buf, byte(s))
	if len(l.buf) < cd.LineSize {
		return nil
	}
	_, err := l.w.Write(l.buf)
	l.buf = l.buf[:0]
	return err
}
