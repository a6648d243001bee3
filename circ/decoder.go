package circ

import (
	"github.com/sirupsen/logrus"

	"github.com/grumpycoders/iec-60908/cd"
	"github.com/grumpycoders/iec-60908/efm"
	"github.com/grumpycoders/iec-60908/rs"
	"github.com/grumpycoders/iec-60908/subq"
)

// Options selects which anomalies the decoder logs while it works.
// Everything is reported in the returned sectors regardless.
type Options struct {
	LogFrames  bool // erasures and merge-bit faults per frame
	LogSectors bool // sync loss, S1 misses, subchannel summaries
	LogRS      bool // non-zero syndromes and errata positions
	LogQ       bool // decoded Q fields
}

// Stage names the Reed-Solomon code a report belongs to.
type Stage byte

const (
	StageC1 Stage = iota
	StageC2
)

func (s Stage) String() string {
	if s == StageC1 {
		return "C1"
	}
	return "C2"
}

// RSReport is one row's Reed-Solomon verdict: the syndrome vector and
// the errata the locator points at. Corrections are not applied.
type RSReport struct {
	Stage     Stage
	Sector    int
	Row       int
	Syndromes [rs.ParityCount]byte
	Erasures  []int
	Errata    []int
}

// Sector is one decoded sector with everything the analyzer learned
// about it.
type Sector struct {
	Index          int
	Payload        [cd.BytesPerSector]byte
	Subchannel     [cd.SubchannelSize]byte
	Q              subq.QInfo
	PGap           bool
	POnes          int
	MissingS1      bool
	Erasures       int
	Scrambled      bool
	DataSyncOffset int // -1 when absent
	C1Reports      []RSReport
	C2Reports      []RSReport
}

// Decoder consumes a captured channel-level sequence and reconstructs
// sectors, subchannel data and Reed-Solomon health reports. It is
// tolerant by design: anomalies become log events and the decoder
// keeps going.
type Decoder struct {
	log  *logrus.Logger
	opts Options

	frames []Frame
}

// NewDecoder returns a Decoder. A nil logger falls back to the logrus
// standard logger.
func NewDecoder(opts Options, log *logrus.Logger) *Decoder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Decoder{log: log, opts: opts}
}

// Decode runs the whole pipeline over a capture: one byte per channel
// level (values 0/1).
func (d *Decoder) Decode(levels []byte) ([]Sector, error) {
	if len(levels) < cd.BitsPerFrame {
		return nil, ErrCaptureTooShort
	}
	bits := nrzi(levels)
	pos := findSync(bits, 0)
	if pos < 0 {
		return nil, ErrNoFrameSync
	}
	if pos > 0 && d.opts.LogSectors {
		d.log.WithField("bits", pos).Info("discarded leading bits before first sync")
	}

	d.frames = d.frames[:0]
	frame := 0
	for pos+cd.BitsPerFrame <= len(bits) {
		if !checkSync(bits, pos) {
			if d.opts.LogSectors {
				d.log.WithField("frame", frame).Warn("frame sync lost, rescanning")
			}
			pos = findSync(bits, pos)
			if pos < 0 {
				break
			}
			continue
		}
		f := parseFrame(bits, pos)
		if d.opts.LogFrames && (f.MergeFaults > 0 || f.Erasures > 0) {
			d.log.WithFields(logrus.Fields{
				"frame":       frame,
				"mergeFaults": f.MergeFaults,
				"erasures":    f.Erasures,
			}).Warn("frame anomalies")
		}
		d.frames = append(d.frames, f)
		pos += cd.BitsPerFrame
		frame++
	}

	raw := d.assemble()
	sectors := make([]Sector, 0, len(raw))
	for s := range raw {
		sectors = append(sectors, d.process(raw, s))
	}
	return sectors, nil
}

// assemble groups frames into 98-frame sectors keyed on the S0 marker.
// The partial sector the capture starts in is discarded.
func (d *Decoder) assemble() [][cd.FramesPerSector]Frame {
	var out [][cd.FramesPerSector]Frame
	var pending []Frame
	started := false
	for i := range d.frames {
		f := &d.frames[i]
		if f.Symbols[0] == efm.S0 {
			if started && len(pending) == cd.FramesPerSector {
				out = append(out, [cd.FramesPerSector]Frame(pending))
			} else if started && d.opts.LogSectors {
				d.log.WithField("frames", len(pending)).Warn("short sector dropped")
			}
			pending = pending[:0]
			started = true
		}
		if !started {
			continue // capture began mid-sector
		}
		if len(pending) == cd.FramesPerSector {
			// no S0 for a whole sector
			if d.opts.LogSectors {
				d.log.WithField("sector", len(out)).Warn("sector sync lost")
			}
			pending = pending[:0]
			started = false
			continue
		}
		pending = append(pending, *f)
	}
	if started && len(pending) == cd.FramesPerSector {
		out = append(out, [cd.FramesPerSector]Frame(pending))
	}
	return out
}

// symbolAt fetches the stored symbol of a global line, addressed by
// its position in the 32-symbol line layout. Lines before the capture
// start read as silence.
func symbolAt(raw [][cd.FramesPerSector]Frame, line, col int) (byte, bool) {
	if line < 0 || line >= len(raw)*cd.FramesPerSector {
		return 0, false
	}
	sym := raw[line/cd.FramesPerSector][line%cd.FramesPerSector].Symbols[col+1]
	if sym == efm.Erasure {
		return 0, true
	}
	return byte(sym), false
}

func (d *Decoder) process(raw [][cd.FramesPerSector]Frame, s int) Sector {
	sec := Sector{Index: s, DataSyncOffset: -1}
	frames := &raw[s]

	if frames[1].Symbols[0] != efm.S1 {
		sec.MissingS1 = true
		if d.opts.LogSectors {
			d.log.WithField("sector", s).Warn("S1 missing on second frame")
		}
	}
	for i := 2; i < cd.FramesPerSector; i++ {
		sym := frames[i].Symbols[0]
		if sym >= 0 && sym <= 0xFF {
			sec.Subchannel[i-2] = byte(sym)
		} else {
			sec.Erasures++
		}
	}

	d.checkRS(raw, &sec)
	d.deinterleave(raw, &sec)
	d.subchannel(&sec)
	return sec
}

// checkRS computes the C1 and C2 syndromes of every row of the sector
// with the decode-side skews: one extra line of delay on odd C1
// columns and the delayedC2Decode schedule for C2. Stored check
// symbols are inverted back before evaluation.
func (d *Decoder) checkRS(raw [][cd.FramesPerSector]Frame, sec *Sector) {
	var cw [rs.C1CodewordSize]byte
	for r := 0; r < cd.FramesPerSector; r++ {
		line := sec.Index*cd.FramesPerSector + r

		complete := true
		var erasures []int
		for c := 0; c < rs.C1CodewordSize; c++ {
			v, erased, ok := d.fetch(raw, line-c%2, c)
			if !ok {
				complete = false
				break
			}
			if erased {
				erasures = append(erasures, c)
			}
			if c >= 12 && c < 16 || c >= 28 {
				v ^= 0xFF
			}
			cw[c] = v
		}
		if complete {
			d.report(sec, StageC1, r, cw[:], erasures)
		}

		complete = true
		erasures = nil
		for pos := 0; pos < rs.C2CodewordSize; pos++ {
			v, erased, ok := d.fetch(raw, line-delayedC2Decode[pos], pos)
			if !ok {
				complete = false
				break
			}
			if erased {
				erasures = append(erasures, pos)
			}
			if pos >= 12 && pos < 16 {
				v ^= 0xFF
			}
			cw[pos] = v
		}
		if complete {
			d.report(sec, StageC2, r, cw[:rs.C2CodewordSize], erasures)
		}
	}
}

func (d *Decoder) fetch(raw [][cd.FramesPerSector]Frame, line, col int) (v byte, erased, ok bool) {
	if line < 0 || line >= len(raw)*cd.FramesPerSector {
		return 0, false, false
	}
	v, erased = symbolAt(raw, line, col)
	return v, erased, true
}

func (d *Decoder) report(sec *Sector, stage Stage, row int, cw []byte, erasures []int) {
	synd := rs.Syndromes(cw, rs.ParityCount)
	nonzero := false
	for _, s := range synd {
		if s != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero && len(erasures) == 0 {
		return
	}
	rep := RSReport{Stage: stage, Sector: sec.Index, Row: row, Erasures: erasures}
	copy(rep.Syndromes[:], synd)
	if nonzero {
		folded := rs.ForneySyndromes(synd, erasures)
		if len(erasures) < len(folded) {
			loc := rs.ErrorLocator(folded[len(erasures):])
			rep.Errata = rs.ChienSearch(loc, len(cw))
		}
	}
	if stage == StageC1 {
		sec.C1Reports = append(sec.C1Reports, rep)
	} else {
		sec.C2Reports = append(sec.C2Reports, rep)
	}
	if d.opts.LogRS {
		d.log.WithFields(logrus.Fields{
			"stage":     stage.String(),
			"sector":    rep.Sector,
			"row":       rep.Row,
			"syndromes": rep.Syndromes,
			"erasures":  rep.Erasures,
			"errata":    rep.Errata,
		}).Warn("reed-solomon anomaly")
	}
}

// deinterleave reverses the encoder's swizzle and line delays to
// rebuild the 2352 payload bytes. Erased or unavailable symbols come
// out as zero.
func (d *Decoder) deinterleave(raw [][cd.FramesPerSector]Frame, sec *Sector) {
	for r := 0; r < cd.FramesPerSector; r++ {
		for k := 0; k < cd.PayloadColumns; k++ {
			c := unswizzledColumn[k]
			line := sec.Index*cd.FramesPerSector + r - delayedLine[c] + delayedOffset
			v, erased, ok := d.fetch(raw, line, linePos(c))
			if !ok || erased {
				v = 0
			}
			sec.Payload[r*cd.PayloadColumns+k] = v
		}
	}
}

// subchannel interprets P and Q and descrambles the payload when the
// control nibble marks the track digital.
func (d *Decoder) subchannel(sec *Sector) {
	sec.PGap, sec.POnes = subq.Gap(sec.Subchannel[:])
	qcol := subq.Column(sec.Subchannel[:], subq.Q)
	sec.Q = subq.DecodeQ(qcol[:])
	if !sec.Q.CRCValid && d.opts.LogSectors {
		d.log.WithField("sector", sec.Index).Warn("subchannel-Q CRC failure")
	}
	if d.opts.LogQ {
		fields := logrus.Fields{
			"sector":  sec.Index,
			"control": sec.Q.Control,
			"adr":     sec.Q.ADR,
			"crcOK":   sec.Q.CRCValid,
			"pGap":    sec.PGap,
		}
		if pos, ok := sec.Q.Position(); ok {
			fields["track"] = pos.Track
			fields["index"] = pos.Index
			fields["rel"] = pos.Relative.String()
			fields["abs"] = pos.Absolute.String()
		}
		d.log.WithFields(fields).Info("subchannel-Q")
	}
	if sec.Q.IsData() {
		if off := FindDataSync(sec.Payload[:]); off >= 0 {
			DescrambleAt(sec.Payload[:], off)
			sec.Scrambled = true
			sec.DataSyncOffset = off
		}
	}
}
