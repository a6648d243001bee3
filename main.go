// The encoder command turns a file of raw 2352-byte sectors into the
// channel bitstream that would be recorded on disc, or into the
// intermediate 32-byte CIRC lines.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/grumpycoders/iec-60908/cd"
	"github.com/grumpycoders/iec-60908/circ"
	"github.com/grumpycoders/iec-60908/efm"
	"github.com/grumpycoders/iec-60908/msf"
	"github.com/grumpycoders/iec-60908/pattern"
	"github.com/grumpycoders/iec-60908/subq"
)

type options struct {
	input   string
	efmPath string
	outPath string
	digital bool
	pregap  bool
	text    bool
	gz      bool
	verbose bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.input, "i", "", "raw input file (2352-byte sectors)")
	flag.StringVar(&o.input, "input", "", "raw input file (2352-byte sectors)")
	flag.BoolVar(&o.digital, "d", false, "mark and scramble as digital data")
	flag.BoolVar(&o.digital, "digital", false, "mark and scramble as digital data")
	flag.StringVar(&o.efmPath, "e", "", "write the EFM bitstream to this file")
	flag.StringVar(&o.efmPath, "efm", "", "write the EFM bitstream to this file")
	flag.BoolVar(&o.pregap, "p", false, "emit 153 leading pregap sectors")
	flag.BoolVar(&o.pregap, "pregap", false, "emit 153 leading pregap sectors")
	flag.StringVar(&o.outPath, "o", "", "write raw 32-byte CIRC lines to this file")
	flag.StringVar(&o.outPath, "output", "", "write raw 32-byte CIRC lines to this file")
	flag.BoolVar(&o.text, "t", false, "with -e, write '0'/'1' text instead of packed bits")
	flag.BoolVar(&o.text, "text", false, "with -e, write '0'/'1' text instead of packed bits")
	flag.BoolVar(&o.gz, "z", false, "with -e, gzip-compress the output")
	flag.BoolVar(&o.gz, "gzip", false, "with -e, gzip-compress the output")
	flag.BoolVar(&o.verbose, "v", false, "enable debug logs")
	flag.BoolVar(&o.verbose, "verbose", false, "enable debug logs")
	flag.Parse()
	return o
}

func main() {
	o := parseFlags()
	log := logrus.New()
	if o.verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	if err := run(o, log); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func run(o options, log *logrus.Logger) error {
	if o.input == "" {
		return errors.New("an input file is required (-i)")
	}
	if (o.efmPath == "") == (o.outPath == "") {
		return errors.New("exactly one of -e and -o must be given")
	}

	in, err := os.Open(o.input)
	if err != nil {
		return err
	}
	defer in.Close()

	path := o.efmPath
	if path == "" {
		path = o.outPath
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.Writer = out
	var gzw *gzip.Writer
	if o.gz && o.efmPath != "" {
		gzw = gzip.NewWriter(out)
		w = gzw
	}

	var sink circ.SymbolSink
	var efmSink *efm.Sink
	if o.efmPath != "" {
		var bw efm.BitWriter
		if o.text {
			bw = efm.NewTextWriter(w)
		} else {
			bw = efm.NewPackedWriter(w)
		}
		efmSink = efm.NewSink(bw)
		sink = efmSink
	} else {
		sink = circ.NewLineSink(w)
	}

	enc := circ.NewEncoder(sink, log)
	var control byte
	if o.digital {
		control = subq.ControlData
	}

	var lba int32
	if o.pregap {
		for i := 0; i < pattern.PregapSectors; i++ {
			sector := pattern.Pregap(lba)
			if o.digital {
				circ.Scramble(sector[:])
			}
			countdown := msf.FromLBA(int32(pattern.PregapSectors - 1 - i))
			q := subq.PositionQ(1, 0, countdown, msf.FromLBA(lba), control)
			sub := subq.Generate(q, true)
			if err := enc.Queue(sector[:], sub[:]); err != nil {
				return err
			}
			lba++
		}
		log.WithField("sectors", pattern.PregapSectors).Debug("pregap queued")
	}

	sector := make([]byte, cd.BytesPerSector)
	trackStart := lba
	for {
		_, err := io.ReadFull(in, sector)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return fmt.Errorf("input truncated mid-sector (%v not a multiple of %v bytes?)",
				o.input, cd.BytesPerSector)
		}
		if err != nil {
			return err
		}
		if o.digital {
			circ.Scramble(sector)
		}
		q := subq.PositionQ(1, 1, msf.FromLBA(lba-trackStart), msf.FromLBA(lba), control)
		sub := subq.Generate(q, false)
		if err := enc.Queue(sector, sub[:]); err != nil {
			return err
		}
		lba++
	}

	if err := enc.Flush(); err != nil {
		return err
	}
	if efmSink != nil {
		if err := efmSink.Finish(); err != nil {
			return err
		}
	}
	if gzw != nil {
		if err := gzw.Close(); err != nil {
			return err
		}
	}
	log.WithFields(logrus.Fields{
		"queued":  lba,
		"emitted": enc.Emitted(),
	}).Info("encode complete")
	return nil
}
