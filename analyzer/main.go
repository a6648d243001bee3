// The analyzer command decodes captured EFM bitstreams back into
// sectors, and converts logic-analyzer CSV captures into the '0'/'1'
// text form the decoder consumes.
package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"

	"github.com/grumpycoders/iec-60908/circ"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  %[1]s parseCSV <in.csv> <out.txt>
  %[1]s analyze [-f] [-s] [-e] [-d] [-o <file>] [-c] [-v] <in>
`, os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	log := logrus.New()
	var err error
	switch os.Args[1] {
	case "parseCSV":
		if len(os.Args) != 4 {
			usage()
		}
		err = parseCSV(os.Args[2], os.Args[3])
	case "analyze":
		err = analyze(os.Args[2:], log)
	default:
		usage()
	}
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func analyze(args []string, log *logrus.Logger) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var opts circ.Options
	var outPath string
	var withSub, verbose bool
	fs.BoolVar(&opts.LogFrames, "f", false, "log frame-level events")
	fs.BoolVar(&opts.LogSectors, "s", false, "log sector-level events")
	fs.BoolVar(&opts.LogRS, "e", false, "log Reed-Solomon reports")
	fs.BoolVar(&opts.LogQ, "d", false, "dump decoded subchannel-Q")
	fs.StringVar(&outPath, "o", "", "write decoded sectors to this file")
	fs.BoolVar(&withSub, "c", false, "with -o, append the 96 subchannel bytes")
	fs.BoolVar(&verbose, "v", false, "enable debug logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		usage()
	}
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	levels, err := readCapture(fs.Arg(0))
	if err != nil {
		return err
	}
	log.WithField("bits", len(levels)).Debug("capture loaded")

	dec := circ.NewDecoder(opts, log)
	sectors, err := dec.Decode(levels)
	if err != nil {
		return err
	}

	var out *os.File
	if outPath != "" {
		out, err = os.Create(outPath)
		if err != nil {
			return err
		}
		defer out.Close()
	}

	var crcFailures, c1, c2, erasures, scrambled int
	for i := range sectors {
		s := &sectors[i]
		if !s.Q.CRCValid {
			crcFailures++
		}
		c1 += len(s.C1Reports)
		c2 += len(s.C2Reports)
		erasures += s.Erasures
		if s.Scrambled {
			scrambled++
		}
		if out != nil {
			if _, err := out.Write(s.Payload[:]); err != nil {
				return err
			}
			if withSub {
				if _, err := out.Write(s.Subchannel[:]); err != nil {
					return err
				}
			}
		}
	}
	log.WithFields(logrus.Fields{
		"sectors":     len(sectors),
		"crcFailures": crcFailures,
		"c1Reports":   c1,
		"c2Reports":   c2,
		"erasures":    erasures,
		"descrambled": scrambled,
	}).Info("analysis complete")
	return nil
}

// readCapture loads a channel-level capture: gzip is unwrapped, then
// the content is taken as '0'/'1' text if it looks like it, or as
// packed bits, LSB first, otherwise.
func readCapture(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) >= 2 && raw[0] == 0x1F && raw[1] == 0x8B {
		gzr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		raw, err = io.ReadAll(gzr)
		if err != nil {
			return nil, err
		}
	}
	if isText(raw) {
		levels := make([]byte, 0, len(raw))
		for _, c := range raw {
			switch c {
			case '0':
				levels = append(levels, 0)
			case '1':
				levels = append(levels, 1)
			}
		}
		return levels, nil
	}
	levels := make([]byte, 0, len(raw)*8)
	for _, b := range raw {
		for i := 0; i < 8; i++ {
			levels = append(levels, b>>i&1)
		}
	}
	return levels, nil
}

func isText(raw []byte) bool {
	for _, c := range raw {
		switch c {
		case '0', '1', '\r', '\n', ' ':
		default:
			return false
		}
	}
	return len(raw) > 0
}

// parseCSV converts a logic-analyzer edge capture (rows of
// "time,level") into one '0'/'1' character per channel bit. The
// channel-bit period is inferred from the shortest run, which the
// run-length limits guarantee is 3 bits long.
func parseCSV(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	var times []float64
	var vals []byte
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(rec) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(rec[0], 64)
		if err != nil {
			continue // header row
		}
		v, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			continue
		}
		level := byte(0)
		if v >= 0.5 {
			level = 1
		}
		// keep only edges
		if len(vals) > 0 && vals[len(vals)-1] == level {
			continue
		}
		times = append(times, t)
		vals = append(vals, level)
	}
	if len(times) < 2 {
		return errors.New("parseCSV: no edges in capture")
	}

	shortest := math.Inf(1)
	for i := 1; i < len(times); i++ {
		if d := times[i] - times[i-1]; d > 0 && d < shortest {
			shortest = d
		}
	}
	period := shortest / 3

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	var buf bytes.Buffer
	for i := 1; i < len(times); i++ {
		n := int(math.Round((times[i] - times[i-1]) / period))
		if n < 1 {
			n = 1
		} else if n > 11 {
			n = 11
		}
		for j := 0; j < n; j++ {
			buf.WriteByte('0' + vals[i-1])
		}
	}
	// the final level lasts at least one minimum run
	for j := 0; j < 3; j++ {
		buf.WriteByte('0' + vals[len(vals)-1])
	}
	_, err = buf.WriteTo(out)
	return err
}
