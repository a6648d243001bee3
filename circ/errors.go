package circ

import "fmt"

// DecodeError is a capture-level failure the decoder cannot make
// progress past. Everything else is reported and tolerated.
type DecodeError int

const (
	ErrCaptureTooShort DecodeError = 1
	ErrNoFrameSync     DecodeError = 2
)

func (e DecodeError) Error() string {
	return fmt.Sprintf("circ: %v", e.name())
}

func (e DecodeError) name() string {
	switch e {
	case ErrCaptureTooShort:
		return "capture shorter than one frame"
	case ErrNoFrameSync:
		return "no frame sync found"
	default:
		return fmt.Sprintf("unknown error code: %v", int(e))
	}
}
