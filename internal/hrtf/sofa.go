package hrtf

import (
	"encoding/binary"
	"errors"
	"math"
)

// Parsing a SOFA/netCDF file itself is out of scope for this package;
// hosts decode the file externally (or via a dedicated SOFA library) and
// hand this package the resulting measurement set as a flat byte
// buffer, described by the wire layout below. DecodeBytes turns that
// buffer back into a Database.
//
// Wire layout (little-endian):
//
//	uint32  sampleRate
//	uint32  numDirections
//	uint32  irLength
//	for each direction:
//	    float32 x, y, z
//	    float32[irLength] left
//	    float32[irLength] right
var (
	// ErrTruncated is returned when a byte buffer ends before its header
	// says it should.
	ErrTruncated = errors.New("hrtf: truncated measurement buffer")
)

// DecodeBytes parses a flat measurement buffer (see the wire layout
// documented above this function) and builds a Database from it.
func DecodeBytes(data []byte, opts Options) (*Database, error) {
	r := &byteReader{buf: data}

	sampleRate, err := r.uint32()
	if err != nil {
		return nil, err
	}
	numDirections, err := r.uint32()
	if err != nil {
		return nil, err
	}
	irLength, err := r.uint32()
	if err != nil {
		return nil, err
	}

	dirs := make([]Direction, numDirections)
	left := make([][]float64, numDirections)
	right := make([][]float64, numDirections)

	for i := 0; i < int(numDirections); i++ {
		x, err := r.float32()
		if err != nil {
			return nil, err
		}
		y, err := r.float32()
		if err != nil {
			return nil, err
		}
		z, err := r.float32()
		if err != nil {
			return nil, err
		}
		dirs[i] = Direction{X: float64(x), Y: float64(y), Z: float64(z)}

		l := make([]float64, irLength)
		for j := range l {
			v, err := r.float32()
			if err != nil {
				return nil, err
			}
			l[j] = float64(v)
		}
		left[i] = l

		rr := make([]float64, irLength)
		for j := range rr {
			v, err := r.float32()
			if err != nil {
				return nil, err
			}
			rr[j] = float64(v)
		}
		right[i] = rr
	}

	opts.SampleRate = int(sampleRate)
	return New(dirs, left, right, opts)
}

// byteReader is a minimal little-endian cursor over a byte slice; it
// exists so DecodeBytes can report ErrTruncated instead of panicking on
// a malformed buffer.
type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) uint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) float32() (float32, error) {
	v, err := r.uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}
