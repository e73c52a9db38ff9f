package spectrum

import (
	"encoding/binary"
	"math"

	"github.com/racerxdl/fastconvert"
)

// SampleSize is the wire size of one complex64 sample: a 32-bit float real
// part followed by a 32-bit float imaginary part.
const SampleSize = 8

// FrameBytes returns the size in bytes of one spectral frame of fftSize bins.
func FrameBytes(fftSize int) int {
	return fftSize * SampleSize
}

// EncodeFrame appends the wire representation of frame to dst and returns
// the extended buffer. Samples are written in native byte order, without
// any header.
func EncodeFrame(dst []byte, frame []complex64) []byte {
	var b [SampleSize]byte
	for _, s := range frame {
		binary.NativeEndian.PutUint32(b[0:4], math.Float32bits(real(s)))
		binary.NativeEndian.PutUint32(b[4:8], math.Float32bits(imag(s)))
		dst = append(dst, b[:]...)
	}
	return dst
}

// Reshape interprets payload as a row-major sequence of complex64 frames of
// fftSize samples each. It returns a *ShapeError when the payload does not
// hold a whole number of frames. An empty payload yields zero frames.
func Reshape(payload []byte, fftSize int) ([][]complex64, error) {
	frameBytes := FrameBytes(fftSize)
	if fftSize <= 0 || len(payload)%frameBytes != 0 {
		return nil, &ShapeError{Length: len(payload), FrameBytes: frameBytes}
	}

	n := len(payload) / frameBytes
	if n == 0 {
		return [][]complex64{}, nil
	}

	samples := fastconvert.ByteArrayToComplex64Array(payload)

	frames := make([][]complex64, n)
	for i := range frames {
		frames[i] = samples[i*fftSize : (i+1)*fftSize : (i+1)*fftSize]
	}
	return frames, nil
}
