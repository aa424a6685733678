// Package audio provides WAV file reading for the analysis pipeline.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	gaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StdinPath is the input path that selects standard input.
const StdinPath = "-"

// chunkFrames is how many frames a single decode pass requests.
const chunkFrames = 4096

// Metadata contains audio file metadata
type Metadata struct {
	Path       string
	Duration   float64 // seconds
	SampleRate int
	Channels   int
	BitDepth   int
	NumFrames  int // per-channel sample count
}

// Reader streams interleaved PCM frames from a WAV source as float64
// samples normalized to [-1, 1). Digital silence decodes to exactly 0.0.
type Reader struct {
	file io.Closer // nil when reading from a memory buffer
	dec  *wav.Decoder
	meta Metadata

	ibuf *gaudio.IntBuffer
	data []int // full backing slice; PCMBuffer reslices ibuf.Data
	norm func(int) float64
	eof  bool
}

// Open opens a WAV file for streaming analysis. The path "-" reads the
// whole of standard input into memory first (the decoder needs to seek).
func Open(path string) (*Reader, *Metadata, error) {
	var (
		src  io.ReadSeeker
		file io.Closer
	)

	if path == StdinPath {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		src = bytes.NewReader(raw)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open input file: %w", err)
		}
		src = f
		file = f
	}

	reader, meta, err := newReader(src, path)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, nil, err
	}
	reader.file = file
	return reader, meta, nil
}

// newReader validates the WAV header and prepares the decode state.
func newReader(src io.ReadSeeker, path string) (*Reader, *Metadata, error) {
	dec := wav.NewDecoder(src)
	if !dec.IsValidFile() {
		return nil, nil, fmt.Errorf("not a readable WAV file: %s", path)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, nil, fmt.Errorf("failed to locate PCM data in %s: %w", path, err)
	}

	channels := int(dec.NumChans)
	sampleRate := int(dec.SampleRate)
	bitDepth := int(dec.BitDepth)
	if channels < 1 {
		return nil, nil, fmt.Errorf("no audio channels in file: %s", path)
	}
	if sampleRate < 1 {
		return nil, nil, fmt.Errorf("invalid sample rate in file: %s", path)
	}
	norm, err := normFunc(bitDepth)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	bytesPerSample := bitDepth / 8
	numFrames := int(dec.PCMSize) / bytesPerSample / channels

	meta := Metadata{
		Path:       path,
		Duration:   float64(numFrames) / float64(sampleRate),
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
		NumFrames:  numFrames,
	}

	data := make([]int, chunkFrames*channels)
	reader := &Reader{
		dec:  dec,
		meta: meta,
		ibuf: &gaudio.IntBuffer{Data: data},
		data: data,
		norm: norm,
	}
	return reader, &meta, nil
}

// normFunc returns the integer-to-float conversion for a PCM bit depth.
// 8-bit WAV is unsigned; the deeper depths are signed.
func normFunc(bitDepth int) (func(int) float64, error) {
	switch bitDepth {
	case 8:
		return func(v int) float64 { return (float64(v) - 128.0) / 128.0 }, nil
	case 16:
		return func(v int) float64 { return float64(v) / 32768.0 }, nil
	case 24:
		return func(v int) float64 { return float64(v) / 8388608.0 }, nil
	case 32:
		return func(v int) float64 { return float64(v) / 2147483648.0 }, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitDepth)
	}
}

// ReadFrames fills buf with interleaved normalized samples and returns the
// count read, always a multiple of the channel count. A trailing partial
// frame in a truncated file is discarded. Returns io.EOF when drained.
func (r *Reader) ReadFrames(buf []float64) (int, error) {
	if r.eof {
		return 0, io.EOF
	}
	channels := r.meta.Channels
	want := len(buf) - len(buf)%channels
	if want > len(r.data) {
		want = len(r.data) - len(r.data)%channels
	}
	if want == 0 {
		return 0, errors.New("frame buffer smaller than one frame")
	}

	// PCMBuffer truncates Data on short reads, so restore it first.
	r.ibuf.Data = r.data[:want]
	n, err := r.dec.PCMBuffer(r.ibuf)
	if err != nil {
		return 0, fmt.Errorf("failed to decode PCM chunk: %w", err)
	}
	if n == 0 {
		r.eof = true
		return 0, io.EOF
	}

	n -= n % channels
	for i := 0; i < n; i++ {
		buf[i] = r.norm(r.ibuf.Data[i])
	}
	if n < want {
		r.eof = true
	}
	return n, nil
}

// SampleRate returns the source sample rate in Hz.
func (r *Reader) SampleRate() int { return r.meta.SampleRate }

// Channels returns the channel count.
func (r *Reader) Channels() int { return r.meta.Channels }

// NumFrames returns the total per-channel sample count.
func (r *Reader) NumFrames() int { return r.meta.NumFrames }

// Metadata returns the source metadata.
func (r *Reader) Metadata() Metadata { return r.meta }

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
