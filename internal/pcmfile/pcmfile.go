// Package pcmfile converts between WAV containers and the raw headerless PCM the stream
// engine plays and records.
package pcmfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voicebox/internal/audio"
)

// ErrNotWAV is returned for files without a RIFF/WAVE header.
var ErrNotWAV = errors.New("not a valid wav file")

const pcmAudioFormat = 1

// samplesPerRead bounds one decoder or encoder round trip.
const samplesPerRead = 4096

// IsWAV reports whether path names a WAV file.
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// Probe reads the header of a WAV file and returns the raw format OpenWAV produces for it.
func Probe(path string) (audio.Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return audio.Format{}, err
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return audio.Format{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	return formatOf(decoder), nil
}

func formatOf(d *wav.Decoder) audio.Format {
	layout := audio.LayoutStereo
	if d.NumChans == 1 {
		layout = audio.LayoutMono
	}
	return audio.Format{
		Channels:      int(d.NumChans),
		SampleRate:    int(d.SampleRate),
		BitsPerSample: int(d.BitDepth),
		Layout:        layout,
		Endianness:    audio.NativeEndianness(),
	}
}

// Open opens path for playback, decoding WAV files to host-order raw PCM.
func Open(path string) (io.ReadCloser, error) {
	if IsWAV(path) {
		r, _, err := OpenWAV(path)
		return r, err
	}
	return os.Open(path)
}

// OpenWAV returns a reader over the samples of a WAV file as host-order raw PCM.
func OpenWAV(path string) (io.ReadCloser, audio.Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, audio.Format{}, err
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		file.Close()
		return nil, audio.Format{}, fmt.Errorf("%s: %w", path, ErrNotWAV)
	}
	f := formatOf(decoder)
	if err := f.Validate(); err != nil {
		file.Close()
		return nil, audio.Format{}, err
	}
	if err := decoder.FwdToPCM(); err != nil {
		file.Close()
		return nil, audio.Format{}, fmt.Errorf("seek pcm chunk: %w", err)
	}

	return &wavReader{
		file:    file,
		decoder: decoder,
		bytes:   f.BytesPerSample(),
		order:   byteOrder(f.Endianness),
		buf: &goaudio.IntBuffer{
			Format:         decoder.Format(),
			Data:           make([]int, samplesPerRead),
			SourceBitDepth: f.BitsPerSample,
		},
	}, f, nil
}

type wavReader struct {
	file    *os.File
	decoder *wav.Decoder
	buf     *goaudio.IntBuffer
	bytes   int
	order   sampleOrder

	raw     []byte
	pending []byte
}

func (r *wavReader) Read(p []byte) (int, error) {
	for len(r.pending) == 0 {
		n, err := r.decoder.PCMBuffer(r.buf)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, err
		}
		if n == 0 {
			return 0, io.EOF
		}
		r.raw = encodeSamples(r.raw[:0], r.buf.Data[:n], r.bytes, r.order)
		r.pending = r.raw
	}
	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}

func (r *wavReader) Close() error {
	return r.file.Close()
}

// ExportWAV wraps the raw PCM file src, stored in format f, into the WAV file dst.
func ExportWAV(src, dst string, f audio.Format) (err error) {
	if err := f.Validate(); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	encoder := wav.NewEncoder(out, f.SampleRate, f.BitsPerSample, f.Channels, pcmAudioFormat)
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: f.Channels,
			SampleRate:  f.SampleRate,
		},
		SourceBitDepth: f.BitsPerSample,
	}

	size := f.BytesPerSample()
	order := byteOrder(f.Endianness)
	chunk := make([]byte, samplesPerRead*size)
	for {
		n, rerr := io.ReadFull(in, chunk)
		n -= n % size
		if n > 0 {
			buf.Data = decodeSamples(buf.Data[:0], chunk[:n], size, order)
			if err := encoder.Write(buf); err != nil {
				return fmt.Errorf("encode wav: %w", err)
			}
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
	}
	return encoder.Close()
}

type sampleOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

func byteOrder(e audio.Endianness) sampleOrder {
	if e == audio.BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// encodeSamples appends samples as raw PCM. 8-bit samples are unsigned.
func encodeSamples(dst []byte, samples []int, size int, order sampleOrder) []byte {
	for _, v := range samples {
		if size == 1 {
			dst = append(dst, byte(v))
			continue
		}
		dst = order.AppendUint16(dst, uint16(int16(v)))
	}
	return dst
}

func decodeSamples(dst []int, raw []byte, size int, order sampleOrder) []int {
	for i := 0; i+size <= len(raw); i += size {
		if size == 1 {
			dst = append(dst, int(raw[i]))
			continue
		}
		dst = append(dst, int(int16(order.Uint16(raw[i:]))))
	}
	return dst
}
