package pcmfile

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicebox/internal/audio"
)

func writeRaw(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "take.pcm")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExportAndReadBack(t *testing.T) {
	tests := []struct {
		name string
		f    audio.Format
	}{
		{"16 bit stereo", audio.Format{Channels: 2, SampleRate: 44100, BitsPerSample: 16, Layout: audio.LayoutStereo, Endianness: audio.NativeEndianness()}},
		{"8 bit mono", audio.Format{Channels: 1, SampleRate: 8000, BitsPerSample: 8, Layout: audio.LayoutMono, Endianness: audio.NativeEndianness()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, 3*samplesPerRead*tt.f.BytesPerSample()+tt.f.BytesPerSample()*tt.f.Channels)
			for i := range data {
				data[i] = byte(i * 31)
			}
			dst := filepath.Join(t.TempDir(), "take.wav")
			require.NoError(t, ExportWAV(writeRaw(t, data), dst, tt.f))

			probed, err := Probe(dst)
			require.NoError(t, err)
			assert.Equal(t, tt.f, probed)

			r, f, err := OpenWAV(dst)
			require.NoError(t, err)
			defer r.Close()
			assert.Equal(t, tt.f, f)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestExportConvertsByteOrder(t *testing.T) {
	foreign := audio.BigEndian
	if audio.NativeEndianness() == audio.BigEndian {
		foreign = audio.LittleEndian
	}
	f := audio.Format{Channels: 1, SampleRate: 8000, BitsPerSample: 16, Layout: audio.LayoutMono, Endianness: foreign}

	dst := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, ExportWAV(writeRaw(t, []byte{0x12, 0x34, 0x56, 0x78}), dst, f))

	r, err := Open(dst)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12, 0x78, 0x56}, got)
}

func TestExportDropsTrailingPartialSample(t *testing.T) {
	f := audio.Format{Channels: 1, SampleRate: 8000, BitsPerSample: 16, Layout: audio.LayoutMono, Endianness: audio.NativeEndianness()}
	dst := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, ExportWAV(writeRaw(t, []byte{1, 2, 3}), dst, f))

	r, _, err := OpenWAV(dst)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got)
}

func TestExportRejectsUnsupportedFormat(t *testing.T) {
	f := audio.Format{Channels: 1, SampleRate: 8000, BitsPerSample: 24, Layout: audio.LayoutMono, Endianness: audio.LittleEndian}
	err := ExportWAV(writeRaw(t, nil), filepath.Join(t.TempDir(), "x.wav"), f)
	assert.ErrorIs(t, err, audio.ErrUnsupportedFormat)
}

func TestOpenRejectsRawAsWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	require.NoError(t, os.WriteFile(path, []byte("definitely not riff"), 0o644))

	_, _, err := OpenWAV(path)
	assert.ErrorIs(t, err, ErrNotWAV)
	_, err = Probe(path)
	assert.ErrorIs(t, err, ErrNotWAV)
}

func TestOpenRawPassthrough(t *testing.T) {
	path := writeRaw(t, []byte{9, 8, 7})
	assert.False(t, IsWAV(path))
	assert.True(t, IsWAV("TAKE.WAV"))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, got)
}
