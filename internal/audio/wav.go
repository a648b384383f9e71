// Package audio turns a file on disk into the (samples []float32,
// sampleRate int) pair the fingerprinting pipeline accepts. It decodes
// uncompressed PCM WAV only: general-purpose demuxing/decoding (mp3, flac,
// streaming capture) is out of scope, so this collaborator stays narrow
// rather than growing into a media framework.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/media-luna/landmarkid/internal/errs"
	"github.com/media-luna/landmarkid/internal/logger"
)

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BytesPerSec   uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// ReadWAV decodes a 16-bit PCM WAV file into mono float32 samples in
// [-1, 1]. Mono and stereo input is downmixed by averaging channels; input
// with more than two channels takes the first channel only, with a warning,
// rather than averaging across channels whose layout is unknown. It returns
// the file's native sample rate; resampling to the engine's configured rate
// is the caller's responsibility.
func ReadWAV(path string) (samples []float32, sampleRate int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, errs.Wrap(errs.KindDecoder, "audio.ReadWAV", err)
	}
	if len(data) < 44 {
		return nil, 0, errs.Wrap(errs.KindDecoder, "audio.ReadWAV", fmt.Errorf("file too short to be a WAV file: %d bytes", len(data)))
	}

	var header wavHeader
	if err := binary.Read(bytes.NewReader(data[:36]), binary.LittleEndian, &header); err != nil {
		return nil, 0, errs.Wrap(errs.KindDecoder, "audio.ReadWAV", err)
	}
	if header.ChunkID != [4]byte{'R', 'I', 'F', 'F'} || header.Format != [4]byte{'W', 'A', 'V', 'E'} {
		return nil, 0, errs.Wrap(errs.KindDecoder, "audio.ReadWAV", fmt.Errorf("not a RIFF/WAVE file"))
	}
	if header.AudioFormat != 1 || header.BitsPerSample != 16 {
		return nil, 0, errs.Wrap(errs.KindDecoder, "audio.ReadWAV", fmt.Errorf("unsupported WAV format: audioFormat=%d bitsPerSample=%d (only 16-bit PCM is supported)", header.AudioFormat, header.BitsPerSample))
	}

	pcm, found := findDataChunk(data)
	if !found {
		return nil, 0, errs.Wrap(errs.KindDecoder, "audio.ReadWAV", fmt.Errorf("no data chunk found"))
	}

	channels := int(header.NumChannels)
	if channels < 1 {
		channels = 1
	}
	if channels > 2 {
		logger.Error("audio.ReadWAV", fmt.Errorf("unsupported channel layout"), "channels", channels,
			"note", "taking first channel only")
	}
	frameBytes := 2 * channels
	numFrames := len(pcm) / frameBytes

	out := make([]float32, numFrames)
	for i := 0; i < numFrames; i++ {
		base := i * frameBytes
		var sample int16
		if channels == 2 {
			l := int16(binary.LittleEndian.Uint16(pcm[base : base+2]))
			r := int16(binary.LittleEndian.Uint16(pcm[base+2 : base+4]))
			sample = int16((int32(l) + int32(r)) / 2)
		} else {
			sample = int16(binary.LittleEndian.Uint16(pcm[base : base+2]))
		}
		out[i] = float32(sample) / 32768.0
	}

	return out, int(header.SampleRate), nil
}

// findDataChunk walks the WAV chunk list looking for "data", skipping any
// other chunks (e.g. "LIST", "fact") that precede it.
func findDataChunk(data []byte) ([]byte, bool) {
	pos := 12 // past RIFF header
	for pos+8 <= len(data) {
		id := data[pos : pos+4]
		size := binary.LittleEndian.Uint32(data[pos+4 : pos+8])
		start := pos + 8
		end := start + int(size)
		if end > len(data) {
			end = len(data)
		}
		if string(id) == "data" {
			return data[start:end], true
		}
		pos = end
		if size%2 == 1 {
			pos++ // chunks are word-aligned
		}
	}
	return nil, false
}
