// Package wavfile reads and writes recordings for the offline encode and
// decode commands. The format follows the file extension: .wav is PCM WAV,
// .f32 is headerless little-endian float32 and .txt holds one sample per line.
package wavfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"soundchat/internal/errors"
	"soundchat/pkg/modem"
)

type Format int

const (
	WAV Format = iota
	Float32
	Text
)

func (f Format) String() string {
	switch f {
	case WAV:
		return "wav"
	case Float32:
		return "f32"
	case Text:
		return "txt"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return WAV, nil
	case ".f32", ".raw", ".bin":
		return Float32, nil
	case ".txt":
		return Text, nil
	default:
		return 0, errors.Newf("unsupported audio file extension %q", filepath.Ext(path)).
			Component("wavfile").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}
}

// BitDepth of written WAV files.
const BitDepth = 16

// Read loads a mono recording. WAV files carry their own sample rate; the
// headerless formats are assumed to be recorded at sampleRate. Multi-channel
// WAV input is mixed down to mono.
func Read(path string, sampleRate int) ([]float32, int, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, 0, err
	}

	switch format {
	case Float32:
		samples, err := ReadBinary[float32](path)
		return samples, sampleRate, fileError(err, path)
	case Text:
		samples, err := ReadText[float32](path)
		return samples, sampleRate, fileError(err, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fileError(err, path)
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, 0, errors.Newf("input is not a valid WAV audio file").
			Component("wavfile").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	divisor, err := divisorFor(int(decoder.BitDepth))
	if err != nil {
		return nil, 0, errors.New(err).
			Component("wavfile").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}
	channels := int(decoder.NumChans)
	if channels < 1 {
		channels = 1
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, errors.New(err).
			Component("wavfile").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Build()
	}

	offset := 0
	if decoder.BitDepth == 8 {
		offset = 128
	}
	samples := make([]float32, len(buf.Data)/channels)
	for i := range samples {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]-offset) / divisor
		}
		samples[i] = sum / float32(channels)
	}
	return samples, int(decoder.SampleRate), nil
}

func divisorFor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128, nil
	case 16:
		return 32768, nil
	case 24:
		return 8388608, nil
	case 32:
		return 2147483648, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

// Write stores sig in the format chosen by the extension of path.
func Write(path string, sig modem.Signal) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}

	switch format {
	case Float32:
		return fileError(WriteBinary(path, sig.Float32()), path)
	case Text:
		return fileError(WriteText(path, sig.Samples), path)
	}

	file, err := os.Create(path)
	if err != nil {
		return fileError(err, path)
	}

	const scale = 1<<(BitDepth-1) - 1
	data := make([]int, len(sig.Samples))
	for i, s := range sig.Samples {
		s = min(max(s, -1), 1)
		data[i] = int(s * scale)
	}

	enc := wav.NewEncoder(file, sig.SampleRate, BitDepth, 1, 1)
	err = enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: sig.SampleRate, NumChannels: 1},
		SourceBitDepth: BitDepth,
	})
	if err == nil {
		err = enc.Close()
	}
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	return fileError(err, path)
}

func fileError(err error, path string) error {
	if err == nil {
		return nil
	}
	return errors.New(err).
		Component("wavfile").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
