package modem

import (
	"slices"

	"go.uber.org/zap"
)

// chunks logged individually before only framing tones are reported
const debugChunkLimit = 20

// Result is a successfully decoded message and the evidence behind it.
type Result struct {
	Text     string
	Bits     string
	Symbols  Symbols
	Frame    Frame
	Chunks   []Chunk
	Warnings []Warning
}

func (r *Result) Bytes() []byte {
	return r.Symbols.Bytes()
}

func (r *Result) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// Demodulator recovers text from a recording made while a Modulator with
// the same Config was playing.
type Demodulator struct {
	Config Config
	Logger *zap.Logger
}

// SplitChunks cuts samples into windows of size samples. A trailing window
// shorter than half of size is dropped.
func SplitChunks(samples []float32, size int) [][]float32 {
	if size <= 0 {
		return nil
	}
	chunks := make([][]float32, 0, len(samples)/size+1)
	for i := 0; i < len(samples); i += size {
		chunk := samples[i:min(i+size, len(samples))]
		if len(chunk) < size/2 {
			break
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Analyze splits samples into bit-length chunks and classifies each one.
func (d *Demodulator) Analyze(samples []float32) ([]Chunk, error) {
	if err := d.Config.Validate(); err != nil {
		return nil, err
	}
	log := orNop(d.Logger)

	size := d.Config.SamplesPerBit()
	windows := SplitChunks(samples, size)
	log.Debug("created chunks for analysis", zap.Int("chunks", len(windows)), zap.Int("chunk_size", size))

	det := newDetector(d.Config.SampleRate, d.Config.MinAmplitude)
	chunks := make([]Chunk, len(windows))
	for i, w := range windows {
		freq := det.dominant(w)
		chunks[i] = Chunk{
			Index:     i,
			Offset:    i * size,
			Length:    len(w),
			Frequency: freq,
			Class:     Classify(freq, d.Config),
		}
		if i < debugChunkLimit || chunks[i].Class == Start || chunks[i].Class == End {
			log.Debug("chunk", zap.Int("index", i), zap.Float64("freq", freq), zap.Stringer("class", chunks[i].Class))
		}
	}
	return chunks, nil
}

func (d *Demodulator) Demodulate(samples []float32) (*Result, error) {
	chunks, err := d.Analyze(samples)
	if err != nil {
		return nil, err
	}

	frame, err := scanFrame(chunks, d.Config, d.Logger)
	if err != nil {
		return nil, err
	}

	warnings := slices.Clone(frame.Warnings)
	if len(frame.Bits)%bitsPerByte != 0 {
		warnings = append(warnings, Warning{Kind: PaddedPayload, Chunk: -1})
		orNop(d.Logger).Debug("bit count not a multiple of 8, padding", zap.Int("bits", len(frame.Bits)))
	}

	symbols := BitsToSymbols(frame.Bits)
	return &Result{
		Text:     symbols.Text(),
		Bits:     frame.Bits,
		Symbols:  symbols,
		Frame:    frame,
		Chunks:   chunks,
		Warnings: warnings,
	}, nil
}

// Decode demodulates samples with cfg and returns only the text.
func Decode(samples []float32, cfg Config) (string, error) {
	d := Demodulator{Config: cfg}
	r, err := d.Demodulate(samples)
	if err != nil {
		return "", err
	}
	return r.Text, nil
}
