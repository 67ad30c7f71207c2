package modem

import (
	"math"
	"strings"

	"go.uber.org/zap"
)

// Chunk is one bit-length window of a recording and what was heard in it.
type Chunk struct {
	Index     int
	Offset    int // first sample of the chunk
	Length    int
	Frequency float64
	Class     Classification
}

// Frame is the outcome of scanning classified chunks for a message.
// Start and End are chunk indexes; End equals the chunk count when the
// frame is truncated. Payload chunks are [DataStart, DataEnd).
type Frame struct {
	Start     int
	End       int
	DataStart int
	DataEnd   int
	Truncated bool
	Bits      string
	Warnings  []Warning
}

type scanState int

const (
	seekStart scanState = iota
	seekEnd
	trim
	extract
	done
)

func (s scanState) String() string {
	return [...]string{"SeekStart", "SeekEnd", "Trim", "Extract", "Done"}[s]
}

type frameScanner struct {
	cfg    Config
	chunks []Chunk
	log    *zap.Logger

	state scanState
	frame Frame
	err   error
}

// ScanFrame locates the frame delimited by Start and End chunks and
// extracts its bits. It fails with NoStartSignal when no chunk is a Start
// tone and with EmptyPayload when the frame holds no bits.
func ScanFrame(chunks []Chunk, cfg Config) (Frame, error) {
	return scanFrame(chunks, cfg, nil)
}

func scanFrame(chunks []Chunk, cfg Config, logger *zap.Logger) (Frame, error) {
	s := frameScanner{cfg: cfg, chunks: chunks, log: orNop(logger)}
	for s.state != done {
		s.step()
	}
	return s.frame, s.err
}

func (s *frameScanner) step() {
	switch s.state {
	case seekStart:
		s.seekStart()
	case seekEnd:
		s.seekEnd()
	case trim:
		s.trim()
	case extract:
		s.extract()
	}
}

func (s *frameScanner) seekStart() {
	for i, c := range s.chunks {
		if c.Class == Start {
			s.frame.Start = i
			s.log.Debug("found start signal", zap.Int("chunk", i))
			s.state = seekEnd
			return
		}
	}
	s.err = newError(NoStartSignal, "none of %d chunks carries the start tone", len(s.chunks))
	s.state = done
}

func (s *frameScanner) seekEnd() {
	for i := s.frame.Start + 1; i < len(s.chunks); i++ {
		if s.chunks[i].Class == End {
			s.frame.End = i
			s.log.Debug("found end signal", zap.Int("chunk", i))
			s.state = trim
			return
		}
	}
	s.frame.End = len(s.chunks)
	s.frame.Truncated = true
	s.frame.Warnings = append(s.frame.Warnings, Warning{Kind: TruncatedFrame, Chunk: s.frame.Start})
	s.log.Debug("no end signal, decoding to the end of the recording")
	s.state = trim
}

// trim skips the rest of the start tone and the silence around the payload.
func (s *frameScanner) trim() {
	lo, hi := s.frame.Start+1, s.frame.End
	for lo < hi && (s.chunks[lo].Class == Noise || s.chunks[lo].Class == Start) {
		lo++
	}
	for hi > lo && s.chunks[hi-1].Class == Noise {
		hi--
	}
	s.frame.DataStart, s.frame.DataEnd = lo, hi
	s.log.Debug("data chunks", zap.Int("from", lo), zap.Int("to", hi-1))
	s.state = extract
}

func (s *frameScanner) extract() {
	var bits strings.Builder
	for i := s.frame.DataStart; i < s.frame.DataEnd; i++ {
		c := s.chunks[i]
		switch c.Class {
		case Zero:
			bits.WriteByte('0')
		case One:
			bits.WriteByte('1')
		case Noise:
			bit := s.guess(c.Frequency)
			bits.WriteByte(bit)
			s.frame.Warnings = append(s.frame.Warnings, Warning{Kind: AmbiguousBit, Chunk: i, Frequency: c.Frequency, Bit: bit})
			s.log.Debug("guessed bit", zap.Int("chunk", i), zap.Float64("freq", c.Frequency), zap.String("bit", string(bit)))
		default:
			// framing tones inside the payload carry no data
		}
	}
	s.frame.Bits = bits.String()
	s.log.Debug("extracted bits", zap.String("bits", s.frame.Bits), zap.Int("length", len(s.frame.Bits)))
	if s.frame.Bits == "" {
		s.err = newError(EmptyPayload, "no data between chunks %d and %d", s.frame.Start, s.frame.End)
	}
	s.state = done
}

// guess picks the bit whose frequency is nearer; ties go to '1'.
func (s *frameScanner) guess(freq float64) byte {
	if math.Abs(freq-s.cfg.Freq0) < math.Abs(freq-s.cfg.Freq1) {
		return '0'
	}
	return '1'
}
