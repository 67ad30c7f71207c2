// Package analysis produces the diagnostic report printed by the inspect
// command: recording levels, a Welch spectrum estimate and the chunk by
// chunk classification the decoder works from.
package analysis

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"soundchat/pkg/modem"
)

// maxNFFT bounds the Welch segment length.
const maxNFFT = 8192

type Spectrum struct {
	NFFT          int
	PeakFrequency float64
	PeakPower     float64
	FloorPower    float64 // median of the power spectral density
}

// ToneToFloor is the ratio of the spectral peak to the median in dB.
func (s Spectrum) ToneToFloor() float64 {
	if s.FloorPower <= 0 || s.PeakPower <= 0 {
		return math.Inf(1)
	}
	return 10 * math.Log10(s.PeakPower/s.FloorPower)
}

type Report struct {
	SampleRate int
	Samples    int
	Duration   time.Duration
	Min, Max   float64
	RMS        float64
	Spectrum   Spectrum
	Chunks     []modem.Chunk
	Counts     map[modem.Classification]int
	Result     *modem.Result // nil when decoding failed
	Err        error
}

// Inspect analyses a recording with cfg. Only configuration errors are
// returned; a failed decode is recorded in Report.Err.
func Inspect(samples []float32, cfg modem.Config, logger *zap.Logger) (*Report, error) {
	d := modem.Demodulator{Config: cfg, Logger: logger}
	chunks, err := d.Analyze(samples)
	if err != nil {
		return nil, err
	}

	x := modem.Float32ToFloat64(samples)
	r := &Report{
		SampleRate: cfg.SampleRate,
		Samples:    len(samples),
		Duration:   time.Duration(float64(len(samples)) / float64(cfg.SampleRate) * float64(time.Second)),
		Chunks:     chunks,
		Counts:     make(map[modem.Classification]int),
	}
	if len(x) > 0 {
		r.Min = floats.Min(x)
		r.Max = floats.Max(x)
		r.RMS = math.Sqrt(floats.Dot(x, x) / float64(len(x)))
		r.Spectrum = Welch(x, cfg.SampleRate, cfg.SamplesPerBit())
	}
	for _, c := range chunks {
		r.Counts[c.Class]++
	}

	r.Result, r.Err = d.Demodulate(samples)
	return r, nil
}

// Welch estimates the power spectral density of x with segments of roughly
// segment samples and reports its peak and median.
func Welch(x []float64, sampleRate, segment int) Spectrum {
	nfft := 1
	for nfft < segment && nfft < maxNFFT {
		nfft <<= 1
	}
	if nfft < 2 {
		nfft = 2
	}

	pxx, freqs := spectral.Pwelch(x, float64(sampleRate), &spectral.PwelchOptions{
		NFFT:     nfft,
		Noverlap: nfft / 2,
		Window:   window.Hann,
	})
	if len(pxx) == 0 {
		return Spectrum{NFFT: nfft}
	}

	i := floats.MaxIdx(pxx)
	sorted := append([]float64(nil), pxx...)
	sort.Float64s(sorted)
	return Spectrum{
		NFFT:          nfft,
		PeakFrequency: freqs[i],
		PeakPower:     pxx[i],
		FloorPower:    stat.Quantile(0.5, stat.Empirical, sorted, nil),
	}
}

func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "samples:     %d (%.2fs at %d Hz)\n", r.Samples, r.Duration.Seconds(), r.SampleRate)
	fmt.Fprintf(&sb, "levels:      min %.4f  max %.4f  rms %.4f\n", r.Min, r.Max, r.RMS)
	fmt.Fprintf(&sb, "spectrum:    peak %.1f Hz  %.1f dB above floor  (nfft %d)\n",
		r.Spectrum.PeakFrequency, r.Spectrum.ToneToFloor(), r.Spectrum.NFFT)

	classes := []modem.Classification{modem.Start, modem.Zero, modem.One, modem.End, modem.Noise}
	counts := make([]string, len(classes))
	for i, c := range classes {
		counts[i] = fmt.Sprintf("%s=%d", c, r.Counts[c])
	}
	fmt.Fprintf(&sb, "chunks:      %d  %s\n", len(r.Chunks), strings.Join(counts, " "))

	if r.Result != nil {
		f := r.Result.Frame
		fmt.Fprintf(&sb, "frame:       start %d  end %d  data [%d, %d)\n", f.Start, f.End, f.DataStart, f.DataEnd)
		fmt.Fprintf(&sb, "bits:        %s (%d)\n", r.Result.Bits, len(r.Result.Bits))
		fmt.Fprintf(&sb, "text:        %q\n", r.Result.Text)
		for _, warn := range r.Result.Warnings {
			fmt.Fprintf(&sb, "warning:     %s\n", warn)
		}
	} else if r.Err != nil {
		fmt.Fprintf(&sb, "decode:      %v\n", r.Err)
	}
	sb.WriteString("\n")

	tw := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "chunk\toffset\tfreq (Hz)\tclass\t")
	for _, c := range r.Chunks {
		fmt.Fprintf(tw, "%d\t%d\t%.1f\t%s\t\n", c.Index, c.Offset, c.Frequency, c.Class)
	}
	tw.Flush()

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}
