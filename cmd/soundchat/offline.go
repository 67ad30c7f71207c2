package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soundchat/internal/analysis"
	"soundchat/internal/wavfile"
	"soundchat/pkg/modem"
)

func (a *app) encodeCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "encode <message>",
		Short: "Write the signal for a message to a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sig, err := a.fsk(a.settings.Modem).Modulate(strings.Join(args, " "))
			if err != nil {
				return err
			}
			if err := wavfile.Write(output, sig); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s: %d samples, %.2fs\n", output, sig.Len(), sig.Duration().Seconds())
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "message.wav", "output file (.wav, .f32 or .txt)")
	return cmd
}

// readRecording loads path and adopts the sample rate stored in it.
func (a *app) readRecording(path string) (modem.Config, []float32, error) {
	cfg := a.settings.Modem
	samples, rate, err := wavfile.Read(path, cfg.SampleRate)
	if err != nil {
		return cfg, nil, err
	}
	if rate != cfg.SampleRate {
		a.logger.Info("using sample rate of recording", zap.Int("sample_rate", rate))
		cfg.SampleRate = rate
	}
	return cfg, samples, nil
}

func (a *app) decodeCommand() *cobra.Command {
	var showBits bool
	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode a message from a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, samples, err := a.readRecording(args[0])
			if err != nil {
				return err
			}
			res, err := a.fsk(cfg).Demodulate(samples)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				a.logger.Warn("decoded with warning", zap.Stringer("warning", w))
			}
			if showBits {
				fmt.Fprintln(a.out, res.Bits)
			}
			fmt.Fprintln(a.out, res.Text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showBits, "bits", false, "print the received bits before the text")
	return cmd
}

func (a *app) inspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show levels, spectrum and per-chunk classification of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, samples, err := a.readRecording(args[0])
			if err != nil {
				return err
			}
			report, err := analysis.Inspect(samples, cfg, a.logger.Named("modem"))
			if err != nil {
				return err
			}
			_, err = report.WriteTo(a.out)
			return err
		},
	}
}
