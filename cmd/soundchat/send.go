package main

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soundchat/internal/wavfile"
	"soundchat/pkg/device"
	layer "soundchat/pkg/layers"
)

func (a *app) sendCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "send [message]",
		Short: "Play a message through the speaker",
		Long: "Play a message through the speaker. Without arguments the configured\n" +
			"default message is sent. Text is limited to code points up to U+00FF.",
		RunE: func(cmd *cobra.Command, args []string) error {
			message := a.settings.Sender.Message
			if len(args) > 0 {
				message = strings.Join(args, " ")
			}
			return a.send(cmd.Context(), message, output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the signal to a .wav, .f32 or .txt file instead of playing it")
	cmd.Flags().Float64("countdown", 0, "seconds to wait before playing")
	a.bind(cmd, map[string]string{"sender.countdown": "countdown"}, false)
	return cmd
}

func (a *app) send(ctx context.Context, message, output string) error {
	a.logConfig()
	id := uuid.New()
	log := a.logger.With(zap.Stringer("id", id))

	sig, err := a.fsk(a.settings.Modem).Modulate(message)
	if err != nil {
		log.Error("cannot encode message", zap.Error(err))
		return err
	}
	log.Info("message encoded",
		zap.String("message", message),
		zap.Int("samples", sig.Len()),
		zap.Duration("duration", sig.Duration()))

	if output != "" {
		if err := wavfile.Write(output, sig); err != nil {
			return err
		}
		log.Info("signal written", zap.String("path", output))
		return nil
	}

	if a.settings.Audio.Backend == "" || a.settings.Audio.Backend == "malgo" {
		a.logPlaybackDevices()
	}

	if err := countdown(ctx, a.settings.Sender.CountdownDuration(), log); err != nil {
		return err
	}

	dev, err := a.openDevice(device.Playback)
	if err != nil {
		return err
	}
	pl := layer.New(dev, a.settings.Modem, a.logger.Named("physical"))
	if err := pl.Open(); err != nil {
		return err
	}
	defer pl.Close()

	log.Info("transmitting")
	if err := pl.Play(ctx, sig); err != nil {
		return err
	}
	log.Info("transmission complete")
	return nil
}

func (a *app) logPlaybackDevices() {
	devices, err := device.ListDevices(device.Playback)
	if err != nil {
		a.logger.Warn("cannot list playback devices", zap.Error(err))
		return
	}
	for _, d := range devices {
		a.logger.Debug("playback device", zap.Int("index", d.Index), zap.String("name", d.Name), zap.Bool("default", d.Default))
	}
}

// countdown logs the remaining whole seconds once per second until d has
// elapsed or ctx is done.
func countdown(ctx context.Context, d time.Duration, log *zap.Logger) error {
	for d > 0 {
		log.Info("transmitting in", zap.Int("seconds", int(math.Ceil(d.Seconds()))))
		step := min(d, time.Second)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
		d -= step
	}
	return nil
}
