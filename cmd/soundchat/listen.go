package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"soundchat/internal/metrics"
	"soundchat/internal/mqtt"
	"soundchat/pkg/async"
	"soundchat/pkg/device"
	layer "soundchat/pkg/layers"
	"soundchat/pkg/modem"
)

type receiver struct {
	app     *app
	metrics *metrics.Metrics
	mqtt    *mqtt.Publisher
}

func (a *app) listenCommand() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Record from the microphone and decode a message",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listen(cmd.Context(), input)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&input, "input", "i", "", "decode a recording file instead of the microphone")
	flags.Float64P("timeout", "t", 0, "seconds to record")
	flags.Bool("once", false, "exit after one recording")
	flags.Bool("mqtt", false, "publish received messages to the MQTT broker")
	flags.Bool("metrics", false, "serve Prometheus metrics while listening")
	a.bind(cmd, map[string]string{
		"receiver.timeout": "timeout",
		"mqtt.enabled":     "mqtt",
		"metrics.enabled":  "metrics",
	}, false)
	cmd.PreRunE = func(cmd *cobra.Command, _ []string) error {
		if once, _ := cmd.Flags().GetBool("once"); once {
			a.settings.Receiver.Interactive = false
		}
		return nil
	}
	return cmd
}

func (a *app) listen(ctx context.Context, input string) error {
	a.logConfig()
	r := &receiver{app: a}

	if a.settings.Metrics.Enabled {
		m, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		r.metrics = m
		ctx, cancel := context.WithCancel(ctx)
		served := async.Job(func() {
			if err := m.Serve(ctx, a.settings.Metrics.Listen, a.logger); err != nil {
				a.logger.Error("metrics server stopped", zap.Error(err))
			}
		})
		defer func() {
			cancel()
			<-served
		}()
	}

	if a.settings.MQTT.Enabled {
		pub, err := mqtt.Connect(a.settings.MQTT, a.logger.Named("mqtt"))
		if err != nil {
			return err
		}
		defer pub.Close()
		r.mqtt = pub
	}

	if input != "" {
		return r.decodeFile(input)
	}
	return r.record(ctx)
}

func (r *receiver) decodeFile(path string) error {
	cfg, samples, err := r.app.readRecording(path)
	if err != nil {
		return err
	}
	r.metrics.ObserveRecording(len(samples))
	return r.decode(cfg, samples)
}

func (r *receiver) record(ctx context.Context) error {
	a := r.app
	dev, err := a.openDevice(device.Capture)
	if err != nil {
		return err
	}
	pl := layer.New(dev, a.settings.Modem, a.logger.Named("physical"))
	if err := pl.Open(); err != nil {
		return err
	}
	defer pl.Close()

	var lines <-chan string
	if a.settings.Receiver.Interactive {
		linesCtx, stop := context.WithCancel(ctx)
		defer stop()
		lines = async.Lines(linesCtx, a.in)
	}

	timeout := a.settings.Receiver.TimeoutDuration()
	for {
		a.logger.Info("listening", zap.Duration("timeout", timeout))
		fmt.Fprintf(a.out, "Listening for %s...\n", timeout)

		samples, err := pl.Record(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		lo, hi := layer.Levels(samples)
		a.logger.Info("recording complete", zap.Int("samples", len(samples)), zap.Float32("min", lo), zap.Float32("max", hi))
		r.metrics.ObserveRecording(len(samples))

		err = r.decode(a.settings.Modem, samples)
		if !a.settings.Receiver.Interactive {
			return err
		}

		fmt.Fprint(a.out, "Press Enter to listen again, type 'quit' to exit: ")
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || isQuit(line) {
				return nil
			}
		}
	}
}

func (r *receiver) decode(cfg modem.Config, samples []float32) error {
	a := r.app
	start := time.Now()
	res, err := a.fsk(cfg).Demodulate(samples)
	r.metrics.ObserveDecode(res, err, time.Since(start))
	if err != nil {
		a.logger.Warn("no message decoded", zap.Error(err))
		fmt.Fprintf(a.out, "No message decoded: %v\n", err)
		return err
	}

	for _, w := range res.Warnings {
		a.logger.Warn("decoded with warning", zap.Stringer("warning", w))
	}

	fields := []zap.Field{zap.String("text", res.Text), zap.Int("bits", len(res.Bits))}
	if r.mqtt != nil {
		msg, err := r.mqtt.PublishResult(res)
		if err != nil {
			a.logger.Error("cannot publish message", zap.Error(err))
		} else {
			fields = append(fields, zap.Stringer("id", msg.ID))
		}
	}
	a.logger.Info("message received", fields...)
	fmt.Fprintf(a.out, "Received: %s\n", res.Text)
	return nil
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "q", "quit", "exit":
		return true
	}
	return false
}
