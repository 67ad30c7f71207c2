package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"soundchat/internal/conf"
	"soundchat/internal/logging"
	"soundchat/pkg/device"
	"soundchat/pkg/modem"
)

// commands carrying this annotation run without loading settings
const skipSettings = "skip-settings"

type app struct {
	v          *viper.Viper
	settings   *conf.Settings
	logger     *zap.Logger
	configPath string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		v:      viper.New(),
		logger: zap.NewNop(),
		in:     in,
		out:    out,
		errOut: errOut,
	}
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "soundchat",
		Short:         "Send text over audible FSK tones",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "config file (default ./soundchat.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.Bool("log-json", false, "log JSON lines instead of console text")
	pf.Int("sample-rate", 0, "sample rate in Hz")
	pf.Float64("bit-duration", 0, "seconds per bit")
	pf.String("device", "", "audio device name or part of it")
	pf.String("backend", "", "audio backend: malgo, asio or loopback")

	a.bind(root, map[string]string{
		"log.level":          "log-level",
		"log.json":           "log-json",
		"modem.sample_rate":  "sample-rate",
		"modem.bit_duration": "bit-duration",
		"audio.device":       "device",
		"audio.backend":      "backend",
	}, true)

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Annotations[skipSettings] != "" {
			return nil
		}
		return a.load()
	}

	root.AddCommand(
		a.sendCommand(),
		a.listenCommand(),
		a.encodeCommand(),
		a.decodeCommand(),
		a.inspectCommand(),
		a.devicesCommand(),
		a.configCommand(),
	)
	return root
}

// bind maps viper keys to flags of cmd.
func (a *app) bind(cmd *cobra.Command, keys map[string]string, persistent bool) {
	flags := cmd.Flags()
	if persistent {
		flags = cmd.PersistentFlags()
	}
	for key, name := range keys {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func (a *app) load() error {
	settings, err := conf.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.NewWithWriter(settings.Log, a.errOut)
	if err != nil {
		return err
	}
	a.settings = settings
	a.logger = logger
	return nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

func (a *app) logConfig() {
	cfg := a.settings.Modem
	a.logger.Info("modem configuration",
		zap.Int("sample_rate", cfg.SampleRate),
		zap.Float64("bit_duration", cfg.BitDuration),
		zap.Float64("freq_0", cfg.Freq0),
		zap.Float64("freq_1", cfg.Freq1),
		zap.Float64("freq_start", cfg.FreqStart),
		zap.Float64("freq_end", cfg.FreqEnd),
	)
}

func (a *app) fsk(cfg modem.Config) *modem.FSK {
	return modem.NewFSK(cfg, a.logger.Named("modem"))
}

func (a *app) openDevice(mode device.Mode) (device.Device, error) {
	audio := a.settings.Audio
	return device.New(device.Options{
		Backend:    audio.Backend,
		Name:       audio.Device,
		SampleRate: a.settings.Modem.SampleRate,
		Mode:       mode,
		InChannel:  audio.InChannel,
		OutChannel: audio.OutChannel,
		Logger:     a.logger.Named("device"),
	})
}
