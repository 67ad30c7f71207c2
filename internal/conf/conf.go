// Package conf loads soundchat settings from defaults, a YAML file, the
// environment and command line flags, in increasing order of precedence.
package conf

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"soundchat/internal/errors"
	"soundchat/internal/logging"
	"soundchat/pkg/modem"
)

const (
	EnvPrefix  = "SOUNDCHAT"
	ConfigName = "soundchat"
)

type AudioSettings struct {
	Backend    string `yaml:"backend" mapstructure:"backend"` // malgo, asio or loopback
	Device     string `yaml:"device" mapstructure:"device"`   // empty for the system default
	InChannel  int    `yaml:"in_channel" mapstructure:"in_channel"`
	OutChannel int    `yaml:"out_channel" mapstructure:"out_channel"`
}

type SenderSettings struct {
	Message   string  `yaml:"message" mapstructure:"message"`
	Countdown float64 `yaml:"countdown" mapstructure:"countdown"` // seconds
}

type ReceiverSettings struct {
	Timeout     float64 `yaml:"timeout" mapstructure:"timeout"` // seconds
	Interactive bool    `yaml:"interactive" mapstructure:"interactive"`
}

type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Broker   string `yaml:"broker" mapstructure:"broker"`
	Topic    string `yaml:"topic" mapstructure:"topic"`
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	QoS      byte   `yaml:"qos" mapstructure:"qos"`
	Retain   bool   `yaml:"retain" mapstructure:"retain"`
}

type MetricsSettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

type Settings struct {
	Modem    modem.Config     `yaml:"modem" mapstructure:"modem"`
	Audio    AudioSettings    `yaml:"audio" mapstructure:"audio"`
	Sender   SenderSettings   `yaml:"sender" mapstructure:"sender"`
	Receiver ReceiverSettings `yaml:"receiver" mapstructure:"receiver"`
	Log      logging.Config   `yaml:"log" mapstructure:"log"`
	MQTT     MQTTSettings     `yaml:"mqtt" mapstructure:"mqtt"`
	Metrics  MetricsSettings  `yaml:"metrics" mapstructure:"metrics"`
}

func Default() *Settings {
	return &Settings{
		Modem:    modem.DefaultConfig(),
		Audio:    AudioSettings{Backend: "malgo"},
		Sender:   SenderSettings{Message: "HELLO", Countdown: 3},
		Receiver: ReceiverSettings{Timeout: 30, Interactive: true},
		Log:      logging.Config{Level: "info"},
		MQTT: MQTTSettings{
			Broker: "tcp://localhost:1883",
			Topic:  "soundchat/messages",
			QoS:    1,
		},
		Metrics: MetricsSettings{Listen: ":9090"},
	}
}

func (r ReceiverSettings) TimeoutDuration() time.Duration {
	return seconds(r.Timeout)
}

func (s SenderSettings) CountdownDuration() time.Duration {
	return seconds(s.Countdown)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// SetDefaults registers every key so that environment variables and flags
// can override keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("modem.sample_rate", d.Modem.SampleRate)
	v.SetDefault("modem.bit_duration", d.Modem.BitDuration)
	v.SetDefault("modem.freq_0", d.Modem.Freq0)
	v.SetDefault("modem.freq_1", d.Modem.Freq1)
	v.SetDefault("modem.freq_start", d.Modem.FreqStart)
	v.SetDefault("modem.freq_end", d.Modem.FreqEnd)
	v.SetDefault("modem.freq_tolerance", d.Modem.FreqTolerance)
	v.SetDefault("modem.min_amplitude", d.Modem.MinAmplitude)

	v.SetDefault("audio.backend", d.Audio.Backend)
	v.SetDefault("audio.device", d.Audio.Device)
	v.SetDefault("audio.in_channel", d.Audio.InChannel)
	v.SetDefault("audio.out_channel", d.Audio.OutChannel)

	v.SetDefault("sender.message", d.Sender.Message)
	v.SetDefault("sender.countdown", d.Sender.Countdown)

	v.SetDefault("receiver.timeout", d.Receiver.Timeout)
	v.SetDefault("receiver.interactive", d.Receiver.Interactive)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.json", d.Log.JSON)
	v.SetDefault("log.file", d.Log.File)

	v.SetDefault("mqtt.enabled", d.MQTT.Enabled)
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.topic", d.MQTT.Topic)
	v.SetDefault("mqtt.client_id", d.MQTT.ClientID)
	v.SetDefault("mqtt.username", d.MQTT.Username)
	v.SetDefault("mqtt.password", d.MQTT.Password)
	v.SetDefault("mqtt.qos", d.MQTT.QoS)
	v.SetDefault("mqtt.retain", d.MQTT.Retain)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.listen", d.Metrics.Listen)
}

// Load reads settings into v. An explicit path must exist; without one the
// working directory and the user config directory are searched and a
// missing file is not an error.
func Load(v *viper.Viper, path string) (*Settings, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("path", path).
				Build()
		}
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		for _, dir := range searchPaths() {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.New(err).
					Component("conf").
					Category(errors.CategoryConfiguration).
					Build()
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryFileParsing).
			Build()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func searchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, ConfigName))
	}
	return paths
}

func (s *Settings) Validate() error {
	invalid := func(key string, value any, reason string) error {
		return errors.Newf("%s %s", key, reason).
			Component("conf").
			Category(errors.CategoryValidation).
			Context(key, value).
			Build()
	}

	if err := s.Modem.Validate(); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Context("section", "modem").
			Build()
	}
	if !(s.Receiver.Timeout > 0) {
		return invalid("receiver.timeout", s.Receiver.Timeout, "must be positive")
	}
	if !(s.Sender.Countdown >= 0) {
		return invalid("sender.countdown", s.Sender.Countdown, "must not be negative")
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return invalid("log.level", s.Log.Level, "is not one of debug, info, warn, error")
	}
	if s.MQTT.Enabled && s.MQTT.Broker == "" {
		return invalid("mqtt.broker", s.MQTT.Broker, "is required when mqtt is enabled")
	}
	if s.MQTT.QoS > 2 {
		return invalid("mqtt.qos", s.MQTT.QoS, "must be 0, 1 or 2")
	}
	if s.Metrics.Enabled && s.Metrics.Listen == "" {
		return invalid("metrics.listen", s.Metrics.Listen, "is required when metrics are enabled")
	}
	return nil
}

const header = "# soundchat configuration\n# Both ends of a transmission must use the same modem section.\n"

// WriteDefault writes the default settings as YAML. An existing file is
// only replaced when overwrite is set.
func WriteDefault(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.Newf("%s already exists", path).
				Component("conf").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Context("path", path).Build()
		}
	}
	if err := os.WriteFile(path, append([]byte(header), data...), 0o644); err != nil {
		return errors.New(err).Component("conf").Category(errors.CategoryFileIO).Context("path", path).Build()
	}
	return nil
}
