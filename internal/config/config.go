// Package config loads voicebox settings from defaults, an optional voicebox.yaml, VOICEBOX_*
// environment variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"voicebox/internal/audio"
)

const (
	EnvPrefix = "VOICEBOX"
	FileName  = "voicebox"
)

type Config struct {
	Log    LogConfig    `mapstructure:"log" yaml:"log"`
	Audio  AudioConfig  `mapstructure:"audio" yaml:"audio"`
	Record RecordConfig `mapstructure:"record" yaml:"record"`
	Play   PlayConfig   `mapstructure:"play" yaml:"play"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

type AudioConfig struct {
	// Backend selects the malgo backend: auto, null, alsa, pulse, coreaudio or wasapi.
	Backend string `mapstructure:"backend" yaml:"backend"`
}

type RecordConfig struct {
	SampleRate int    `mapstructure:"samplerate" yaml:"samplerate"`
	Quantum    int    `mapstructure:"quantum" yaml:"quantum"`
	Endianness string `mapstructure:"endianness" yaml:"endianness"`
}

// PlayConfig is the format assumed for raw files when no flags override it.
type PlayConfig struct {
	Channels   int    `mapstructure:"channels" yaml:"channels"`
	SampleRate int    `mapstructure:"samplerate" yaml:"samplerate"`
	Bits       int    `mapstructure:"bits" yaml:"bits"`
	Layout     string `mapstructure:"layout" yaml:"layout"`
	Endianness string `mapstructure:"endianness" yaml:"endianness"`
}

type ServerConfig struct {
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Metrics bool   `mapstructure:"metrics" yaml:"metrics"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("audio.backend", "auto")

	v.SetDefault("record.samplerate", 44100)
	v.SetDefault("record.quantum", 44100)
	v.SetDefault("record.endianness", "native")

	v.SetDefault("play.channels", 2)
	v.SetDefault("play.samplerate", 44100)
	v.SetDefault("play.bits", 16)
	v.SetDefault("play.layout", "stereo")
	v.SetDefault("play.endianness", "native")

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.metrics", true)
}

// Load reads the configuration into v. An empty file searches the working directory and
// $HOME/.config/voicebox; a missing file is not an error. Load does not log; callers report
// v.ConfigFileUsed() once their logger is configured.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "voicebox"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	return errors.Join(
		c.Log.Validate(),
		c.Audio.Validate(),
		c.Record.Validate(),
		c.Play.Validate(),
		c.Server.Validate(),
	)
}

func (c LogConfig) Validate() error {
	if _, err := logrus.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func (c AudioConfig) Validate() error {
	switch strings.ToLower(c.Backend) {
	case "auto", "null", "alsa", "pulse", "coreaudio", "wasapi":
		return nil
	}
	return fmt.Errorf("audio.backend: unknown backend %q", c.Backend)
}

func (c RecordConfig) Validate() error {
	var errs []error
	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("record.samplerate must be positive, got %d", c.SampleRate))
	}
	if c.Quantum <= 0 || c.Quantum%2 != 0 {
		errs = append(errs, fmt.Errorf("record.quantum must be a positive multiple of 2, got %d", c.Quantum))
	}
	if _, err := audio.ParseEndianness(c.Endianness); err != nil {
		errs = append(errs, fmt.Errorf("record.endianness: %w", err))
	}
	return errors.Join(errs...)
}

func (c RecordConfig) ByteOrder() audio.Endianness {
	e, err := audio.ParseEndianness(c.Endianness)
	if err != nil {
		return audio.NativeEndianness()
	}
	return e
}

func (c PlayConfig) Validate() error {
	_, err := c.Format()
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

// Format converts the play section into a stream format.
func (c PlayConfig) Format() (audio.Format, error) {
	layout, err := audio.ParseLayout(c.Layout)
	if err != nil {
		return audio.Format{}, err
	}
	endianness, err := audio.ParseEndianness(c.Endianness)
	if err != nil {
		return audio.Format{}, err
	}
	f := audio.Format{
		Channels:      c.Channels,
		SampleRate:    c.SampleRate,
		BitsPerSample: c.Bits,
		Layout:        layout,
		Endianness:    endianness,
	}
	return f, f.Validate()
}

func (c ServerConfig) Validate() error {
	if c.Listen == "" {
		return errors.New("server.listen must not be empty")
	}
	return nil
}

// YAML renders the effective configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
