package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration, loaded from YAML.
type Config struct {
	Server   ServerConfig    `yaml:"server"`
	Channels []ChannelConfig `yaml:"channels,omitempty"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
	Port   uint16 `yaml:"port"`

	// ConnBufferSize is the rtmp connection read/write buffer in bytes.
	ConnBufferSize int32 `yaml:"conn_buffer_size,omitempty"`

	// AutoCreate accepts publishes to channels that were never declared.
	AutoCreate bool `yaml:"auto_create,omitempty"`
}

// ChannelConfig pre-declares a channel so publishers can use it when
// auto_create is off.
type ChannelConfig struct {
	App  string `yaml:"app"`
	Name string `yaml:"name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 1935
	}
	if c.Server.ConnBufferSize == 0 {
		c.Server.ConnBufferSize = 4096
	}
}

func (c *Config) Validate() error {
	for i, ch := range c.Channels {
		if ch.App == "" {
			return fmt.Errorf("channels[%d]: app must not be empty", i)
		}
		if ch.Name == "" {
			return fmt.Errorf("channels[%d]: name must not be empty", i)
		}
	}
	return nil
}
