// Copyright (c) 2018 Mortal
// released under the MIT license

package aioirc

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Duration wraps time.Duration so config files can say "5m" or "10s".
type Duration time.Duration

func (d Duration) Value() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Config is constructed once at startup and passed by reference into the
// engine and each plugin. Nothing mutates it afterwards.
type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		TLS  bool   `yaml:"tls"`
	} `yaml:"server"`

	Auth struct {
		Username string `yaml:"username"`
		Token    string `yaml:"token"`
	} `yaml:"auth"`

	// Caps is the capability set requested during registration.
	Caps string `yaml:"caps"`

	// Channels to join once registered, with or without the # prefix.
	Channels []string `yaml:"channels"`

	// Plugins is the ordered activation list for optional plugins.
	// Required plugins are always active and need not be listed.
	Plugins []string `yaml:"plugins"`

	Keepalive struct {
		Interval Duration `yaml:"interval"`
		Grace    Duration `yaml:"grace"`
	} `yaml:"keepalive"`

	Reconnect struct {
		Base Duration `yaml:"base"`
		Max  Duration `yaml:"max"`
	} `yaml:"reconnect"`

	RateLimit struct {
		Messages int      `yaml:"messages"`
		Window   Duration `yaml:"window"`
	} `yaml:"ratelimit"`

	Queue struct {
		Size int `yaml:"size"`
	} `yaml:"queue"`

	LogLevel string `yaml:"log-level"`

	// Plugin-specific sections. Plugins read these through their Config
	// capability; unknown plugins' sections are simply ignored.
	Highlight struct {
		Pattern string `yaml:"pattern"`
	} `yaml:"highlight"`

	Subresponder struct {
		Messages []string `yaml:"messages"`
	} `yaml:"subresponder"`

	Canned struct {
		Rules map[string]string `yaml:"rules"`
	} `yaml:"canned"`

	Chatlog struct {
		Path string `yaml:"path"`
	} `yaml:"chatlog"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// validate fills defaults and rejects configurations that cannot work.
// An empty username falls back to Twitch's anonymous justinfan login,
// which can read but not send.
func (config *Config) validate() error {
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
		config.Server.Port = DefaultPort
		config.Server.TLS = true
	}
	if config.Server.Port == 0 {
		config.Server.Port = DefaultPort
	}
	if config.Caps == "" {
		config.Caps = DefaultCaps
	}

	if config.Auth.Username == "" {
		config.Auth.Username = AnonymousNickPrefix + "3141592653"
		config.Auth.Token = AnonymousPassword
	} else if config.Auth.Token == "" {
		return errors.New("auth.token is required when auth.username is set")
	}
	config.Auth.Username = strings.ToLower(config.Auth.Username)

	for i, channel := range config.Channels {
		channel = strings.ToLower(strings.TrimSpace(channel))
		if channel == "" {
			return fmt.Errorf("channels[%d] is empty", i)
		}
		if !strings.HasPrefix(channel, "#") {
			channel = "#" + channel
		}
		config.Channels[i] = channel
	}

	if config.Keepalive.Interval == 0 {
		config.Keepalive.Interval = Duration(5 * time.Minute)
	}
	if config.Keepalive.Grace == 0 {
		config.Keepalive.Grace = Duration(10 * time.Second)
	}
	if config.Reconnect.Base == 0 {
		config.Reconnect.Base = Duration(2 * time.Second)
	}
	if config.Reconnect.Max == 0 {
		config.Reconnect.Max = Duration(time.Minute)
	}
	if config.RateLimit.Messages == 0 {
		config.RateLimit.Messages = 20
	}
	if config.RateLimit.Window == 0 {
		config.RateLimit.Window = Duration(30 * time.Second)
	}
	if config.Queue.Size == 0 {
		config.Queue.Size = 64
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	return nil
}

// SlogLevel maps the configured log level onto slog's levels, defaulting
// to info.
func (config *Config) SlogLevel() slog.Level {
	switch strings.ToLower(config.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
