// Package config loads lazyjournal settings from a YAML file with
// LAZYJOURNAL_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment overrides. Nested keys use a double
// underscore: LAZYJOURNAL_LOG__LEVEL -> log.level.
const EnvPrefix = "LAZYJOURNAL_"

type Config struct {
	DBPath     string       `koanf:"db_path" yaml:"db_path"`
	WebEnabled bool         `koanf:"web_enabled" yaml:"web_enabled"`
	WebPort    int          `koanf:"web_port" yaml:"web_port"`
	Log        LogConfig    `koanf:"log" yaml:"log"`
	Speech     SpeechConfig `koanf:"speech" yaml:"speech"`
	OCR        OCRConfig    `koanf:"ocr" yaml:"ocr"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
	// File defaults to lazyjournal.log next to the database.
	File string `koanf:"file" yaml:"file,omitempty"`
}

// SpeechConfig names the external recognizer. "{locale}" in Args is
// replaced with Locale.
type SpeechConfig struct {
	Command string   `koanf:"command" yaml:"command,omitempty"`
	Args    []string `koanf:"args" yaml:"args,omitempty"`
	Locale  string   `koanf:"locale" yaml:"locale"`
}

type OCRConfig struct {
	Command   string `koanf:"command" yaml:"command"`
	Languages string `koanf:"languages" yaml:"languages"`
}

func Default() Config {
	return Config{
		WebPort: 8080,
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Speech: SpeechConfig{Locale: "ko-KR"},
		OCR: OCRConfig{
			Command:   "tesseract",
			Languages: "kor+eng",
		},
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazyjournal", "config.yaml"), nil
}

func DefaultDBPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lazyjournal", "lazyjournal.db"), nil
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads path (a missing file is fine) and applies environment
// overrides on top. Unset keys keep their defaults.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.WebPort <= 0 || cfg.WebPort > 65535 {
		return Config{}, fmt.Errorf("invalid web_port %d", cfg.WebPort)
	}
	return cfg, nil
}

func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
