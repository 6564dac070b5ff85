// Package config loads service settings from an optional YAML file, then lets
// environment variables override individual fields.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	EngineLocal        = "local"
	EngineUnstructured = "unstructured"
)

type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port" validate:"min=1,max=65535"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" validate:"min=1"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

// StorageConfig points at the parent of the per-process temp directory.
// Empty means os.TempDir().
type StorageConfig struct {
	TempRoot string `yaml:"temp_root"`
}

// EngineConfig selects the extraction engine. Workers caps concurrent engine
// calls; zero picks a default from the CPU count.
type EngineConfig struct {
	Kind    string `yaml:"kind" validate:"oneof=local unstructured"`
	Workers int    `yaml:"workers" validate:"min=0"`
}

type UnstructuredConfig struct {
	URL      string        `yaml:"url" validate:"required,url"`
	APIKey   string        `yaml:"api_key"`
	Strategy string        `yaml:"strategy" validate:"omitempty,oneof=auto fast hi_res ocr_only"`
	Timeout  time.Duration `yaml:"timeout" validate:"min=1s"`
}

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Logging      LoggingConfig      `yaml:"logging"`
	Storage      StorageConfig      `yaml:"storage"`
	Engine       EngineConfig       `yaml:"engine"`
	Unstructured UnstructuredConfig `yaml:"unstructured"`
}

// Addr is the listen address for http.Server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func Default() *Config {
	return &Config{
		Server:       ServerConfig{Host: "0.0.0.0", Port: 8081, MaxUploadBytes: 64 << 20},
		Logging:      LoggingConfig{Level: "info", Format: "console"},
		Engine:       EngineConfig{Kind: EngineLocal},
		Unstructured: UnstructuredConfig{URL: "http://localhost:8000", Timeout: 5 * time.Minute},
	}
}

// Load reads path (when non-empty), applies environment overrides and
// validates the result. A missing file is an error only if path was given
// explicitly; callers pass "" to skip the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyEnv(c *Config) error {
	setString(&c.Server.Host, "HOST")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Storage.TempRoot, "TEMP_ROOT")
	setString(&c.Engine.Kind, "ENGINE")
	setString(&c.Unstructured.URL, "UNSTRUCTURED_URL")
	setString(&c.Unstructured.APIKey, "UNSTRUCTURED_API_KEY")
	setString(&c.Unstructured.Strategy, "UNSTRUCTURED_STRATEGY")

	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Engine.Kind = strings.ToLower(c.Engine.Kind)

	if v := os.Getenv("PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = n
	}
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.Server.MaxUploadBytes = n
	}
	if v := os.Getenv("ENGINE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ENGINE_WORKERS: %w", err)
		}
		c.Engine.Workers = n
	}
	if v := os.Getenv("UNSTRUCTURED_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("UNSTRUCTURED_TIMEOUT: %w", err)
		}
		c.Unstructured.Timeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
