package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	once   sync.Once
	global *Config
)

// Config is the full runtime configuration of img2pdf.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Convert ConvertConfig `yaml:"convert"`
	Storage StorageConfig `yaml:"storage"`
}

type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
	// File enables a rotated log file next to stderr output.
	File string `yaml:"file"`
}

// ConvertConfig holds the knobs of the conversion core.
type ConvertConfig struct {
	// Size used for SVG documents without intrinsic width/height.
	SvgFallbackWidth  int `yaml:"svgFallbackWidth"`
	SvgFallbackHeight int `yaml:"svgFallbackHeight"`
	// MaxPixels is the largest width*height any input may decode to.
	MaxPixels int64 `yaml:"maxPixels"`
}

type StorageConfig struct {
	// Type is one of "local", "minio" or "s3".
	Type      string      `yaml:"type"`
	OutputDir string      `yaml:"outputDir"`
	Minio     MinioConfig `yaml:"minio"`
	S3        S3Config    `yaml:"s3"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:    "info",
			Encoding: "console",
		},
		Convert: ConvertConfig{
			SvgFallbackWidth:  800,
			SvgFallbackHeight: 600,
			MaxPixels:         16384 * 16384,
		},
		Storage: StorageConfig{
			Type:      "local",
			OutputDir: ".",
		},
	}
}

// Load builds a Config from defaults, the optional YAML file at path,
// a .env file in the working directory and finally the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: failed to load .env file: %v", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetConfig loads the configuration once, using IMG2PDF_CONFIG as the
// file path. Errors fall back to defaults.
func GetConfig() *Config {
	once.Do(func() {
		cfg, err := Load(os.Getenv("IMG2PDF_CONFIG"))
		if err != nil {
			log.Printf("Warning: %v, falling back to defaults", err)
			cfg = Default()
		}
		global = cfg
	})
	return global
}

// Validate checks the values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Convert.SvgFallbackWidth <= 0 || c.Convert.SvgFallbackHeight <= 0 {
		return fmt.Errorf("invalid svg fallback size %dx%d", c.Convert.SvgFallbackWidth, c.Convert.SvgFallbackHeight)
	}
	if c.Convert.MaxPixels <= 0 {
		return fmt.Errorf("invalid max pixels %d", c.Convert.MaxPixels)
	}
	if int64(c.Convert.SvgFallbackWidth)*int64(c.Convert.SvgFallbackHeight) > c.Convert.MaxPixels {
		return fmt.Errorf("svg fallback size %dx%d exceeds max pixels %d",
			c.Convert.SvgFallbackWidth, c.Convert.SvgFallbackHeight, c.Convert.MaxPixels)
	}
	switch c.Storage.Type {
	case "local", "minio", "s3":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.Log.Level, "IMG2PDF_LOG_LEVEL")
	setString(&c.Log.Encoding, "IMG2PDF_LOG_ENCODING")
	setString(&c.Log.File, "IMG2PDF_LOG_FILE")
	setInt(&c.Convert.SvgFallbackWidth, "IMG2PDF_SVG_FALLBACK_WIDTH")
	setInt(&c.Convert.SvgFallbackHeight, "IMG2PDF_SVG_FALLBACK_HEIGHT")
	setInt64(&c.Convert.MaxPixels, "IMG2PDF_MAX_PIXELS")
	setString(&c.Storage.Type, "IMG2PDF_STORAGE")
	setString(&c.Storage.OutputDir, "IMG2PDF_OUTPUT_DIR")
	c.Storage.Minio.applyEnv()
	c.Storage.S3.applyEnv()
}

func setString(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			*dst = intVal
		}
	}
}

func setInt64(dst *int64, key string) {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			*dst = intVal
		}
	}
}

func setBool(dst *bool, key string) {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			*dst = b
		}
	}
}
