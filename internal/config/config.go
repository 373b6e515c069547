package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings. Every field can be set through the
// environment; LIVESUB_CONFIG may point at a YAML file whose values take
// precedence over the environment.
type Config struct {
	Addr       string `yaml:"addr"`
	ModelPath  string `yaml:"model_path"`
	FFmpegPath string `yaml:"ffmpeg_path"`

	WorkDir    string `yaml:"work_dir"`
	OutDir     string `yaml:"out_dir"`
	HLSDir     string `yaml:"hls_dir"`
	PreviewDir string `yaml:"preview_dir"`

	SegmentSeconds        int `yaml:"segment_seconds"`
	CaptureTimeoutSeconds int `yaml:"capture_timeout_seconds"`
	PreviewSeconds        int `yaml:"preview_seconds"`
	HLSTimeSeconds        int `yaml:"hls_time_seconds"`
	HLSListSize           int `yaml:"hls_list_size"`

	DefaultTargetLang string `yaml:"default_target_lang"`

	TranslationBaseURL    string `yaml:"translation_base_url"`
	TranslationEnabled    bool   `yaml:"translation_enabled"`
	TranslationTimeoutSec int    `yaml:"translation_timeout_seconds"`

	KafkaEnabled bool     `yaml:"kafka_enabled"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "0", "false", "no", "off", "False", "FALSE":
			return false
		default:
			return true
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Load builds the configuration from the environment, overlays the optional
// YAML file named by LIVESUB_CONFIG, and validates the result.
func Load() (Config, error) {
	cfg := fromEnv()
	if path := os.Getenv("LIVESUB_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return cfg, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func fromEnv() Config {
	addr := getenv("LIVESUB_ADDR", ":8000")
	// PORT is the convention used by container platforms.
	if p := os.Getenv("PORT"); p != "" {
		addr = ":" + p
	}
	var brokers []string
	if v := os.Getenv("LIVESUB_KAFKA_BROKERS"); v != "" {
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}
	return Config{
		Addr:                  addr,
		ModelPath:             getenv("LIVESUB_MODEL_PATH", "./models/ggml-tiny.bin"),
		FFmpegPath:            getenv("LIVESUB_FFMPEG_PATH", "ffmpeg"),
		WorkDir:               getenv("LIVESUB_WORK_DIR", "asr_work"),
		OutDir:                getenv("LIVESUB_OUT_DIR", "out"),
		HLSDir:                getenv("LIVESUB_HLS_DIR", "hls_output"),
		PreviewDir:            getenv("LIVESUB_PREVIEW_DIR", "preview"),
		SegmentSeconds:        getenvInt("LIVESUB_SEGMENT_SECONDS", 5),
		CaptureTimeoutSeconds: getenvInt("LIVESUB_CAPTURE_TIMEOUT", 15),
		PreviewSeconds:        getenvInt("LIVESUB_PREVIEW_SECONDS", 15),
		HLSTimeSeconds:        getenvInt("LIVESUB_HLS_TIME", 4),
		HLSListSize:           getenvInt("LIVESUB_HLS_LIST_SIZE", 5),
		DefaultTargetLang:     getenv("LIVESUB_DEFAULT_TARGET_LANG", "id"),
		TranslationBaseURL:    getenv("LIVESUB_TRANSLATION_BASE_URL", "https://libretranslate.com"),
		TranslationEnabled:    getenvBool("LIVESUB_TRANSLATIONS", true),
		TranslationTimeoutSec: getenvInt("LIVESUB_TRANSLATION_TIMEOUT", 8),
		KafkaEnabled:          getenvBool("LIVESUB_KAFKA_ENABLED", false),
		KafkaBrokers:          brokers,
		KafkaTopic:            getenv("LIVESUB_KAFKA_TOPIC", "livesub.cues"),
	}
}

// mergeFile overlays values from a YAML file. Fields absent from the file
// keep their current values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate fills defaults for zero values and rejects settings the pipeline
// cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = "ffmpeg"
	}
	if c.SegmentSeconds <= 0 {
		c.SegmentSeconds = 5
	}
	if c.CaptureTimeoutSeconds <= 0 {
		c.CaptureTimeoutSeconds = 15
	}
	if c.PreviewSeconds <= 0 {
		c.PreviewSeconds = 15
	}
	if c.HLSTimeSeconds <= 0 {
		c.HLSTimeSeconds = 4
	}
	if c.HLSListSize <= 0 {
		c.HLSListSize = 5
	}
	if c.WorkDir == "" || c.OutDir == "" || c.HLSDir == "" || c.PreviewDir == "" {
		return fmt.Errorf("work_dir, out_dir, hls_dir and preview_dir are required")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("kafka_enabled requires at least one broker")
	}
	return nil
}

// EnsureDirs creates all working directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.WorkDir, c.OutDir, c.HLSDir, c.PreviewDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (c *Config) SegmentDuration() time.Duration {
	return time.Duration(c.SegmentSeconds) * time.Second
}

func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.CaptureTimeoutSeconds) * time.Second
}

func (c *Config) PreviewDuration() time.Duration {
	return time.Duration(c.PreviewSeconds) * time.Second
}
