// Package config loads the novelvoice configuration: defaults, an optional
// novelvoice.yaml, and NOVELVOICE_* environment overrides, in that order of
// precedence (lowest first).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Oracle   OracleConfig   `mapstructure:"oracle"`
	TTS      TTSConfig      `mapstructure:"tts"`
	Packager PackagerConfig `mapstructure:"packager"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Voices   VoicesConfig   `mapstructure:"voices"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// WorkerPoolSize caps concurrent goroutines across all tasks.
	WorkerPoolSize int `mapstructure:"worker_pool_size"`
}

// PipelineConfig carries the generation tuning parameters. The staircase
// targets make the first audio available quickly: a short first segment, a
// medium second one, full-size afterwards.
type PipelineConfig struct {
	FirstSegmentTarget  int           `mapstructure:"first_segment_target"`
	SecondSegmentTarget int           `mapstructure:"second_segment_target"`
	SegmentTarget       int           `mapstructure:"segment_target"`
	MinTailLength       int           `mapstructure:"min_tail_length"`
	QueueCapacity       int           `mapstructure:"queue_capacity"`
	QueuePushTimeout    time.Duration `mapstructure:"queue_push_timeout"`
	AudioDir            string        `mapstructure:"audio_dir"`
	ScriptCacheDir      string        `mapstructure:"script_cache_dir"`
}

type OracleConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
	Stream     bool          `mapstructure:"stream"`
}

type TTSConfig struct {
	APIURL     string        `mapstructure:"api_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	Backoff    time.Duration `mapstructure:"backoff"`
}

type PackagerConfig struct {
	HLSDir string `mapstructure:"hls_dir"`
	// PollInterval is the safety-net tick; commit notifications from the
	// sink normally wake the stage earlier.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// MinDelta is the smallest unconverted byte range worth transcoding
	// before the sink is finalized.
	MinDelta int64 `mapstructure:"min_delta"`
	// FirstSegmentDuration applies to the first conversion so playback can
	// start early; SegmentDuration applies afterwards.
	FirstSegmentDuration float64 `mapstructure:"first_segment_duration"`
	SegmentDuration      float64 `mapstructure:"segment_duration"`
	FailureBudget        int     `mapstructure:"failure_budget"`
}

type StorageConfig struct {
	Region string `mapstructure:"region"`
	// ArchiveTable enables the dynamo task archive when non-empty.
	ArchiveTable string `mapstructure:"archive_table"`
	// PublishBucket enables the s3 artifact publisher when non-empty.
	PublishBucket string `mapstructure:"publish_bucket"`
}

// VoicesConfig maps speaker attributes to concrete voice ids.
type VoicesConfig struct {
	// Table is gender -> personality -> voice id.
	Table map[string]map[string]string `mapstructure:"table"`
	// Narrator is the fallback and non-dialogue voice.
	Narrator string `mapstructure:"narrator"`
	// NarratorMinRate clamps how slow the oracle may make the narrator.
	NarratorMinRate string `mapstructure:"narrator_min_rate"`
	DefaultRate     string `mapstructure:"default_rate"`
	DefaultPitch    string `mapstructure:"default_pitch"`
	DefaultVolume   string `mapstructure:"default_volume"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.worker_pool_size", 120)

	v.SetDefault("pipeline.first_segment_target", 200)
	v.SetDefault("pipeline.second_segment_target", 400)
	v.SetDefault("pipeline.segment_target", 1500)
	v.SetDefault("pipeline.min_tail_length", 100)
	v.SetDefault("pipeline.queue_capacity", 10)
	v.SetDefault("pipeline.queue_push_timeout", 3*time.Minute)
	v.SetDefault("pipeline.audio_dir", "audio")
	v.SetDefault("pipeline.script_cache_dir", "audio/script")

	v.SetDefault("oracle.api_url", "https://api.openai.com/v1")
	v.SetDefault("oracle.model", "gpt-3.5-turbo")
	v.SetDefault("oracle.timeout", 5*time.Minute)
	v.SetDefault("oracle.max_retries", 3)
	v.SetDefault("oracle.backoff", 2*time.Second)
	v.SetDefault("oracle.stream", false)

	v.SetDefault("tts.timeout", time.Minute)
	v.SetDefault("tts.max_retries", 3)
	v.SetDefault("tts.backoff", 2*time.Second)

	v.SetDefault("packager.hls_dir", "hls_cache")
	v.SetDefault("packager.poll_interval", time.Second)
	v.SetDefault("packager.min_delta", int64(64*1024))
	v.SetDefault("packager.first_segment_duration", 6.0)
	v.SetDefault("packager.segment_duration", 60.0)
	v.SetDefault("packager.failure_budget", 5)

	v.SetDefault("storage.region", "us-east-1")

	v.SetDefault("voices.narrator", "zh-CN-YunjianNeural")
	v.SetDefault("voices.narrator_min_rate", "+0%")
	v.SetDefault("voices.default_rate", "+0%")
	v.SetDefault("voices.default_pitch", "+0Hz")
	v.SetDefault("voices.default_volume", "+0%")
}

// Load reads the configuration. path may name a config file; empty means
// defaults plus environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NOVELVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Pipeline.SegmentTarget <= 0 {
		return fmt.Errorf("pipeline.segment_target must be positive")
	}
	if c.Pipeline.QueueCapacity <= 0 {
		return fmt.Errorf("pipeline.queue_capacity must be positive")
	}
	if c.Packager.SegmentDuration <= 0 {
		return fmt.Errorf("packager.segment_duration must be positive")
	}
	if c.Packager.FailureBudget <= 0 {
		return fmt.Errorf("packager.failure_budget must be positive")
	}
	if c.Oracle.MaxRetries <= 0 || c.TTS.MaxRetries <= 0 {
		return fmt.Errorf("retry budgets must be positive")
	}
	return nil
}
