// Copyright 2026 The Perfwire Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/perfwire/perfwire/tracing"
)

// Defaults. Timeouts are per attempt and scale with how much a lost
// request costs: process and stream registrations are irreplaceable,
// log and metric blocks matter, span blocks are the most voluminous
// and cheapest to lose.
const (
	defaultFlushPeriod          = 60 * time.Second
	defaultSpikeFactor          = 1.3
	defaultSpikeInflation       = 1.05
	defaultRunningAverageWindow = 32
	defaultMaxSampledRanges     = 64
	defaultRetryBudget          = 1
	defaultProcessTimeout       = 30 * time.Second
	defaultStreamTimeout        = 30 * time.Second
	defaultBlockTimeout         = 10 * time.Second
	defaultSpanBlockTimeout     = 2 * time.Second
)

// Config configures the HTTP event sink. Start from DefaultConfig and
// override; a zero Config is not usable.
type Config struct {
	// BaseURL is the ingestion service root; the sink POSTs to
	// BaseURL/insert_process, /insert_stream, and /insert_block.
	// Required.
	BaseURL string

	// FlushPeriod bounds how long a partially filled block can sit
	// unreported. Also the retention horizon for sampled spike ranges.
	FlushPeriod time.Duration

	// SpikeFactor is the frame-duration multiplier over the running
	// average at which a frame counts as a spike. SpikeInflation
	// multiplies the factor after each detected spike.
	SpikeFactor    float64
	SpikeInflation float64

	// RunningAverageWindow is the frame count of the duration average.
	RunningAverageWindow int

	// MaxSampledRanges caps retained spike ranges; oldest are dropped.
	MaxSampledRanges int

	// Block capacities in bytes, zero meaning
	// tracing.DefaultBlockCapacity.
	LogBlockCapacity    int
	MetricBlockCapacity int
	ThreadBlockCapacity int

	// RetryBudget is the number of re-sends after a transport failure.
	// Zero disables retry; rejections (non-2xx) are never retried.
	RetryBudget int

	// Compression selects the payload codec.
	Compression Compression

	// Per-attempt request timeouts.
	ProcessTimeout   time.Duration
	StreamTimeout    time.Duration
	BlockTimeout     time.Duration
	SpanBlockTimeout time.Duration
}

// DefaultConfig returns the production defaults with no BaseURL.
func DefaultConfig() Config {
	return Config{
		FlushPeriod:          defaultFlushPeriod,
		SpikeFactor:          defaultSpikeFactor,
		SpikeInflation:       defaultSpikeInflation,
		RunningAverageWindow: defaultRunningAverageWindow,
		MaxSampledRanges:     defaultMaxSampledRanges,
		LogBlockCapacity:     tracing.DefaultBlockCapacity,
		MetricBlockCapacity:  tracing.DefaultBlockCapacity,
		ThreadBlockCapacity:  tracing.DefaultBlockCapacity,
		RetryBudget:          defaultRetryBudget,
		Compression:          CompressionLZ4,
		ProcessTimeout:       defaultProcessTimeout,
		StreamTimeout:        defaultStreamTimeout,
		BlockTimeout:         defaultBlockTimeout,
		SpanBlockTimeout:     defaultSpanBlockTimeout,
	}
}

// withDefaults fills zero fields from DefaultConfig. RetryBudget is
// left alone: zero is a valid setting.
func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.FlushPeriod <= 0 {
		c.FlushPeriod = defaults.FlushPeriod
	}
	if c.SpikeFactor <= 0 {
		c.SpikeFactor = defaults.SpikeFactor
	}
	if c.SpikeInflation <= 0 {
		c.SpikeInflation = defaults.SpikeInflation
	}
	if c.RunningAverageWindow <= 0 {
		c.RunningAverageWindow = defaults.RunningAverageWindow
	}
	if c.MaxSampledRanges <= 0 {
		c.MaxSampledRanges = defaults.MaxSampledRanges
	}
	if c.LogBlockCapacity <= 0 {
		c.LogBlockCapacity = defaults.LogBlockCapacity
	}
	if c.MetricBlockCapacity <= 0 {
		c.MetricBlockCapacity = defaults.MetricBlockCapacity
	}
	if c.ThreadBlockCapacity <= 0 {
		c.ThreadBlockCapacity = defaults.ThreadBlockCapacity
	}
	if c.Compression == "" {
		c.Compression = defaults.Compression
	}
	if c.ProcessTimeout <= 0 {
		c.ProcessTimeout = defaults.ProcessTimeout
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = defaults.StreamTimeout
	}
	if c.BlockTimeout <= 0 {
		c.BlockTimeout = defaults.BlockTimeout
	}
	if c.SpanBlockTimeout <= 0 {
		c.SpanBlockTimeout = defaults.SpanBlockTimeout
	}
	return c
}

// Validate reports the first problem with the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("config: base_url is required")
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("config: invalid base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("config: base_url must be http or https, got %q", parsed.Scheme)
	}
	if c.SpikeFactor < 1 {
		return fmt.Errorf("config: spike_factor must be at least 1, got %g", c.SpikeFactor)
	}
	if c.SpikeInflation < 1 {
		return fmt.Errorf("config: spike_inflation must be at least 1, got %g", c.SpikeInflation)
	}
	if c.RetryBudget < 0 {
		return fmt.Errorf("config: retry_budget must not be negative, got %d", c.RetryBudget)
	}
	if !c.Compression.Valid() {
		return fmt.Errorf("config: unknown compression codec %q", c.Compression)
	}
	return nil
}

// fileConfig is the YAML shape of Config. Durations are written as Go
// duration strings ("60s", "1m30s"); absent fields keep their
// defaults.
type fileConfig struct {
	BaseURL              string  `yaml:"base_url"`
	FlushPeriod          string  `yaml:"flush_period"`
	SpikeFactor          float64 `yaml:"spike_factor"`
	SpikeInflation       float64 `yaml:"spike_inflation"`
	RunningAverageWindow int     `yaml:"running_average_window"`
	MaxSampledRanges     int     `yaml:"max_sampled_ranges"`
	LogBlockCapacity     int     `yaml:"log_block_capacity"`
	MetricBlockCapacity  int     `yaml:"metric_block_capacity"`
	ThreadBlockCapacity  int     `yaml:"thread_block_capacity"`
	RetryBudget          *int    `yaml:"retry_budget"`
	Compression          string  `yaml:"compression"`
	ProcessTimeout       string  `yaml:"process_timeout"`
	StreamTimeout        string  `yaml:"stream_timeout"`
	BlockTimeout         string  `yaml:"block_timeout"`
	SpanBlockTimeout     string  `yaml:"span_block_timeout"`
}

// LoadConfig reads a YAML configuration file, layered over
// DefaultConfig, and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration bytes, layered over
// DefaultConfig, and validates the result.
func ParseConfig(data []byte) (Config, error) {
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.BaseURL = file.BaseURL
	if file.SpikeFactor > 0 {
		cfg.SpikeFactor = file.SpikeFactor
	}
	if file.SpikeInflation > 0 {
		cfg.SpikeInflation = file.SpikeInflation
	}
	if file.RunningAverageWindow > 0 {
		cfg.RunningAverageWindow = file.RunningAverageWindow
	}
	if file.MaxSampledRanges > 0 {
		cfg.MaxSampledRanges = file.MaxSampledRanges
	}
	if file.LogBlockCapacity > 0 {
		cfg.LogBlockCapacity = file.LogBlockCapacity
	}
	if file.MetricBlockCapacity > 0 {
		cfg.MetricBlockCapacity = file.MetricBlockCapacity
	}
	if file.ThreadBlockCapacity > 0 {
		cfg.ThreadBlockCapacity = file.ThreadBlockCapacity
	}
	if file.RetryBudget != nil {
		cfg.RetryBudget = *file.RetryBudget
	}
	if file.Compression != "" {
		cfg.Compression = Compression(file.Compression)
	}

	durations := []struct {
		name  string
		value string
		field *time.Duration
	}{
		{"flush_period", file.FlushPeriod, &cfg.FlushPeriod},
		{"process_timeout", file.ProcessTimeout, &cfg.ProcessTimeout},
		{"stream_timeout", file.StreamTimeout, &cfg.StreamTimeout},
		{"block_timeout", file.BlockTimeout, &cfg.BlockTimeout},
		{"span_block_timeout", file.SpanBlockTimeout, &cfg.SpanBlockTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %s: %w", d.name, err)
		}
		if parsed <= 0 {
			return Config{}, fmt.Errorf("parse config: %s must be positive, got %s", d.name, parsed)
		}
		*d.field = parsed
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
