package config

import (
	"fmt"
	"os"
	"time"

	"shorts-doc-pipeline/types"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM       LLMConfig              `yaml:"llm"`
	Planner   PlannerConfig          `yaml:"planner"`
	Assembler AssemblerConfig        `yaml:"assembler"`
	Synthesis types.SynthesisProfile `yaml:"synthesis"`
	Reference ReferenceConfig        `yaml:"reference"`
	Build     BuildConfig            `yaml:"build"`
	Server    ServerConfig           `yaml:"server"`
	Queue     QueueConfig            `yaml:"queue"`
	Log       LogConfig              `yaml:"log"`
	Paths     PathsConfig            `yaml:"paths"`
}

type LLMConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

type PlannerConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type AssemblerConfig struct {
	Mode        string  `yaml:"mode"` // generate | template
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

type ReferenceConfig struct {
	Source string `yaml:"source"` // embedded | file | gcs
	Path   string `yaml:"path"`
	Bucket string `yaml:"bucket"`
	Object string `yaml:"object"`
}

type BuildConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	Concurrency int `yaml:"concurrency"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type QueueConfig struct {
	URLEnv       string `yaml:"url_env"`
	CommandQueue string `yaml:"command_queue"`
	ResultQueue  string `yaml:"result_queue"`
	Prefetch     int    `yaml:"prefetch"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

// PathsConfig holds where run artifacts go. Output gets one dir per run;
// Logs gets one summary file per finished build, empty to disable.
type PathsConfig struct {
	Output string `yaml:"output"`
	Logs   string `yaml:"logs"`
}

// Default returns the configuration used when config.yaml leaves a field out
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			BaseURL:    "https://api.groq.com/openai/v1",
			APIKeyEnv:  "GROQ_API_KEY",
			TimeoutSec: 90,
		},
		Planner: PlannerConfig{
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.4,
			MaxTokens:   4096,
		},
		Assembler: AssemblerConfig{
			Mode:        "generate",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.2,
			MaxTokens:   8192,
		},
		Synthesis: types.SynthesisProfile{
			Engine:          "elevenlabs",
			ModelID:         "eleven_multilingual_v2",
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
		Reference: ReferenceConfig{Source: "embedded"},
		Build: BuildConfig{
			MaxAttempts: 2,
			Concurrency: 4,
		},
		Server: ServerConfig{Addr: ":8080"},
		Queue: QueueConfig{
			URLEnv:       "RABBITMQ_URL",
			CommandQueue: "build.cmd",
			ResultQueue:  "build.result",
			Prefetch:     1,
		},
		Log:   LogConfig{Level: "info", Format: "console"},
		Paths: PathsConfig{Output: "output", Logs: "logs"},
	}
}

// Load reads config.yaml on top of Default and validates the result
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the fields the pipeline cannot run without
func (c *Config) Validate() error {
	switch c.Assembler.Mode {
	case "generate", "template":
	default:
		return fmt.Errorf("assembler.mode must be generate or template, got %q", c.Assembler.Mode)
	}
	switch c.Reference.Source {
	case "embedded":
	case "file":
		if c.Reference.Path == "" {
			return fmt.Errorf("reference.path required for file source")
		}
	case "gcs":
		if c.Reference.Bucket == "" || c.Reference.Object == "" {
			return fmt.Errorf("reference.bucket and reference.object required for gcs source")
		}
	default:
		return fmt.Errorf("unknown reference.source %q", c.Reference.Source)
	}
	if c.Synthesis.Engine == "" {
		return fmt.Errorf("synthesis.engine required")
	}
	if c.Build.MaxAttempts < 1 {
		return fmt.Errorf("build.max_attempts must be at least 1")
	}
	if c.Build.Concurrency < 1 {
		return fmt.Errorf("build.concurrency must be at least 1")
	}
	return nil
}

// APIKey reads the generation service key from the configured env var
func (c *Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// Timeout is the per-call deadline for one generation request
func (c *LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
