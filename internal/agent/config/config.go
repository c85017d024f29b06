// Package config loads the orchestration core's configuration: a YAML file
// layer overridden by environment variables, following the env-first
// pattern used throughout the example registry server's cmd entrypoints.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// CompressionLevel names a Feedback Shaper compression tier.
type CompressionLevel string

const (
	CompressionMinimal  CompressionLevel = "minimal"
	CompressionBalanced CompressionLevel = "balanced"
	CompressionAggro    CompressionLevel = "aggressive"
)

// LLMConfig configures the model transport. TimeoutS is in whole seconds,
// matching the wire/env form (llm.timeout_s); use Timeout() to get a
// time.Duration.
type LLMConfig struct {
	// Provider selects the model.Client adapter: "anthropic", "openai", or
	// "bedrock".
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	// Region is used by the bedrock provider to resolve the AWS SDK's
	// default credential chain; ignored by the other providers.
	Region    string `yaml:"region"`
	Model     string `yaml:"model"`
	TimeoutS  int    `yaml:"timeout_s"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Timeout returns the LLM request timeout as a time.Duration.
func (c LLMConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutS) * time.Second
}

// PolicyConfig configures the static allow/deny surface of the Policy Engine.
type PolicyConfig struct {
	AllowedTools    []string `yaml:"allowed_tools"`
	DisallowedTools []string `yaml:"disallowed_tools"`
	ConfirmWrite    bool     `yaml:"confirm_write"`
	ConfirmExec     bool     `yaml:"confirm_exec"`
}

// CacheConfig configures the tool-result cache. TTLS is in whole seconds;
// use TTL() to get a time.Duration.
type CacheConfig struct {
	Capacity int `yaml:"capacity"`
	TTLS     int `yaml:"ttl_s"`
}

// TTL returns the cache entry lifetime as a time.Duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLS) * time.Second
}

// LimitsConfig configures the Step Executor's hard caps.
type LimitsConfig struct {
	IterPerStep     int `yaml:"iter_per_step"`
	IterPerTurn     int `yaml:"iter_per_turn"`
	StutterWindow   int `yaml:"stutter_window"`
	StutterThreshold int `yaml:"stutter_threshold"`
}

// EventsConfig configures the Event Bus's optional secondary sinks.
type EventsConfig struct {
	// RedisAddr, when non-empty, mirrors every published event onto a Redis
	// stream in addition to the always-on file log. Empty disables the
	// mirror entirely. No connection is attempted at startup; a failed write
	// to the stream is logged by the sink and never treated as fatal, since
	// the mirror is best-effort.
	RedisAddr   string `yaml:"redis_addr"`
	RedisStream string `yaml:"redis_stream"`
}

// Config is the fully resolved configuration for one orchestration core
// process.
type Config struct {
	LLM           LLMConfig        `yaml:"llm"`
	Policy        PolicyConfig     `yaml:"policy"`
	Cache         CacheConfig      `yaml:"cache"`
	Limits        LimitsConfig     `yaml:"limits"`
	Events        EventsConfig     `yaml:"events"`
	Compression   CompressionLevel `yaml:"compression_level"`
	WorkspaceRoot string           `yaml:"workspace_root"`
	SessionDir    string           `yaml:"session_dir"`
}

// Defaults returns a Config populated with sensible out-of-the-box values.
func Defaults() Config {
	return Config{
		LLM: LLMConfig{
			Provider:  "anthropic",
			TimeoutS:  30,
			MaxTokens: 4096,
		},
		Cache: CacheConfig{
			Capacity: 256,
			TTLS:     300,
		},
		Limits: LimitsConfig{
			IterPerStep:      20,
			IterPerTurn:      50,
			StutterWindow:    8,
			StutterThreshold: 3,
		},
		Compression: CompressionBalanced,
		Events: EventsConfig{
			RedisStream: "agentcore:events",
		},
	}
}

// Load starts from Defaults, merges in path (a YAML file, if non-empty and
// present), then applies environment variable overrides, so a deployment
// can ship a base file and still override individual knobs per-process.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("config: read %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.LLM.Provider = envOr("AGENTCORE_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = envOr("AGENTCORE_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.APIKey = envOr("AGENTCORE_LLM_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Region = envOr("AGENTCORE_LLM_REGION", cfg.LLM.Region)
	cfg.LLM.Model = envOr("AGENTCORE_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.TimeoutS = envIntOr("AGENTCORE_LLM_TIMEOUT_S", cfg.LLM.TimeoutS)
	cfg.LLM.MaxTokens = envIntOr("AGENTCORE_LLM_MAX_TOKENS", cfg.LLM.MaxTokens)

	cfg.Cache.Capacity = envIntOr("AGENTCORE_CACHE_CAPACITY", cfg.Cache.Capacity)
	cfg.Cache.TTLS = envIntOr("AGENTCORE_CACHE_TTL_S", cfg.Cache.TTLS)

	cfg.Limits.IterPerStep = envIntOr("AGENTCORE_LIMITS_ITER_PER_STEP", cfg.Limits.IterPerStep)
	cfg.Limits.IterPerTurn = envIntOr("AGENTCORE_LIMITS_ITER_PER_TURN", cfg.Limits.IterPerTurn)
	cfg.Limits.StutterWindow = envIntOr("AGENTCORE_LIMITS_STUTTER_WINDOW", cfg.Limits.StutterWindow)
	cfg.Limits.StutterThreshold = envIntOr("AGENTCORE_LIMITS_STUTTER_THRESHOLD", cfg.Limits.StutterThreshold)

	if v := os.Getenv("AGENTCORE_COMPRESSION_LEVEL"); v != "" {
		cfg.Compression = CompressionLevel(v)
	}
	cfg.WorkspaceRoot = envOr("AGENTCORE_WORKSPACE_ROOT", cfg.WorkspaceRoot)
	cfg.SessionDir = envOr("AGENTCORE_SESSION_DIR", cfg.SessionDir)
	cfg.Policy.ConfirmWrite = envBoolOr("AGENTCORE_POLICY_CONFIRM_WRITE", cfg.Policy.ConfirmWrite)
	cfg.Policy.ConfirmExec = envBoolOr("AGENTCORE_POLICY_CONFIRM_EXEC", cfg.Policy.ConfirmExec)

	cfg.Events.RedisAddr = envOr("AGENTCORE_EVENTS_REDIS_ADDR", cfg.Events.RedisAddr)
	cfg.Events.RedisStream = envOr("AGENTCORE_EVENTS_REDIS_STREAM", cfg.Events.RedisStream)
}

func validate(cfg Config) error {
	if cfg.WorkspaceRoot == "" {
		return fmt.Errorf("config: workspace_root is required")
	}
	switch cfg.Compression {
	case CompressionMinimal, CompressionBalanced, CompressionAggro:
	default:
		return fmt.Errorf("config: invalid compression_level %q", cfg.Compression)
	}
	switch cfg.LLM.Provider {
	case "anthropic", "openai", "bedrock":
	default:
		return fmt.Errorf("config: invalid llm.provider %q", cfg.LLM.Provider)
	}
	return nil
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOr(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envBoolOr(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}
