// Package config loads the settings of the toolgraph command from an
// optional YAML file, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/smallnest/toolgraph/log"
	"github.com/smallnest/toolgraph/model"
	"github.com/smallnest/toolgraph/prebuilt"
)

// Model providers accepted in Config.Provider.
const (
	// ProviderOpenAI talks to the chat completions API through go-openai.
	ProviderOpenAI = "openai"
	// ProviderLangchain goes through the langchaingo OpenAI client.
	ProviderLangchain = "langchain"
)

// Defaults applied by DefaultConfig.
const (
	DefaultProvider        = ProviderOpenAI
	DefaultModel           = model.DefaultOpenAIModel
	DefaultMaxAttempts     = 3
	DefaultInitialDelay    = 500 * time.Millisecond
	DefaultMaxDelay        = 10 * time.Second
	DefaultMaxToolRounds   = 5
	DefaultToolErrorPolicy = "fail"
	DefaultLogLevel        = "info"
)

// Config holds every setting of the toolgraph command.
type Config struct {
	Provider     string   `yaml:"provider"`
	Model        string   `yaml:"model"`
	APIKey       string   `yaml:"api_key"`
	BaseURL      string   `yaml:"base_url"`
	Temperature  *float32 `yaml:"temperature,omitempty"`
	SystemPrompt string   `yaml:"system_prompt"`
	LogLevel     string   `yaml:"log_level"`

	Retry RetryConfig `yaml:"retry"`
	Agent AgentConfig `yaml:"agent"`
}

// RetryConfig is the retry section. It maps onto model.RetryConfig.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// AgentConfig is the agent section. FollowUp routes tool results back to
// the model for at most MaxToolRounds rounds.
type AgentConfig struct {
	FollowUp        bool   `yaml:"follow_up"`
	MaxToolRounds   int    `yaml:"max_tool_rounds"`
	ToolErrorPolicy string `yaml:"tool_error_policy"`
}

// DefaultConfig returns a Config populated with the Default* constants.
func DefaultConfig() *Config {
	return &Config{
		Provider: DefaultProvider,
		Model:    DefaultModel,
		LogLevel: DefaultLogLevel,
		Retry: RetryConfig{
			MaxAttempts:  DefaultMaxAttempts,
			InitialDelay: DefaultInitialDelay,
			MaxDelay:     DefaultMaxDelay,
		},
		Agent: AgentConfig{
			MaxToolRounds:   DefaultMaxToolRounds,
			ToolErrorPolicy: DefaultToolErrorPolicy,
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory and environment
// variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debug("environment loaded from %s", path)
	return nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.BaseURL = url
	}
	if m := os.Getenv("TOOLGRAPH_MODEL"); m != "" {
		c.Model = m
	}
	if p := os.Getenv("TOOLGRAPH_PROVIDER"); p != "" {
		c.Provider = p
	}
	if lvl := os.Getenv("TOOLGRAPH_LOG_LEVEL"); lvl != "" {
		c.LogLevel = lvl
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderLangchain:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		return errors.New("retry delays must not be negative")
	}
	if c.Agent.FollowUp && c.Agent.MaxToolRounds < 1 {
		return fmt.Errorf("agent.max_tool_rounds must be at least 1 when follow_up is enabled, got %d", c.Agent.MaxToolRounds)
	}
	if _, err := prebuilt.ParseToolErrorPolicy(c.Agent.ToolErrorPolicy); err != nil {
		return err
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() log.LogLevel {
	lvl, _ := log.ParseLevel(c.LogLevel)
	return lvl
}

// RetryPolicy converts the retry section for model.WithRetry.
func (c *Config) RetryPolicy() model.RetryConfig {
	rc := model.DefaultRetryConfig()
	rc.MaxAttempts = c.Retry.MaxAttempts
	if c.Retry.InitialDelay > 0 {
		rc.InitialDelay = c.Retry.InitialDelay
	}
	if c.Retry.MaxDelay > 0 {
		rc.MaxDelay = c.Retry.MaxDelay
	}
	return rc
}

// AgentOptions converts the agent section for prebuilt.CreateToolCallingAgent.
func (c *Config) AgentOptions() []prebuilt.AgentOption {
	policy, _ := prebuilt.ParseToolErrorPolicy(c.Agent.ToolErrorPolicy)
	opts := []prebuilt.AgentOption{prebuilt.WithToolErrorPolicy(policy)}
	if c.Agent.FollowUp {
		opts = append(opts, prebuilt.WithFollowUp(c.Agent.MaxToolRounds))
	}
	if c.SystemPrompt != "" {
		opts = append(opts, prebuilt.WithSystemPrompt(c.SystemPrompt))
	}
	return opts
}
