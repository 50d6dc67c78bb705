// Package config loads NovelForge resilience configuration using Viper.
// It supports YAML files and environment variables prefixed with
// NOVELFORGE_, and resolves credential references through the secret
// package so API keys never live in config files.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"

	"github.com/mosadd1X/novelforge-ai-sub003/cache"
	"github.com/mosadd1X/novelforge-ai-sub003/genai"
	"github.com/mosadd1X/novelforge-ai-sub003/manager"
	"github.com/mosadd1X/novelforge-ai-sub003/monitor"
	"github.com/mosadd1X/novelforge-ai-sub003/queue"
	"github.com/mosadd1X/novelforge-ai-sub003/resilience"
	"github.com/mosadd1X/novelforge-ai-sub003/secret"
)

// Config is the resilience layer's runtime configuration.
type Config struct {
	StatusCheckInterval time.Duration
	ShowStatusMessages  bool
	ShowRetryMessages   bool

	CircuitBreaker BreakerSettings
	Queue          QueueSettings
	Client         ClientSettings
	Cache          CacheSettings
	Log            LogSettings

	Credentials []CredentialRef
}

// BreakerSettings configures the circuit breaker.
type BreakerSettings struct {
	FailureThreshold int
	RecoveryTimeout  time.Duration
	SuccessThreshold int
}

// QueueSettings configures the request queue processor.
type QueueSettings struct {
	MaxRetries int
}

// ClientSettings configures the generative API client.
type ClientSettings struct {
	Provider   string
	Model      string
	MaxRetries int
}

// CacheSettings configures the response cache.
type CacheSettings struct {
	// Backend selects the cache implementation: memory, redis, or none.
	Backend     string
	Capacity    int
	RedisAddr   string
	RedisPrefix string
	TTL         time.Duration
}

// LogSettings configures logging.
type LogSettings struct {
	Level string
}

// CredentialRef is one unresolved pool credential. APIKey and
// BearerToken may hold ${VAR} expansions or secretref: references.
type CredentialRef struct {
	Name        string `mapstructure:"name"`
	APIKey      string `mapstructure:"api_key"`
	BearerToken string `mapstructure:"bearer_token"`
}

// Load reads configuration from the given file (optional), environment
// variables prefixed with NOVELFORGE_, and built-in defaults.
//
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("NOVELFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The common single-key setup works without any config file.
	_ = v.BindEnv("api_key", "GEMINI_API_KEY", "NOVELFORGE_API_KEY")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	c := &Config{
		StatusCheckInterval: v.GetDuration("status_check_interval"),
		ShowStatusMessages:  v.GetBool("show_status_messages"),
		ShowRetryMessages:   v.GetBool("show_retry_messages"),
		CircuitBreaker: BreakerSettings{
			FailureThreshold: v.GetInt("circuit_breaker.failure_threshold"),
			RecoveryTimeout:  v.GetDuration("circuit_breaker.recovery_timeout"),
			SuccessThreshold: v.GetInt("circuit_breaker.success_threshold"),
		},
		Queue: QueueSettings{
			MaxRetries: v.GetInt("queue.max_retries"),
		},
		Client: ClientSettings{
			Provider:   v.GetString("client.provider"),
			Model:      v.GetString("client.model"),
			MaxRetries: v.GetInt("client.max_retries"),
		},
		Cache: CacheSettings{
			Backend:     v.GetString("cache.backend"),
			Capacity:    v.GetInt("cache.capacity"),
			RedisAddr:   v.GetString("cache.redis_addr"),
			RedisPrefix: v.GetString("cache.redis_prefix"),
			TTL:         v.GetDuration("cache.ttl"),
		},
		Log: LogSettings{
			Level: v.GetString("log.level"),
		},
	}

	if err := v.UnmarshalKey("credentials", &c.Credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	if len(c.Credentials) == 0 {
		if key := v.GetString("api_key"); key != "" {
			c.Credentials = []CredentialRef{{Name: "default", APIKey: key}}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("status_check_interval", 30*time.Second)
	v.SetDefault("show_status_messages", false)
	v.SetDefault("show_retry_messages", false)

	v.SetDefault("circuit_breaker.failure_threshold", 5)
	v.SetDefault("circuit_breaker.recovery_timeout", 60*time.Second)
	v.SetDefault("circuit_breaker.success_threshold", 3)

	v.SetDefault("queue.max_retries", 3)

	v.SetDefault("client.provider", "gemini")
	v.SetDefault("client.model", "gemini-2.0-flash")
	v.SetDefault("client.max_retries", 3)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.capacity", 256)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("log.level", "info")
}

// Validate checks the configuration for values no component accepts.
func (c *Config) Validate() error {
	if c.StatusCheckInterval <= 0 {
		return fmt.Errorf("config: status_check_interval must be positive")
	}
	if c.CircuitBreaker.FailureThreshold < 1 {
		return fmt.Errorf("config: circuit_breaker.failure_threshold must be at least 1")
	}
	if c.CircuitBreaker.SuccessThreshold < 1 {
		return fmt.Errorf("config: circuit_breaker.success_threshold must be at least 1")
	}
	if c.CircuitBreaker.RecoveryTimeout <= 0 {
		return fmt.Errorf("config: circuit_breaker.recovery_timeout must be positive")
	}

	switch c.Cache.Backend {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("config: cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// ManagerConfig maps the configuration onto the facade's component
// configs.
func (c *Config) ManagerConfig() manager.Config {
	return manager.Config{
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: c.CircuitBreaker.FailureThreshold,
			RecoveryTimeout:  c.CircuitBreaker.RecoveryTimeout,
			SuccessThreshold: c.CircuitBreaker.SuccessThreshold,
		},
		Monitor: monitor.Config{
			Interval:           c.StatusCheckInterval,
			ShowStatusMessages: c.ShowStatusMessages,
		},
		Processor: queue.Config{
			MaxRetries:        c.Queue.MaxRetries,
			ShowRetryMessages: c.ShowRetryMessages,
		},
	}
}

// ClientConfig maps the configuration onto the API client config.
func (c *Config) ClientConfig() genai.Config {
	return genai.Config{
		Provider:   c.Client.Provider,
		MaxRetries: c.Client.MaxRetries,
		Backoff:    resilience.BackoffConfig{Jitter: true},
	}
}

// ResolveCredentials materializes the credential pool entries, expanding
// environment references and secretrefs through the resolver.
func (c *Config) ResolveCredentials(ctx context.Context, resolver *secret.Resolver) ([]genai.Credential, error) {
	creds := make([]genai.Credential, 0, len(c.Credentials))
	for i, ref := range c.Credentials {
		name := ref.Name
		if name == "" {
			name = fmt.Sprintf("key-%d", i+1)
		}

		apiKey, err := resolver.ResolveValue(ctx, ref.APIKey)
		if err != nil {
			return nil, fmt.Errorf("config: resolving api key for %s: %w", name, err)
		}
		bearer, err := resolver.ResolveValue(ctx, ref.BearerToken)
		if err != nil {
			return nil, fmt.Errorf("config: resolving bearer token for %s: %w", name, err)
		}

		creds = append(creds, genai.Credential{Name: name, APIKey: apiKey, BearerToken: bearer})
	}
	return creds, nil
}

// BuildCache constructs the configured response cache. The none backend
// returns a nil cache, meaning caching is disabled.
func (s CacheSettings) BuildCache() (cache.Cache, cache.Policy, error) {
	policy := cache.Policy{DefaultTTL: s.TTL, MaxTTL: 24 * time.Hour}

	switch s.Backend {
	case "none":
		return nil, cache.NoCachePolicy(), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: s.RedisAddr})
		store, err := cache.NewRedisCache(client, s.RedisPrefix)
		if err != nil {
			return nil, cache.Policy{}, err
		}
		return store, policy, nil
	default:
		return cache.NewMemoryCache(s.Capacity), policy, nil
	}
}
