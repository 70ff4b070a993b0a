package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// Settings errors.
var (
	// ErrInvalidPort indicates the server port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid server port")

	// ErrInvalidEnvironment indicates an unknown deployment environment.
	ErrInvalidEnvironment = errors.New("invalid environment")

	// ErrInvalidLogLevel indicates an unknown log level.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidProvider indicates an unknown LLM provider.
	ErrInvalidProvider = errors.New("invalid LLM provider")

	// ErrInvalidStorageDriver indicates an unknown storage driver.
	ErrInvalidStorageDriver = errors.New("invalid storage driver")

	// ErrInvalidRateLimit indicates a non-positive rate limit window or budget.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidTrustedProxy indicates a trusted proxy that is neither an IP nor a CIDR.
	ErrInvalidTrustedProxy = errors.New("invalid trusted proxy")

	// ErrLLMRequired indicates production was configured without an LLM.
	ErrLLMRequired = errors.New("LLM provider must be configured in production")
)

// Environment is the deployment environment of the server.
type Environment string

// Available environments.
const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTest        Environment = "test"
)

// IsValid returns true if the environment is recognised.
func (e Environment) IsValid() bool {
	switch e {
	case EnvDevelopment, EnvProduction, EnvTest:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (e Environment) String() string {
	return string(e)
}

// AIProvider identifies an LLM service provider.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
// Both supported providers are cloud APIs.
func (p AIProvider) RequiresAPIKey() bool {
	return p.IsValid()
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// StorageDriver selects the Store adapter.
type StorageDriver string

// Available storage drivers. Both keep data for the process lifetime only.
const (
	StorageMemory StorageDriver = "memory"
	StorageSQLite StorageDriver = "sqlite"
)

// IsValid returns true if the storage driver is recognised.
func (d StorageDriver) IsValid() bool {
	return d == StorageMemory || d == StorageSQLite
}

// ServerSettings holds HTTP listener configuration.
type ServerSettings struct {
	Host string
	Port int

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For header is
	// believed. Empty means clients are identified by socket address only.
	TrustedProxies []string
}

// Addr returns the host:port listen address.
func (s ServerSettings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogSettings holds logger configuration.
type LogSettings struct {
	// Level is one of debug, info, warn, error.
	Level string

	// Format is "text" or "json".
	Format string
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name. Empty selects the provider default.
	Model string

	// BaseURL overrides the provider endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string

	// MaxTokens bounds each completion.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RateLimitSettings holds per-client HTTP rate limiting configuration.
type RateLimitSettings struct {
	// Window is the period over which MaxRequests are allowed.
	Window time.Duration

	// MaxRequests is the request budget per client per Window.
	MaxRequests int
}

// Settings holds all process settings.
type Settings struct {
	Server      ServerSettings
	Environment Environment
	Log         LogSettings
	LLM         LLMSettings
	Storage     StorageDriver
	RateLimit   RateLimitSettings

	// PromptDir holds prompt overrides. Empty uses the embedded prompts.
	PromptDir string
}

// DefaultSettings returns settings with sensible defaults.
// The LLM is left unconfigured.
func DefaultSettings() Settings {
	return Settings{
		Server:      ServerSettings{Host: "0.0.0.0", Port: 3000},
		Environment: EnvDevelopment,
		Log:         LogSettings{Level: "info", Format: "text"},
		LLM:         LLMSettings{MaxTokens: 4096},
		Storage:     StorageMemory,
		RateLimit: RateLimitSettings{
			Window:      15 * time.Minute,
			MaxRequests: 100,
		},
	}
}

// IsDevelopment reports whether error details may be shown to clients.
func (s Settings) IsDevelopment() bool {
	return s.Environment == EnvDevelopment
}

// ApplyEnv overrides settings from environment variables.
// lookup has the signature of os.LookupEnv. Unparseable numbers are ignored.
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	num("PORT", &s.Server.Port)
	if v, ok := lookup("TRUSTED_PROXIES"); ok {
		s.Server.TrustedProxies = SplitList(v)
	}

	env := string(s.Environment)
	str("APP_ENV", &env)
	s.Environment = Environment(strings.ToLower(env))

	str("LOG_LEVEL", &s.Log.Level)

	provider := string(s.LLM.Provider)
	str("LLM_PROVIDER", &provider)
	s.LLM.Provider = AIProvider(strings.ToLower(provider))

	var anthropicKey, openaiKey string
	str("ANTHROPIC_API_KEY", &anthropicKey)
	str("CLAUDE_API_KEY", &anthropicKey)
	str("OPENAI_API_KEY", &openaiKey)

	// An API key picks the provider when none is configured.
	if s.LLM.Provider == "" {
		switch {
		case anthropicKey != "":
			s.LLM.Provider = AIProviderAnthropic
		case openaiKey != "":
			s.LLM.Provider = AIProviderOpenAI
		}
	}
	switch {
	case s.LLM.Provider == AIProviderAnthropic && anthropicKey != "":
		s.LLM.APIKey = anthropicKey
	case s.LLM.Provider == AIProviderOpenAI && openaiKey != "":
		s.LLM.APIKey = openaiKey
	}
	str("LLM_MODEL", &s.LLM.Model)

	windowMS := int(s.RateLimit.Window / time.Millisecond)
	num("RATE_LIMIT_WINDOW_MS", &windowMS)
	s.RateLimit.Window = time.Duration(windowMS) * time.Millisecond
	num("RATE_LIMIT_MAX_REQUESTS", &s.RateLimit.MaxRequests)

	driver := string(s.Storage)
	str("STORAGE_DRIVER", &driver)
	s.Storage = StorageDriver(driver)
}

// Validate checks the settings and returns the first problem found.
func (s Settings) Validate() error {
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, s.Server.Port)
	}
	for _, p := range s.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("%w: %q", ErrInvalidTrustedProxy, p)
			}
		}
	}
	if !s.Environment.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidEnvironment, s.Environment)
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, s.Log.Level)
	}
	if s.LLM.Provider != "" && !s.LLM.Provider.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidProvider, s.LLM.Provider)
	}
	if !s.Storage.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStorageDriver, s.Storage)
	}
	if s.RateLimit.Window <= 0 || s.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("%w: %d requests per %s", ErrInvalidRateLimit, s.RateLimit.MaxRequests, s.RateLimit.Window)
	}
	if s.Environment == EnvProduction && !s.LLM.IsConfigured() {
		return ErrLLMRequired
	}
	return nil
}

// SplitList splits a comma-separated list, dropping blank entries.
func SplitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}
