package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/intentflow/internal/core/domain"
	"github.com/custodia-labs/intentflow/internal/core/ports/driven"
	"github.com/custodia-labs/intentflow/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyServerHost     = "server.host"
	keyServerPort     = "server.port"
	keyTrustedProxies = "server.trusted_proxies"
	keyEnvironment    = "environment"
	keyLogLevel       = "log.level"
	keyLogFormat      = "log.format"
	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyStorageDriver  = "storage.driver"
	keyRateWindowMS   = "rate_limit.window_ms"
	keyRateMaxRequest = "rate_limit.max_requests"
	keyPromptDir      = "prompts.dir"
)

// SettingsService resolves settings from defaults, the config file and the
// environment, in that order of increasing precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
// lookupEnv has the signature of os.LookupEnv; nil ignores the environment.
func NewSettingsService(configStore driven.ConfigStore, lookupEnv func(string) (string, bool)) *SettingsService {
	if lookupEnv == nil {
		lookupEnv = func(string) (string, bool) { return "", false }
	}
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   lookupEnv,
	}
}

// Get returns validated settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	if err := s.configStore.Load(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", s.configStore.Path(), err)
	}

	defaults := domain.DefaultSettings()
	settings := domain.Settings{
		Server: domain.ServerSettings{
			Host:           s.getString(keyServerHost, defaults.Server.Host),
			Port:           s.getInt(keyServerPort, defaults.Server.Port),
			TrustedProxies: s.getList(keyTrustedProxies),
		},
		Environment: domain.Environment(strings.ToLower(s.getString(keyEnvironment, defaults.Environment.String()))),
		Log: domain.LogSettings{
			Level:  s.getString(keyLogLevel, defaults.Log.Level),
			Format: s.getString(keyLogFormat, defaults.Log.Format),
		},
		LLM: domain.LLMSettings{
			Provider:  domain.AIProvider(strings.ToLower(s.configStore.GetString(keyLLMProvider))),
			Model:     s.configStore.GetString(keyLLMModel),
			BaseURL:   s.configStore.GetString(keyLLMBaseURL), // No default - empty selects the provider endpoint
			APIKey:    s.configStore.GetString(keyLLMAPIKey),
			MaxTokens: s.getInt(keyLLMMaxTokens, defaults.LLM.MaxTokens),
		},
		Storage: domain.StorageDriver(s.getString(keyStorageDriver, string(defaults.Storage))),
		RateLimit: domain.RateLimitSettings{
			Window:      s.getMillis(keyRateWindowMS, defaults.RateLimit.Window),
			MaxRequests: s.getInt(keyRateMaxRequest, defaults.RateLimit.MaxRequests),
		},
		PromptDir: s.configStore.GetString(keyPromptDir),
	}

	settings.ApplyEnv(s.lookupEnv)

	if settings.LLM.Provider.IsValid() && settings.LLM.Model == "" {
		settings.LLM.Model = domain.DefaultLLMModels()[settings.LLM.Provider]
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	return &settings, nil
}

// getString returns a string config value or the default.
func (s *SettingsService) getString(key, defaultVal string) string {
	if val := s.configStore.GetString(key); val != "" {
		return val
	}
	return defaultVal
}

// getInt returns an int config value or the default.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

// getList reads a TOML array of strings or a comma-separated string.
func (s *SettingsService) getList(key string) []string {
	val, ok := s.configStore.Get(key)
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case string:
		return domain.SplitList(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok && str != "" {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

func (s *SettingsService) getMillis(key string, defaultVal time.Duration) time.Duration {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return time.Duration(s.configStore.GetInt(key)) * time.Millisecond
}
