package summarize

import (
	"fmt"

	"github.com/tubescribe/tubescribe/model"
)

// Credentials are service-level provider defaults, typically sourced from
// the environment.
type Credentials struct {
	Provider    model.ProviderName
	OpenAIKey   string
	GeminiKey   string
	OpenAIModel string
	GeminiModel string
}

// Selector resolves the Provider for a tenant. Tenant-configured settings
// take precedence over the service defaults; within one provider the
// tenant's key wins over the default key.
type Selector struct {
	defaults Credentials
	build    func(name model.ProviderName, apiKey, modelName string) Provider
}

func NewSelector(defaults Credentials) *Selector {
	return &Selector{
		defaults: defaults,
		build:    buildProvider,
	}
}

func buildProvider(name model.ProviderName, apiKey, modelName string) Provider {
	if name == model.ProviderGemini {
		return NewGemini(apiKey, modelName)
	}
	return NewOpenAI(apiKey, modelName)
}

// For returns the provider for the given tenant settings, which may be
// nil. A resolvable provider without a usable key is an auth failure, not
// a provider outage.
func (s *Selector) For(settings *model.TenantSettings) (Provider, error) {
	name := s.defaults.Provider
	if settings != nil && settings.Provider != "" {
		name = settings.Provider
	}
	if name == "" {
		name = model.ProviderOpenAI
	}
	if name != model.ProviderOpenAI && name != model.ProviderGemini {
		return nil, fmt.Errorf("unsupported provider %q", name)
	}

	key := settings.Key(name)
	if key == "" {
		key = s.defaultKey(name)
	}
	if key == "" {
		return nil, fmt.Errorf("%w: no %s API key configured", model.ErrAuthFailed, name)
	}

	return s.build(name, key, s.defaultModel(name)), nil
}

func (s *Selector) defaultKey(name model.ProviderName) string {
	if name == model.ProviderGemini {
		return s.defaults.GeminiKey
	}
	return s.defaults.OpenAIKey
}

func (s *Selector) defaultModel(name model.ProviderName) string {
	if name == model.ProviderGemini {
		return s.defaults.GeminiModel
	}
	return s.defaults.OpenAIModel
}
