package provider

import (
	"fmt"
	"net/http"

	"github.com/pario-ai/quill/pkg/config"
)

// Chain resolves the ordered list of enabled providers to try.
// If cfg.Chain is set, its names define the order and unknown or disabled
// names are skipped. Otherwise providers are tried in declaration order.
func Chain(cfg *config.Config) ([]config.ProviderConfig, error) {
	var enabled []config.ProviderConfig
	for _, p := range cfg.Providers {
		if p.IsEnabled() {
			enabled = append(enabled, p)
		}
	}
	if len(enabled) == 0 {
		return nil, ErrNoProviders
	}
	if len(cfg.Chain) == 0 {
		return enabled, nil
	}

	// Build provider index by name
	index := make(map[string]config.ProviderConfig, len(enabled))
	for _, p := range enabled {
		index[p.Name] = p
	}

	var chain []config.ProviderConfig
	seen := make(map[string]bool, len(cfg.Chain))
	for _, name := range cfg.Chain {
		p, ok := index[name]
		if !ok || seen[name] {
			continue // skip unknown, disabled and repeated names
		}
		seen[name] = true
		chain = append(chain, p)
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("chain %v: all providers unknown or disabled", cfg.Chain)
	}
	return chain, nil
}

// FromConfig builds the providers of the resolved chain, in order.
func FromConfig(cfg *config.Config, client *http.Client) ([]Provider, error) {
	chain, err := Chain(cfg)
	if err != nil {
		return nil, err
	}

	providers := make([]Provider, 0, len(chain))
	for _, pc := range chain {
		switch pc.Type {
		case "", config.ProviderOpenAI:
			providers = append(providers, NewOpenAI(pc.Name, pc.URL, pc.APIKey, pc.Model, client))
		case config.ProviderAnthropic:
			providers = append(providers, NewAnthropic(pc.Name, pc.URL, pc.APIKey, pc.Model, client))
		default:
			return nil, fmt.Errorf("provider %q: unknown type %q", pc.Name, pc.Type)
		}
	}
	return providers, nil
}
