package analyzer

import (
	"context"
	"time"

	"github.com/strrl/dayflow/internal/ai"
)

type SettingsReader interface {
	GetSetting(ctx context.Context, key, def string) (string, error)
}

// ProviderFromSettings builds the provider from the live settings on every
// call.
func ProviderFromSettings(settings SettingsReader, timeout time.Duration) ProviderFunc {
	return func(ctx context.Context) (ai.Provider, error) {
		get := func(key string) (string, error) {
			return settings.GetSetting(ctx, key, "")
		}

		name, err := get("ai_provider")
		if err != nil {
			return nil, err
		}
		if ai.Disabled(name) {
			return nil, ai.ErrDisabled
		}

		cfg := ai.Config{Provider: name, Timeout: timeout}
		for key, dst := range map[string]*string{
			"ai_model":    &cfg.Model,
			"ai_api_key":  &cfg.APIKey,
			"ai_endpoint": &cfg.Endpoint,
		} {
			if *dst, err = get(key); err != nil {
				return nil, err
			}
		}
		return ai.NewProvider(cfg)
	}
}
