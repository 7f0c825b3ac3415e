package source

import (
	"errors"

	"musefeed/internal/config"
	"musefeed/internal/logging"
)

// Select picks the provider implementation for this deployment. Exactly one
// API key decides which implementation serves the process; callers construct
// the result once at startup and pass it down. A missing key is a deployment
// defect, the one condition here that is allowed to abort startup.
func Select(cfg config.ProvidersConfig) (Source, error) {
	switch {
	case cfg.TwitterAPIKey != "":
		s := NewTwitterAPI(cfg.TwitterAPIKey)
		logging.Info("provider_selected", map[string]any{"provider": s.ProviderName()})
		return s, nil
	case cfg.SocialDataKey != "":
		s := NewSocialData(cfg.SocialDataKey)
		logging.Info("provider_selected", map[string]any{"provider": s.ProviderName()})
		return s, nil
	}
	return nil, errors.New("no tweet provider configured: set providers.twitterApiKey or providers.socialDataKey")
}
