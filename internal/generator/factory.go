package generator

import (
	"fmt"

	"github.com/awaistahir/powershare/internal/config"
	"github.com/awaistahir/powershare/internal/resolve"
	"github.com/sirupsen/logrus"
)

// FromConfig builds the generator selected by cfg.Generator.Mode
func FromConfig(cfg *config.Config, logger *logrus.Logger) (resolve.Generator, error) {
	switch cfg.Generator.Mode {
	case config.ModeLocal:
		return NewLocalGenerator(cfg.WindowOptions()), nil
	case config.ModeHTTP:
		return NewHTTPGenerator(HTTPConfig{
			URL:       cfg.Generator.URL,
			APIKey:    cfg.Generator.APIKey,
			Timeout:   cfg.Generator.Timeout,
			RateLimit: cfg.Generator.RateLimit,
			Burst:     cfg.Generator.Burst,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown generator mode: %q", cfg.Generator.Mode)
	}
}
