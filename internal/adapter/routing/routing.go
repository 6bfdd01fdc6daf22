// Package routing assembles the configured routing provider clients.
package routing

import (
	"log/slog"

	"github.com/couchcryptid/freight-mileage-service/internal/adapter/google"
	"github.com/couchcryptid/freight-mileage-service/internal/adapter/milemaker"
	"github.com/couchcryptid/freight-mileage-service/internal/adapter/pcmiler"
	"github.com/couchcryptid/freight-mileage-service/internal/config"
	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

// NewProviders returns one client per supported provider. Clients without
// credentials are still returned and report Configured() == false.
func NewProviders(cfg *config.Config, logger *slog.Logger) []domain.DistanceProvider {
	providers := []domain.DistanceProvider{
		pcmiler.NewClient(cfg.PCMilerClientID, cfg.PCMilerClientSecret, cfg.ProviderTimeout, logger),
		milemaker.NewClient(cfg.MileMakerAPIKey, cfg.ProviderTimeout, logger),
		google.NewClient(cfg.GoogleAPIKey, cfg.ProviderTimeout, logger),
	}
	for _, p := range providers {
		if !p.Configured() {
			logger.Warn("routing provider not configured", "provider", p.ID())
		}
	}
	return providers
}
