package mileage

import "github.com/couchcryptid/freight-mileage-service/internal/domain"

// Status reports the active provider, whether it has credentials, and the
// providers behind it. It performs no I/O.
func (r *Resolver) Status() domain.ProviderStatus {
	configured := false
	if p, ok := r.providers[r.primary]; ok {
		configured = p.Configured()
	}
	return domain.ProviderStatus{
		ActiveProvider: r.primary,
		Configured:     configured,
		FallbackOrder:  r.Chain()[1:],
	}
}
