// Package providers initializes and registers all concrete data
// providers with a provider registry.
package providers

import (
	"github.com/rs/zerolog"

	"github.com/folioworks/folio/internal/keypool"
	"github.com/folioworks/folio/internal/provider"
	"github.com/folioworks/folio/internal/providers/finnhub"
	"github.com/folioworks/folio/internal/providers/tiingo"
)

// RegisterAll creates and registers the available providers. Providers
// register even with an empty key pool, so a fetch without configured
// credentials fails with keypool.ErrNoCredentials instead of looking
// like a missing provider.
func RegisterAll(reg *provider.Registry, finnhubKeys, tiingoKeys []string, log zerolog.Logger) error {
	fpool := keypool.New(finnhub.Name, finnhubKeys)
	if fpool.Size() == 0 {
		log.Warn().Str("provider", finnhub.Name).Msg("no credentials configured")
	}
	if err := reg.Register(finnhub.New(fpool, log)); err != nil {
		return err
	}

	tpool := keypool.New(tiingo.Name, tiingoKeys)
	if tpool.Size() == 0 {
		log.Warn().Str("provider", tiingo.Name).Msg("no credentials configured")
	}
	if err := reg.Register(tiingo.New(tpool, log)); err != nil {
		return err
	}

	return nil
}
