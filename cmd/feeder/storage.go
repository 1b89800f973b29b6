package main

import (
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/config"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/storage"
)

// initStorage selects the pet photo backend
func initStorage(cfg *config.Config) (storage.Storage, error) {
	if cfg.UseSpaces {
		spacesStorage, err := storage.NewSpacesStorage(
			cfg.SpacesEndpoint,
			cfg.SpacesRegion,
			cfg.SpacesBucket,
			cfg.SpacesCDNURL,
			cfg.SpacesAccessKey,
			cfg.SpacesSecretKey,
		)
		if err != nil {
			return nil, err
		}
		log.Info().Str("cdn", cfg.SpacesCDNURL).Msg("using DigitalOcean Spaces storage")
		return spacesStorage, nil
	}

	log.Info().Str("dir", cfg.UploadDir).Msg("using local file storage")
	return storage.NewLocalStorage(cfg.UploadDir), nil
}
