package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/config"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/db"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api"
	authapi "github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/auth/endpoints"
	deviceapi "github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/device/endpoints"
	feederapi "github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/feeder/endpoints"
)

// registerRoutes sets up all application routes. codes may be nil when Redis is not configured.
func registerRoutes(r *gin.Engine, cfg *config.Config, store db.Store, feeders feederapi.Deps, codes deviceapi.PairingCodes) {
	// CORS for the browser companion app
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool { return true },
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"DELETE",
			"OPTIONS",
			"HEAD",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Authorization",
			"Accept",
		},
		ExposeHeaders: []string{
			"Content-Length",
		},
		AllowCredentials: false,
	}))

	api.MountGroup(r, api.GroupConfig{
		Prefix: "/api",
	},
		authapi.AuthPublicModule(cfg.JWTSecret, store),
	)

	api.MountGroup(r, api.GroupConfig{
		Prefix:    "/api",
		Auth:      true,
		SecretKey: cfg.JWTSecret,
		Users:     store,
	},
		authapi.AuthSessionModule(cfg.JWTSecret, store),
		feederapi.FeederModule(feeders),
	)

	if codes != nil {
		api.MountGroup(r, api.GroupConfig{
			Prefix: "/api/device",
		},
			deviceapi.PairingModule(store, codes),
		)
	} else {
		log.Warn().Msg("REDIS_ADDRESS not set, device pairing is disabled")
	}

	// Static content
	if !cfg.UseSpaces {
		r.Static("/uploads", cfg.UploadDir)
	}
}
