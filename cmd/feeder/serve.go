package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/config"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/db"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	deviceapi "github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/device/endpoints"
	feederapi "github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/feeder/endpoints"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/mirror"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/redis"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/scheduler"
)

const (
	mealConfigCacheTTL = time.Hour
	mirrorTimeout      = 10 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the automatic feeding scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			cfg.SetupLogging()
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		return err
	}
	store := db.NewStore(conn)
	defer store.Close()

	clock := feeding.SystemClock{Location: cfg.Location()}
	configs := db.ConfigRepository(store)

	deps := feederapi.Deps{
		Store:  store,
		Mirror: mirror.New(cfg.BackendURL, mirrorTimeout),
		Clock:  clock,
	}
	if cfg.BackendURL == "" {
		log.Info().Msg("BACKEND_URL not set, backend mirroring is disabled")
	}

	var codes deviceapi.PairingCodes
	if cfg.RedisAddress != "" {
		rc := redis.NewClient(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		if err := rc.Ping(ctx); err != nil {
			return err
		}
		defer rc.Close()
		configs = redis.NewCachedConfigs(rc, configs, mealConfigCacheTTL)
		deps.Pairing = rc
		codes = rc
	}
	deps.Configs = configs

	photos, err := initStorage(cfg)
	if err != nil {
		return err
	}
	deps.Storage = photos

	bus, err := middleware.ConnectDeviceBus(cfg.MQTTBrokerURL, cfg.MQTTClientID)
	if err != nil {
		log.Error().Err(err).Str("broker", cfg.MQTTBrokerURL).Msg("running without device transport")
	} else {
		defer bus.Close()
		deps.Devices = bus
		if err := bus.SubscribeStatus(logDeviceStatus); err != nil {
			log.Warn().Err(err).Msg("feeder status reports will be ignored")
		}

		sched := &scheduler.Scheduler{
			Store:    store,
			Configs:  configs,
			Devices:  bus,
			Clock:    clock,
			Interval: cfg.SchedulerInterval,
		}
		go func() {
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("scheduler exited")
			}
		}()
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	registerRoutes(r, cfg, store, deps, codes)

	srv := &http.Server{Addr: cfg.ServerAddress, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.ServerAddress).Str("tz", cfg.Timezone).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func logDeviceStatus(deviceID string, payload []byte) {
	log.Debug().Str("device_id", deviceID).Bytes("status", payload).Msg("feeder status")
}
