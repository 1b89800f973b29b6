package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/feeder/packets"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

const (
	defaultFeedingsLimit = 20
	maxFeedingsLimit     = 100
)

var errBackend = &api.APIError{Code: http.StatusBadGateway, Message: "error communicating with the backend"}

// GET /api/feeders/:id/meal-config
func (f *FeederController) getMealConfig(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	cfg, err := f.Configs.Load(ctx, fd.ID)
	if errors.Is(err, feeding.ErrNotConfigured) {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: feeding.ErrNotConfigured.Error()}
	}
	if err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not load meal config")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load meal configuration"}
	}
	return feeding.RefreshFed(cfg, f.Clock.Now()), nil
}

// PUT /api/feeders/:id/meal-config
func (f *FeederController) saveMealConfig(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	var request packets.MealConfigRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	// like the form, mealCount decides how many time fields there are
	times := request.Times()
	if request.MealCount >= 1 && request.MealCount <= feeding.MaxMealCount {
		times = feeding.ResizeMealTimes(times, request.MealCount)
	}

	now := f.Clock.Now()
	cfg, err := feeding.BuildConfig(feeding.ConfigInput{
		MealCount:    request.MealCount,
		MealTimes:    times,
		IsEveryday:   request.IsEveryday,
		SelectedDays: request.SelectedDays,
	}, now)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	// the backend has to accept the schedule before it is stored here
	if f.Mirror != nil {
		if err := f.Mirror.SaveMealConfig(ctx, deviceOf(fd), cfg); err != nil {
			log.Error().Err(err).Int("feeder_id", fd.ID).Msg("backend rejected meal config")
			return nil, errBackend
		}
	}

	if err := f.Configs.Save(ctx, fd.ID, cfg); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not save meal config")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not save meal configuration"}
	}

	if fd.Paired && fd.DeviceID != nil && f.Devices != nil {
		if err := f.Devices.SendCommand(*fd.DeviceID, middleware.MealConfigCommand(cfg, now)); err != nil {
			log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not push meal config to feeder")
		}
	}

	log.Info().Int("feeder_id", fd.ID).Int("meal_count", cfg.MealCount).Msg("meal config saved")
	return cfg, nil
}

// GET /api/feeders/:id/next-meal
func (f *FeederController) nextMeal(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	resp := packets.NextMealResponse{PetName: petName(fd)}

	cfg, err := f.Configs.Load(ctx, fd.ID)
	if errors.Is(err, feeding.ErrNotConfigured) {
		return resp, nil
	}
	if err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not load meal config")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not load meal configuration"}
	}

	next, ok := feeding.ComputeNextMeal(cfg.Times(), f.Clock.Now())
	if !ok {
		return resp, nil
	}

	at := next.At.Format(time.RFC3339)
	resp.Configured = true
	resp.NextMealAt = &at
	resp.Remaining = next.String()
	resp.RemainingHours = next.Hours()
	resp.RemainingMinutes = next.Minutes()
	return resp, nil
}

// POST /api/feeders/:id/feed
func (f *FeederController) feedNow(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if !fd.Paired || fd.DeviceID == nil {
		return nil, &api.APIError{Code: http.StatusConflict, Message: "feeder is not paired"}
	}
	if f.Devices == nil {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "device transport is not available"}
	}

	if f.Mirror != nil {
		if err := f.Mirror.Feed(ctx, *fd.DeviceID); err != nil {
			log.Error().Err(err).Int("feeder_id", fd.ID).Msg("backend rejected feed request")
			return nil, errBackend
		}
	}

	now := f.Clock.Now()
	cmd := middleware.FeedCommand(model.SourceManual, nil, now)
	if err := f.Devices.SendCommand(*fd.DeviceID, cmd); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not send feed command")
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "could not reach the feeder"}
	}

	if err := f.Store.RecordFeeding(ctx, model.Feeding{
		ID:       cmd.ID,
		FeederID: fd.ID,
		Source:   model.SourceManual,
		FedAt:    now,
	}); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not record feeding")
	}

	return packets.FeedResponse{
		ID:      cmd.ID,
		Message: fmt.Sprintf("A meal is being served now for %s.", petName(fd)),
	}, nil
}

// GET /api/feeders/:id/feedings?limit=N
func (f *FeederController) listFeedings(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	limit := defaultFeedingsLimit
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid limit"}
		}
		limit = min(n, maxFeedingsLimit)
	}

	all, err := f.Store.ListFeedings(ctx, fd.ID, limit)
	if err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not list feedings")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: err.Error()}
	}

	out := make([]packets.FeedingResponse, 0, len(all))
	for _, fe := range all {
		out = append(out, packets.FeedingResponse{
			ID:       fe.ID,
			Source:   fe.Source,
			MealTime: fe.MealTime,
			FedAt:    fe.FedAt.Format(time.RFC3339),
		})
	}
	return out, nil
}
