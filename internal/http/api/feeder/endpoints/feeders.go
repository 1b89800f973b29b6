package endpoints

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/feeder/packets"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/redis"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/storage"
)

// GET /api/feeders
func (f *FeederController) listFeeders(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	all, err := f.Store.ListFeeders(ctx, user.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: err.Error()}
	}

	out := make([]packets.FeederResponse, 0, len(all))
	for _, fd := range all {
		out = append(out, feederResponse(fd))
	}
	return out, nil
}

// POST /api/feeders
func (f *FeederController) createFeeder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.CreateFeederRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	fd, err := f.Store.CreateFeeder(ctx, request.Name, request.PetName, user.ID)
	if err != nil {
		log.Error().Err(err).Int("user_id", user.ID).Msg("could not create feeder")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not create feeder"}
	}
	return api.Created(feederResponse(fd)), nil
}

// GET /api/feeders/:id
func (f *FeederController) getFeeder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	return feederResponse(fd), nil
}

// PUT /api/feeders/:id
func (f *FeederController) updateFeeder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}

	var request packets.UpdateFeederRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	if err := f.Store.UpdateFeeder(ctx, fd.ID, request.Name, request.PetName); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not update feeder")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not update feeder"}
	}

	updated, err := f.Store.GetFeederByID(ctx, fd.ID)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: err.Error()}
	}
	return feederResponse(updated), nil
}

// POST /api/feeders/:id/photo
func (f *FeederController) uploadPhoto(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	fd, apiErr := f.ownedFeeder(ctx, user)
	if apiErr != nil {
		return nil, apiErr
	}
	if f.Storage == nil {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "photo storage is not configured"}
	}

	header, err := ctx.FormFile("photo")
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "photo file is required"}
	}
	file, err := header.Open()
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	defer file.Close()

	url, err := f.Storage.SavePhoto(ctx, header.Filename, file)
	if errors.Is(err, storage.ErrUnsupportedType) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	if err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not store photo")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not store photo"}
	}

	if err := f.Store.SetFeederPhoto(ctx, fd.ID, url); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Msg("could not save photo url")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not store photo"}
	}
	fd.PhotoURL = &url
	return feederResponse(fd), nil
}

// POST /api/feeders/pair
func (f *FeederController) pairFeeder(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.PairFeederRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	fd, apiErr := f.feederFor(ctx, user, request.FeederID)
	if apiErr != nil {
		return nil, apiErr
	}
	if f.Pairing == nil {
		return nil, &api.APIError{Code: http.StatusServiceUnavailable, Message: "pairing is not available"}
	}

	deviceID, err := f.Pairing.ResolvePairingCode(ctx, request.PairingCode)
	if errors.Is(err, redis.ErrCodeNotFound) {
		return nil, &api.APIError{Code: http.StatusNotFound, Message: "invalid or expired pairing code"}
	}
	if err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: err.Error()}
	}

	if err := f.Store.PairFeeder(ctx, fd.ID, deviceID); err != nil {
		log.Error().Err(err).Int("feeder_id", fd.ID).Str("device_id", deviceID).Msg("could not pair feeder")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not pair feeder"}
	}
	if err := f.Pairing.DeletePairingCode(ctx, request.PairingCode); err != nil {
		log.Warn().Err(err).Msg("could not delete used pairing code")
	}

	log.Info().Int("feeder_id", fd.ID).Str("device_id", deviceID).Msg("feeder paired")
	fd.DeviceID = &deviceID
	fd.Paired = true
	return feederResponse(fd), nil
}
