package endpoints

import (
	"context"
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
	"github.com/Nixie-Tech-LLC/miautomatic/internal/storage"
)

// FeederStore is the slice of db.Store used by the feeder endpoints.
type FeederStore interface {
	CreateFeeder(ctx context.Context, name string, petName *string, createdBy int) (model.Feeder, error)
	GetFeederByID(ctx context.Context, id int) (model.Feeder, error)
	ListFeeders(ctx context.Context, ownerID int) ([]model.Feeder, error)
	UpdateFeeder(ctx context.Context, id int, name, petName *string) error
	SetFeederPhoto(ctx context.Context, id int, url string) error
	PairFeeder(ctx context.Context, id int, deviceID string) error
	RecordFeeding(ctx context.Context, f model.Feeding) error
	ListFeedings(ctx context.Context, feederID, limit int) ([]model.Feeding, error)
}

type CommandPublisher interface {
	SendCommand(deviceID string, cmd middleware.Command) error
}

// Mirror forwards changes to the upstream feeder backend.
type Mirror interface {
	SaveMealConfig(ctx context.Context, deviceID string, cfg model.MealConfig) error
	Feed(ctx context.Context, deviceID string) error
}

type PairingRegistry interface {
	ResolvePairingCode(ctx context.Context, code string) (string, error)
	DeletePairingCode(ctx context.Context, code string) error
}

// Deps groups what FeederModule needs. Devices may be nil when no broker is configured.
type Deps struct {
	Store   FeederStore
	Configs feeding.ConfigRepository
	Devices CommandPublisher
	Mirror  Mirror
	Pairing PairingRegistry
	Storage storage.Storage
	Clock   feeding.Clock
}

type FeederController struct {
	Deps
}

func newFeederController(d Deps) *FeederController {
	if d.Clock == nil {
		d.Clock = feeding.SystemClock{Location: time.Local}
	}
	return &FeederController{Deps: d}
}

// FeederModule mounts all authenticated /feeders endpoints.
func FeederModule(d Deps) api.Module {
	ctl := newFeederController(d)
	return api.ModuleFunc(func(c *api.Controller) {
		// CRUD
		c.GET("/feeders", ctl.listFeeders)
		c.POST("/feeders", ctl.createFeeder)
		c.GET("/feeders/:id", ctl.getFeeder)
		c.PUT("/feeders/:id", ctl.updateFeeder)
		c.POST("/feeders/:id/photo", ctl.uploadPhoto)

		// pairing
		c.POST("/feeders/pair", ctl.pairFeeder)

		// meals
		c.GET("/feeders/:id/meal-config", ctl.getMealConfig)
		c.PUT("/feeders/:id/meal-config", ctl.saveMealConfig)
		c.GET("/feeders/:id/next-meal", ctl.nextMeal)
		c.POST("/feeders/:id/feed", ctl.feedNow)
		c.GET("/feeders/:id/feedings", ctl.listFeedings)
	})
}

// ownedFeeder loads the feeder named by the :id param and checks it belongs to user.
func (f *FeederController) ownedFeeder(ctx *gin.Context, user *model.User) (model.Feeder, *api.APIError) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		log.Error().Err(err).Str("id_raw", ctx.Param("id")).Msg("invalid id in request")
		return model.Feeder{}, &api.APIError{Code: http.StatusBadRequest, Message: "invalid id"}
	}
	return f.feederFor(ctx, user, id)
}

func (f *FeederController) feederFor(ctx context.Context, user *model.User, id int) (model.Feeder, *api.APIError) {
	feeder, err := f.Store.GetFeederByID(ctx, id)
	if err != nil {
		return model.Feeder{}, &api.APIError{Code: http.StatusNotFound, Message: "feeder not found"}
	}
	if feeder.CreatedBy != user.ID {
		log.Error().
			Int("user_id", user.ID).
			Int("feeder_owner", feeder.CreatedBy).
			Msg("forbidden access to feeder")
		return model.Feeder{}, &api.APIError{Code: http.StatusForbidden, Message: "forbidden"}
	}
	return feeder, nil
}

func feederResponse(fd model.Feeder) packets.FeederResponse {
	return packets.FeederResponse{
		ID:        fd.ID,
		DeviceID:  fd.DeviceID,
		Name:      fd.Name,
		PetName:   fd.PetName,
		PhotoURL:  fd.PhotoURL,
		Paired:    fd.Paired,
		CreatedAt: fd.CreatedAt.Format(time.RFC3339),
		UpdatedAt: fd.UpdatedAt.Format(time.RFC3339),
	}
}

// petName is what the home screen calls the animal.
func petName(fd model.Feeder) string {
	if fd.PetName != nil && *fd.PetName != "" {
		return *fd.PetName
	}
	return fd.Name
}

func deviceOf(fd model.Feeder) string {
	if fd.DeviceID == nil {
		return ""
	}
	return *fd.DeviceID
}
