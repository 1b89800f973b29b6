package endpoints

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/http/api/device/packets"
)

// PairingCodeTTL is how long a code announced by a feeder stays claimable.
const PairingCodeTTL = 10 * time.Minute

type DeviceRegistry interface {
	IsFeederPairedByDeviceID(ctx context.Context, deviceID string) (bool, error)
}

type PairingCodes interface {
	StorePairingCode(ctx context.Context, code, deviceID string, ttl time.Duration) error
}

type DeviceController struct {
	devices DeviceRegistry
	codes   PairingCodes
}

func newDeviceController(devices DeviceRegistry, codes PairingCodes) *DeviceController {
	return &DeviceController{devices: devices, codes: codes}
}

// PairingModule mounts the unauthenticated endpoints called by the feeder firmware.
func PairingModule(devices DeviceRegistry, codes PairingCodes) api.Module {
	ctl := newDeviceController(devices, codes)
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_POST("/register", ctl.registerPairingCode)
	})
}

// registerPairingCode checks that the feeder isn’t already paired and stores
// its pairing code in Redis until a user claims it.
func (d *DeviceController) registerPairingCode(ctx *gin.Context) (any, *api.APIError) {
	var request packets.RegisterPairingCodeRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	isPaired, err := d.devices.IsFeederPairedByDeviceID(ctx, request.DeviceID)
	if err != nil {
		log.Error().Err(err).Str("device_id", request.DeviceID).Msg("could not check pairing state")
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not check pairing state"}
	}
	if isPaired {
		log.Warn().Str("device_id", request.DeviceID).Msg("feeder is already paired")
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "Feeder is already paired"}
	}

	if err := d.codes.StorePairingCode(ctx, request.PairingCode, request.DeviceID, PairingCodeTTL); err != nil {
		return nil, &api.APIError{Code: http.StatusInternalServerError, Message: "could not store pairing code"}
	}

	return packets.RegisterPairingCodeResponse{
		DeviceID:  request.DeviceID,
		ExpiresIn: int(PairingCodeTTL.Seconds()),
	}, nil
}
