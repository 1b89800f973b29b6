package packets

type RegisterPairingCodeResponse struct {
	DeviceID  string `json:"device_id"`
	ExpiresIn int    `json:"expires_in"` // seconds
}
