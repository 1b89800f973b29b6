package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/feeding"
	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// ErrCodeNotFound is returned for unknown or expired pairing codes.
var ErrCodeNotFound = errors.New("pairing code not found")

const (
	pairingPrefix    = "pairing:"
	mealConfigPrefix = "mealConfig:"
)

type Client struct {
	rdb *redis.Client
}

func NewClient(address, username, password string) *Client {
	return &Client{rdb: redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})}
}

// Wrap uses an existing go-redis client.
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// StorePairingCode remembers which device announced code until ttl expires.
func (c *Client) StorePairingCode(ctx context.Context, code, deviceID string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, pairingPrefix+code, deviceID, ttl).Err(); err != nil {
		log.Error().Err(err).Str("device_id", deviceID).Msg("failed to store pairing code")
		return err
	}
	return nil
}

// ResolvePairingCode returns the device that registered code.
func (c *Client) ResolvePairingCode(ctx context.Context, code string) (string, error) {
	deviceID, err := c.rdb.Get(ctx, pairingPrefix+code).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCodeNotFound
	}
	return deviceID, err
}

func (c *Client) DeletePairingCode(ctx context.Context, code string) error {
	return c.rdb.Del(ctx, pairingPrefix+code).Err()
}

// CachedConfigs is a read-through cache in front of another ConfigRepository.
// Cache failures are logged and fall through to the backing repository.
type CachedConfigs struct {
	client  *Client
	backing feeding.ConfigRepository
	ttl     time.Duration
}

var _ feeding.ConfigRepository = (*CachedConfigs)(nil)

func NewCachedConfigs(client *Client, backing feeding.ConfigRepository, ttl time.Duration) *CachedConfigs {
	return &CachedConfigs{client: client, backing: backing, ttl: ttl}
}

func mealConfigKey(feederID int) string {
	return fmt.Sprintf("%s%d", mealConfigPrefix, feederID)
}

func (c *CachedConfigs) Load(ctx context.Context, feederID int) (model.MealConfig, error) {
	key := mealConfigKey(feederID)
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cfg model.MealConfig
		if jerr := json.Unmarshal(raw, &cfg); jerr == nil {
			return cfg, nil
		}
		log.Warn().Str("key", key).Msg("discarding unreadable cached meal config")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("key", key).Msg("meal config cache read failed")
	}

	cfg, err := c.backing.Load(ctx, feederID)
	if err != nil {
		return model.MealConfig{}, err
	}
	c.put(ctx, key, cfg)
	return cfg, nil
}

func (c *CachedConfigs) Save(ctx context.Context, feederID int, cfg model.MealConfig) error {
	if err := c.backing.Save(ctx, feederID, cfg); err != nil {
		return err
	}
	c.put(ctx, mealConfigKey(feederID), cfg)
	return nil
}

// Invalidate drops the cached copy, e.g. after a slot was marked fed.
func (c *CachedConfigs) Invalidate(ctx context.Context, feederID int) {
	if err := c.client.rdb.Del(ctx, mealConfigKey(feederID)).Err(); err != nil {
		log.Warn().Err(err).Int("feeder_id", feederID).Msg("meal config cache invalidation failed")
	}
}

func (c *CachedConfigs) put(ctx context.Context, key string, cfg model.MealConfig) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("meal config cache write failed")
	}
}
