package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

const (
	commandTopicFmt = "feeder/%s/commands"
	statusTopic     = "feeder/+/status"
	commandQoS      = 1
	publishTimeout  = 5 * time.Second
)

// ErrPublishTimeout is returned when the broker does not acknowledge a command in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

// Command types understood by the feeder firmware.
const (
	CommandFeed       = "feed"
	CommandMealConfig = "meal_config"
)

// Command is the JSON payload published on a feeder's command topic.
type Command struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Source     string            `json:"source,omitempty"`
	MealTime   string            `json:"meal_time,omitempty"`
	MealConfig *model.MealConfig `json:"meal_config,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

// FeedCommand asks the device to serve one meal.
func FeedCommand(source string, mealTime *model.MealTime, now time.Time) Command {
	cmd := Command{ID: uuid.NewString(), Type: CommandFeed, Source: source, Timestamp: now.Unix()}
	if mealTime != nil {
		cmd.MealTime = mealTime.String()
	}
	return cmd
}

// MealConfigCommand pushes the automatic schedule so the device keeps feeding offline.
func MealConfigCommand(cfg model.MealConfig, now time.Time) Command {
	return Command{ID: uuid.NewString(), Type: CommandMealConfig, MealConfig: &cfg, Timestamp: now.Unix()}
}

// DeviceBus publishes commands to feeders and listens to their status reports.
type DeviceBus struct {
	client mqtt.Client
}

// ConnectDeviceBus connects a shared MQTT client to brokerURL.
func ConnectDeviceBus(brokerURL, clientID string) (*DeviceBus, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		log.Debug().Str("topic", msg.Topic()).Bytes("payload", msg.Payload()).Msg("unrouted mqtt message")
	})
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", brokerURL).Msg("connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}
	return NewDeviceBus(client), nil
}

func NewDeviceBus(client mqtt.Client) *DeviceBus {
	return &DeviceBus{client: client}
}

// SendCommand publishes cmd to the device's command topic and waits for the broker ack.
func (b *DeviceBus) SendCommand(deviceID string, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	topic := fmt.Sprintf(commandTopicFmt, deviceID)
	token := b.client.Publish(topic, commandQoS, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("feeder %s: %w", deviceID, ErrPublishTimeout)
	}
	if token.Error() != nil {
		return fmt.Errorf("failed to send command to feeder %s: %w", deviceID, token.Error())
	}

	log.Info().Str("device_id", deviceID).Str("type", cmd.Type).Str("command_id", cmd.ID).Msg("command sent to feeder")
	return nil
}

// SubscribeStatus calls handler for every status report published by a feeder.
func (b *DeviceBus) SubscribeStatus(handler func(deviceID string, payload []byte)) error {
	token := b.client.Subscribe(statusTopic, commandQoS, func(_ mqtt.Client, msg mqtt.Message) {
		deviceID, ok := deviceFromTopic(msg.Topic())
		if !ok {
			log.Warn().Str("topic", msg.Topic()).Msg("status on unexpected topic")
			return
		}
		handler(deviceID, msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", statusTopic, token.Error())
	}
	return nil
}

// Close disconnects from the broker.
func (b *DeviceBus) Close() {
	b.client.Disconnect(250)
	log.Info().Msg("MQTT client disconnected")
}

// feeder/<device>/status
func deviceFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "feeder" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
