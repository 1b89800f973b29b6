package middleware

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/miautomatic/internal/model"
)

// Requires a running MQTT broker; set TEST_MQTT_BROKER (e.g. tcp://localhost:1883).
func TestDeviceBus_Broker(t *testing.T) {
	broker := os.Getenv("TEST_MQTT_BROKER")
	if broker == "" {
		t.Skip("TEST_MQTT_BROKER not set, skipping broker test")
	}

	bus, err := ConnectDeviceBus(broker, "miautomatic-test")
	if err != nil {
		t.Skipf("MQTT broker not available, skipping test: %v", err)
	}
	defer bus.Close()

	got := make(chan string, 1)
	require.NoError(t, bus.SubscribeStatus(func(deviceID string, _ []byte) { got <- deviceID }))

	require.NoError(t, bus.SendCommand("test-device-123", FeedCommand(model.SourceManual, nil, time.Now())))

	token := bus.client.Publish("feeder/test-device-123/status", 1, false, []byte(`{"online":true}`))
	token.Wait()
	require.NoError(t, token.Error())

	select {
	case id := <-got:
		require.Equal(t, "test-device-123", id)
	case <-time.After(5 * time.Second):
		t.Fatal("no status report received")
	}
}
