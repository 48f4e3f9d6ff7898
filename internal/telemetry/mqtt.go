package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/mayele-labs/mems_logger/internal/imu"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
const disconnectQuiesce = 250

// Connect opens an MQTT client session to broker.
func Connect(broker, clientID string, logger *zap.SugaredLogger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect to %s: %w", broker, token.Error())
	}
	logger.Infof("connected to MQTT broker at %s", broker)
	return client, nil
}

// Publisher sends each emitted sample to one topic, retained at QoS 0 so
// late subscribers see the latest reading.
type Publisher struct {
	client mqtt.Client
	topic  string
}

// NewPublisher publishes on topic through client.
func NewPublisher(client mqtt.Client, topic string) *Publisher {
	return &Publisher{client: client, topic: topic}
}

// Publish encodes s and hands it to the client.
func (p *Publisher) Publish(ctx context.Context, s imu.MotionSample, at time.Time) error {
	payload, err := json.Marshal(NewPayload(s, at))
	if err != nil {
		return fmt.Errorf("encode sample payload: %w", err)
	}
	token := p.client.Publish(p.topic, 0, true, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects the underlying client.
func (p *Publisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)
	return nil
}

// Subscribe delivers every decodable payload on topic to handle. Messages
// that fail to decode are logged and skipped.
func Subscribe(client mqtt.Client, topic string, logger *zap.SugaredLogger, handle func(Payload)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		p, err := DecodePayload(msg.Payload())
		if err != nil {
			logger.Warnw("MQTT payload unmarshal error", "topic", msg.Topic(), "error", err)
			return
		}
		handle(p)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	logger.Infof("subscribed to MQTT topic %s", topic)
	return nil
}
