package mqtt

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"chainode/config"
)

// Deliveries are at-least-once; duplicate delivery is handled downstream by
// the ledger's idempotent append.
const qos = 1

// Client is a thin shim over the paho client exposing just publish and
// subscribe to the node.
type Client struct {
	client mqtt.Client

	logger *zap.SugaredLogger
}

func Connect(cfg *config.MQTTConfig) (*Client, error) {
	options := mqtt.NewClientOptions()
	options.AddBroker(cfg.Broker)
	options.SetUsername(cfg.User)
	options.SetPassword(cfg.Password)
	options.SetCleanSession(false)
	options.SetAutoReconnect(true)

	client := mqtt.NewClient(options)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	return &Client{
		client: client,

		logger: zap.S().Named("[mqtt]"),
	}, nil
}

func (c *Client) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, qos, false, payload)
	token.Wait()
	return token.Error()
}

func (c *Client) Subscribe(topic string, handler func(topic string, payload []byte)) error {
	token := c.client.Subscribe(topic, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

func (c *Client) Unsubscribe(topic string) error {
	token := c.client.Unsubscribe(topic)
	token.Wait()
	return token.Error()
}

func (c *Client) Close() {
	c.client.Disconnect(250)
	c.logger.Info("MQTT client disconnected")
}
