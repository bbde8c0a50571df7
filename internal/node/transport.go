package node

import (
	"github.com/nerrad567/gray-logic-touchnode/internal/infrastructure/mqtt"
)

// Transport is everything the node needs from the messaging client.
type Transport interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error
	Unsubscribe(topic string) error
	IsConnected() bool
	SetOnConnect(callback func())
	SetOnDisconnect(callback func(err error))
}

// mqttTransport adapts *mqtt.Client to Transport.
type mqttTransport struct {
	*mqtt.Client
}

// MQTT adapts an MQTT client for use as the node's transport.
func MQTT(c *mqtt.Client) Transport {
	return mqttTransport{Client: c}
}

// Subscribe converts the handler to the client's MessageHandler type.
func (t mqttTransport) Subscribe(topic string, qos byte, handler func(topic string, payload []byte) error) error {
	return t.Client.Subscribe(topic, qos, mqtt.MessageHandler(handler))
}
