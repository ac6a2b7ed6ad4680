package node

// Transport is the pub/sub seam the node drives. The production
// implementation is the MQTT client; tests run an in-process loopback bus.
type Transport interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(topic string, payload []byte)) error
	Unsubscribe(topic string) error
}
