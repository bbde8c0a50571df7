// Package mqtt provides the node's MQTT transport.
//
// This package manages:
//   - Connection to the broker with the client's own auto-reconnect
//   - Message publishing with QoS and timeouts
//   - Topic subscriptions for the current (clean) session
//   - Last Will and Testament on touchnode/{node_id}/status
//
// Subscriptions are not restored automatically after a reconnect. The node's
// connectivity monitor is told about every connection loss through
// SetOnDisconnect and asks the actuator to subscribe again.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Node.ID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("RED_APP_STATUS", 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("received %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.Publish("ORANGE_APP_STATUS", []byte("on"), 1, false)
package mqtt
