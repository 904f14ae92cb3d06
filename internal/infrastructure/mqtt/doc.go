// Package mqtt connects langcheckd to an MQTT broker.
//
// The broker is how other processes on the host reach the checker without
// linking against it: they publish a request on langcheck/check/request and
// read the answer from langcheck/check/result/{id}. The daemon keeps a
// retained status on langcheck/system/status (online, offline, or the
// broker-published last will after a crash) and the engine state on
// langcheck/system/engine.
//
// Subscriptions are tracked and restored after auto-reconnect.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.CheckRequest(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
package mqtt
