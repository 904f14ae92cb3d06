package mqtt

// maxPayloadSize caps outgoing messages. A check result carries the matches
// for one text, which stays far below it.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to accept it.
//
// Check results go to Topics.CheckResult unretained; the engine status is
// retained on Topics.EngineStatus so that late subscribers see it.
//
//	err := client.Publish(mqtt.Topics{}.CheckResult(id), payload, 1, false)
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return &TopicError{Op: OpPublish, Topic: topic, Err: ErrPayloadTooLarge}
	}
	if err := c.usable(); err != nil {
		return err
	}

	if err := wait(c.paho.Publish(topic, qos, retained, payload), defaultPublishTimeout); err != nil {
		return &TopicError{Op: OpPublish, Topic: topic, Err: err}
	}
	return nil
}

func validate(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}
