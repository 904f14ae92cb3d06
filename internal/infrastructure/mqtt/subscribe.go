package mqtt

import "errors"

// Subscribe registers handler for topic, which may contain + and #
// wildcards, and waits for the broker's acknowledgement. The subscription
// is restored after every reconnect until Unsubscribe removes it.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := validate(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return &TopicError{Op: OpSubscribe, Topic: topic, Err: errors.New("nil handler")}
	}
	if err := c.usable(); err != nil {
		return err
	}

	c.mu.Lock()
	c.subscriptions[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if err := wait(c.paho.Subscribe(topic, qos, c.dispatch(handler)), defaultPublishTimeout); err != nil {
		c.mu.Lock()
		delete(c.subscriptions, topic)
		c.mu.Unlock()
		return &TopicError{Op: OpSubscribe, Topic: topic, Err: err}
	}
	return nil
}

// Unsubscribe stops delivery for topic. Messages already in flight may
// still reach the handler.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if err := c.usable(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.subscriptions, topic)
	c.mu.Unlock()

	if err := wait(c.paho.Unsubscribe(topic), defaultPublishTimeout); err != nil {
		return &TopicError{Op: OpUnsubscribe, Topic: topic, Err: err}
	}
	return nil
}

// SubscriptionCount returns the number of subscriptions restored on reconnect.
func (c *Client) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions)
}

// HasSubscription reports whether exactly topic is subscribed.
func (c *Client) HasSubscription(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subscriptions[topic]
	return ok
}
