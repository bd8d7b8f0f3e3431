package config

import (
	"fmt"
	"strings"
	"time"
)

// SubscriberConfig describes the durable pull consumer that reads product events.
//
// Batch messages are fetched per pull, waiting at most Timeout for them.
// A message that was nacked MaxDeliver times is dropped by the server.
type SubscriberConfig struct {
	Stream     string        `koanf:"stream"`
	Subject    string        `koanf:"subject"`
	Consumer   string        `koanf:"consumer"`
	Batch      int           `koanf:"batch"`
	Timeout    time.Duration `koanf:"timeout"`
	Interval   time.Duration `koanf:"interval"`
	Workers    int           `koanf:"workers"`
	AckWait    time.Duration `koanf:"ackwait"`
	MaxDeliver int           `koanf:"maxdeliver"`
}

const (
	defaultSubscriberAckWait    = 30 * time.Second
	defaultSubscriberMaxDeliver = 5
)

func (c *SubscriberConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- NATS Subscriber ---\n")
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	b.WriteString(fmt.Sprintf("  subject: %s\n", c.Subject))
	b.WriteString(fmt.Sprintf("  consumer: %s\n", c.Consumer))
	b.WriteString(fmt.Sprintf("  batch: %d, workers: %d\n", c.Batch, c.Workers))
	b.WriteString(fmt.Sprintf("  timeout: %s, interval: %s\n", c.Timeout, c.Interval))
	b.WriteString(fmt.Sprintf("  ackwait: %s, maxdeliver: %d\n", c.AckWait, c.MaxDeliver))
	return b.String()
}

// Validate rejects incomplete settings. AckWait and MaxDeliver fall back to
// defaults when unset.
func (c *SubscriberConfig) Validate() error {
	switch {
	case c.Stream == "":
		return fmt.Errorf("subscriber: stream is not configured")
	case c.Subject == "":
		return fmt.Errorf("subscriber: subject is not configured")
	case c.Consumer == "":
		return fmt.Errorf("subscriber: consumer is not configured")
	case c.Batch <= 0:
		return fmt.Errorf("subscriber: batch must be greater than zero")
	case c.Timeout <= 0:
		return fmt.Errorf("subscriber: timeout must be greater than zero")
	case c.Interval <= 0:
		return fmt.Errorf("subscriber: interval must be greater than zero")
	case c.Workers <= 0:
		return fmt.Errorf("subscriber: workers must be greater than zero")
	case c.MaxDeliver < 0:
		return fmt.Errorf("subscriber: maxdeliver must not be negative")
	}
	if c.AckWait <= 0 {
		c.AckWait = defaultSubscriberAckWait
	}
	if c.MaxDeliver == 0 {
		c.MaxDeliver = defaultSubscriberMaxDeliver
	}
	return nil
}
