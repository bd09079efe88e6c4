package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const publishTimeout = 5 * time.Second

// Publisher broadcasts events on a Redis Pub/Sub channel so out-of-process
// consumers (dashboards, alerting) can follow submission outcomes.
type Publisher struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a Redis-backed event publisher.
func NewPublisher(client *redis.Client, channel string) *Publisher {
	return &Publisher{client: client, channel: channel}
}

// Publish serializes and broadcasts one event. Errors are logged and
// swallowed: event delivery is best-effort.
func (p *Publisher) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("Failed to serialize event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.WithError(err).WithField("channel", p.channel).Warn("Failed to publish event")
		return
	}

	log.WithFields(log.Fields{
		"channel": p.channel,
		"type":    event.Type,
	}).Debug("Event published")
}
