package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"routing_gateway/internal/logging"
)

// RedisRuleNotifier broadcasts rule-set changes between gateway replicas
// over Redis Pub/Sub. Each replica ignores its own announcements.
type RedisRuleNotifier struct {
	client     redis.UniversalClient
	channel    string
	instanceID string
	logger     *logging.Logger
}

// NewRedisRuleNotifier creates a notifier publishing on channel
func NewRedisRuleNotifier(client redis.UniversalClient, channel string) *RedisRuleNotifier {
	return &RedisRuleNotifier{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		logger:     logging.NewLogger("rule-notifier"),
	}
}

// NotifyRulesChanged announces that the stored rule set was modified
func (n *RedisRuleNotifier) NotifyRulesChanged(ctx context.Context) error {
	if err := n.client.Publish(ctx, n.channel, n.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to publish rule change: %w", err)
	}
	return nil
}

// Subscribe calls onChange for every change announced by another replica
// until ctx is cancelled. ready, if non-nil, is closed once the subscription
// is active.
func (n *RedisRuleNotifier) Subscribe(ctx context.Context, ready chan<- struct{}, onChange func(context.Context)) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.channel, err)
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if msg.Payload == n.instanceID {
				continue
			}
			n.logger.Debug("Rule change announced", "from", msg.Payload)
			onChange(ctx)
		}
	}
}
