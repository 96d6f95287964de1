package events

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"checkpoint/internal/platform/config"
	"checkpoint/internal/platform/kafka"
)

// KafkaDialer returns a Dialer that builds a franz-go client and pings the
// cluster before handing it out. With cfg.CreateTopics set, the event topics
// are provisioned on every successful dial.
func KafkaDialer(cfg config.KafkaConfig, extra ...kgo.Opt) Dialer {
	return func(ctx context.Context) (Producer, error) {
		client, err := kafka.NewClient(cfg, extra...)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("ping brokers: %w", err)
		}
		if cfg.CreateTopics {
			if err := kafka.EnsureTopics(ctx, client, cfg); err != nil {
				client.Close()
				return nil, err
			}
		}
		return client, nil
	}
}

// TopicsFromConfig maps the kafka section onto publisher topics.
func TopicsFromConfig(cfg config.KafkaConfig) Topics {
	return Topics{
		Registration: cfg.RegistrationTopic,
		Notification: cfg.NotificationTopic,
		Error:        cfg.ErrorTopic,
	}
}
