// Package trigger starts dispatch runs from Pub/Sub messages, so that a
// Cloud Scheduler job or any publisher can kick the worker.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"notify-dispatcher/internal/notification/scheduler"

	"cloud.google.com/go/pubsub"
	"github.com/wb-go/wbf/zlog"
	"google.golang.org/api/option"
)

// TriggerMessage is the optional JSON body of a trigger message.
// An empty body is a plain run.
type TriggerMessage struct {
	DryRun bool `json:"dryRun"`
}

type Service struct {
	pubsubClient *pubsub.Client
	runner       scheduler.Runner
	topicName    string
	subName      string
}

func NewService(ctx context.Context, projectID, topicName string, runner scheduler.Runner, opts ...option.ClientOption) (*Service, error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}

	return &Service{
		pubsubClient: client,
		runner:       runner,
		topicName:    topicName,
		subName:      topicName + "-sub", // Convention: topic-sub
	}, nil
}

// Start blocks receiving trigger messages until ctx is done
func (s *Service) Start(ctx context.Context) error {
	zlog.Logger.Info().Str("component", "trigger").Str("topic", s.topicName).Str("subscription", s.subName).
		Msg("starting pubsub trigger")

	sub := s.pubsubClient.Subscription(s.subName)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return fmt.Errorf("check subscription: %w", err)
	}

	if !exists {
		topic := s.pubsubClient.Topic(s.topicName)
		topicExists, err := topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("check topic: %w", err)
		}
		if !topicExists {
			return fmt.Errorf("topic %s does not exist, cannot create subscription", s.topicName)
		}

		sub, err = s.pubsubClient.CreateSubscription(ctx, s.subName, pubsub.SubscriptionConfig{
			Topic:       topic,
			AckDeadline: 60 * time.Second,
		})
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		zlog.Logger.Info().Str("component", "trigger").Str("subscription", s.subName).Msg("created subscription")
	}

	// One run at a time per process
	sub.ReceiveSettings.MaxOutstandingMessages = 1

	err = sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if err := s.handleMessage(ctx, msg.Data); err != nil {
			zlog.Logger.Error().Err(err).Str("component", "trigger").Str("message_id", msg.ID).Msg("triggered run failed")
		}
		// Always acked; whatever a failed run left queued is picked up by the next trigger
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.pubsubClient.Close()
}

func (s *Service) handleMessage(ctx context.Context, data []byte) error {
	var trigger TriggerMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &trigger); err != nil {
			zlog.Logger.Warn().Err(err).Str("component", "trigger").Msg("ignoring malformed trigger body")
			trigger = TriggerMessage{}
		}
	}

	stats, err := s.runner.Run(ctx, scheduler.RunOptions{DryRun: trigger.DryRun})
	if err != nil {
		return err
	}

	zlog.Logger.Info().Str("component", "trigger").Str("run_id", stats.RunID).Int("processed", stats.Processed).
		Msg("triggered run finished")
	return nil
}
