package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// FeedRelay shares attempt summaries between instances over Redis pub/sub.
// Publish sends to quiz:{quizID}:attempts; Run forwards every message from
// those channels into the local feed, including this instance's own.
type FeedRelay struct {
	client *redis.Client
	log    *zap.Logger
}

func NewFeedRelay(client *redis.Client, log *zap.Logger) *FeedRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedRelay{client: client, log: log}
}

var _ app.AttemptPublisher = (*FeedRelay)(nil)

func (r *FeedRelay) Publish(ctx context.Context, summary app.AttemptSummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, attemptsChannel(summary.QuizID), payload).Err(); err != nil {
		return domain.Storage("publish attempt", err)
	}
	return nil
}

// Run blocks until ctx is done, delivering relayed summaries to feed.
func (r *FeedRelay) Run(ctx context.Context, feed *app.AttemptFeed) error {
	sub := r.client.PSubscribe(ctx, attemptsChannel("*"))
	defer sub.Close()
	// wait for the subscription to be confirmed before reporting readiness
	if _, err := sub.Receive(ctx); err != nil {
		return domain.Storage("subscribe attempts", err)
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
			var summary app.AttemptSummary
			if err := json.Unmarshal([]byte(msg.Payload), &summary); err != nil {
				r.log.Warn("drop malformed attempt message", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			feed.Deliver(summary)
		}
	}
}

func attemptsChannel(quizID string) string {
	return "quiz:" + quizID + ":attempts"
}
