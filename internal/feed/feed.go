package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/bracket"
	"github.com/JSKJSR/Qwizzeria-Quiz-sub000/internal/metrics"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	eventMetadataKey = "event"
	matchUpdated     = "match_updated"
)

// Feed is an in-process change feed of committed match rows, one topic per
// tournament. Delivery order between messages is not guaranteed.
type Feed struct {
	pubsub  *gochannel.GoChannel
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(buffer int64, logger *slog.Logger, m *metrics.Metrics) *Feed {
	return &Feed{
		pubsub:  gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: buffer}, watermill.NewSlogLogger(logger)),
		logger:  logger,
		metrics: m,
	}
}

func topic(tournamentID uuid.UUID) string {
	return "tournament." + tournamentID.String()
}

// PublishMatch pushes the full row snapshot of m to the tournament's
// subscribers.
func (f *Feed) PublishMatch(m bracket.Match) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode match %s: %w", m.ID, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventMetadataKey, matchUpdated)
	if err := f.pubsub.Publish(topic(m.TournamentID), msg); err != nil {
		f.metrics.FeedEvent("failed")
		return fmt.Errorf("failed to publish match %s: %w", m.ID, err)
	}

	f.logger.Debug("match published",
		slog.String("tournament_id", m.TournamentID.String()),
		slog.String("match", m.Position().String()),
		slog.Int("version", m.Version),
	)
	f.metrics.FeedEvent("published")
	return nil
}

// Subscribe streams row snapshots for one tournament until ctx is cancelled,
// at which point the returned channel is closed.
func (f *Feed) Subscribe(ctx context.Context, tournamentID uuid.UUID) (<-chan bracket.Match, error) {
	messages, err := f.pubsub.Subscribe(ctx, topic(tournamentID))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to tournament %s: %w", tournamentID, err)
	}

	out := make(chan bracket.Match)
	go func() {
		defer close(out)
		for msg := range messages {
			var m bracket.Match
			if err := json.Unmarshal(msg.Payload, &m); err != nil {
				f.logger.Error("dropping undecodable match event", slog.String("message_id", msg.UUID), slog.Any("error", err))
				f.metrics.FeedEvent("dropped")
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (f *Feed) Close() error {
	return f.pubsub.Close()
}
