package analysis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/molrank/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
)

// NewEventHandler adapts the service to the consumer: ranking.requested events
// run the same ranking path as the API.  Run failures are announced on the
// completed topic with the error set, then swallowed, since redelivering a
// request that failed deterministically would fail again.
func NewEventHandler(s *Service) kafka.Handler {
	return func(ctx context.Context, eventType string, payload json.RawMessage) error {
		if eventType != kafka.EventTypeRankingRequested {
			s.logger.Debug("ignoring event", logging.String("event_type", eventType))
			return nil
		}

		var ev kafka.RankingRequested
		if err := json.Unmarshal(payload, &ev); err != nil {
			return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode ranking request")
		}

		req := RankRequest{
			RequestID:        ev.RequestID,
			Objectives:       ev.Objectives,
			Directions:       ev.Directions,
			IgnoreDuplicates: &ev.IgnoreDuplicates,
		}
		if _, err := s.RankDataset(ctx, ev.DatasetID, req); err != nil {
			s.logger.Error("requested ranking failed",
				logging.String("request_id", ev.RequestID.String()),
				logging.String("dataset_id", ev.DatasetID.String()),
				logging.Err(err))
			s.publishFailed(ctx, ev, err)
		}
		return nil
	}
}

func (s *Service) publishFailed(ctx context.Context, ev kafka.RankingRequested, runErr error) {
	if s.events == nil {
		return
	}
	completed := kafka.RankingCompleted{
		RequestID:   ev.RequestID,
		DatasetID:   ev.DatasetID,
		Error:       runErr.Error(),
		CompletedAt: time.Now().UTC(),
	}
	if err := s.events.PublishRankingCompleted(ctx, completed); err != nil {
		s.logger.Warn("failed to publish ranking failure", logging.Err(err))
	}
}
