// Package kafka publishes and consumes ranking lifecycle events.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

// Event types carried in the message header / envelope.
const (
	EventTypeRankingRequested = "ranking.requested"
	EventTypeRankingCompleted = "ranking.completed"
)

// RankingRequested asks the worker to rank a stored dataset out-of-band.
type RankingRequested struct {
	RequestID        common.ID `json:"request_id"`
	DatasetID        common.ID `json:"dataset_id"`
	Objectives       []string  `json:"objectives"`
	Directions       []string  `json:"directions"`
	IgnoreDuplicates bool      `json:"ignore_duplicates"`
	RequestedAt      time.Time `json:"requested_at"`
}

// RankingCompleted announces a finished ranking run, successful or not.
type RankingCompleted struct {
	RequestID   common.ID `json:"request_id,omitempty"`
	RankingID   common.ID `json:"ranking_id,omitempty"`
	DatasetID   common.ID `json:"dataset_id"`
	RowCount    int       `json:"row_count"`
	DroppedRows int       `json:"dropped_rows"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// envelope is the wire form: a type tag plus the event payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeEvent wraps an event payload in its typed envelope.
func EncodeEvent(eventType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event payload")
	}
	data, err := json.Marshal(envelope{Type: eventType, Payload: raw})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode event envelope")
	}
	return data, nil
}

// DecodeEvent splits a wire message into its type tag and raw payload.
func DecodeEvent(data []byte) (string, json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode event envelope")
	}
	if env.Type == "" {
		return "", nil, errors.New(errors.ErrCodeSerialization, "event envelope has no type")
	}
	return env.Type, env.Payload, nil
}
