package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

const (
	// KindDaily asks the worker to record today's snapshots for one user.
	KindDaily = "daily"
	// KindBackfill asks the worker to synthesize Days of history.
	KindBackfill = "backfill"
)

// SnapshotRequest carries only the coordinates of the work; the worker
// loads accounts and balances from the database when it runs.
type SnapshotRequest struct {
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	Days      int       `json:"days,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDailyRequest builds a daily snapshot request for one user.
func NewDailyRequest(userID string) *SnapshotRequest {
	return &SnapshotRequest{
		UserID:    userID,
		Kind:      KindDaily,
		Timestamp: time.Now(),
	}
}

// NewBackfillRequest builds a history backfill request covering days
// days back plus today.
func NewBackfillRequest(userID string, days int) *SnapshotRequest {
	return &SnapshotRequest{
		UserID:    userID,
		Kind:      KindBackfill,
		Days:      days,
		Timestamp: time.Now(),
	}
}

func (m *SnapshotRequest) Validate() error {
	if m.UserID == "" {
		return errors.New("missing user id")
	}
	switch m.Kind {
	case KindDaily:
		return nil
	case KindBackfill:
		if m.Days <= 0 {
			return errors.New("backfill requires a positive day count")
		}
		return nil
	default:
		return errors.New("unknown request kind: " + m.Kind)
	}
}

// ToJSON converts the request to JSON bytes.
func (m *SnapshotRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SnapshotRequestFromJSON parses a request from JSON bytes.
func SnapshotRequestFromJSON(data []byte) (*SnapshotRequest, error) {
	var msg SnapshotRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
