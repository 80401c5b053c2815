package project

import (
	"encoding/json"
	"fmt"
	"time"
)

// NoDescription replaces an empty upstream description.
const NoDescription = "No description provided."

// Record is a categorized public repository as served by the API.
// Records are values; once categorized they are never modified.
type Record struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Stars       int       `json:"stars"`
	Language    *string   `json:"language"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Category    Category  `json:"category"`
}

// Snapshot is a timestamped, immutable copy of an account's records.
// The JSON form matches the persisted cache file:
//
//	{"timestamp": "2024-05-01T10:00:00Z", "projects": [...]}
type Snapshot struct {
	CapturedAt time.Time `json:"timestamp"`
	Records    []Record  `json:"projects"`
}

// localTimestamp is an ISO 8601 time without a zone offset, such as
// 2024-05-01T10:00:00.123456. A fractional second is accepted when parsing.
const localTimestamp = "2006-01-02T15:04:05"

// UnmarshalJSON accepts RFC 3339 timestamps and zone-less local ones.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var raw struct {
		Timestamp string   `json:"timestamp"`
		Records   []Record `json:"projects"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var at time.Time
	if raw.Timestamp != "" {
		var err error
		at, err = time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			at, err = time.ParseInLocation(localTimestamp, raw.Timestamp, time.Local)
			if err != nil {
				return fmt.Errorf("snapshot timestamp %q: %w", raw.Timestamp, err)
			}
		}
	}
	s.CapturedAt = at
	s.Records = raw.Records
	return nil
}

// Fresh reports whether the snapshot is younger than ttl at now.
func (s *Snapshot) Fresh(now time.Time, ttl time.Duration) bool {
	if s == nil || s.CapturedAt.IsZero() {
		return false
	}
	return now.Sub(s.CapturedAt) < ttl
}

// Clone returns a copy of the records so callers cannot alias snapshot storage.
func (s *Snapshot) Clone() []Record {
	if s == nil {
		return []Record{}
	}
	out := make([]Record, len(s.Records))
	copy(out, s.Records)
	return out
}
