package project

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_UnmarshalTimestamps(t *testing.T) {
	cases := []struct {
		name string
		ts   string
		want time.Time
	}{
		{"rfc3339", "2024-05-01T10:00:00Z", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"offset", "2024-05-01T12:00:00+02:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"local", "2024-05-01T10:00:00", time.Date(2024, 5, 1, 10, 0, 0, 0, time.Local)},
		{"local micros", "2024-05-01T10:00:00.123456", time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.Local)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var s Snapshot
			require.NoError(t, json.Unmarshal([]byte(`{"timestamp":"`+tc.ts+`","projects":[{"name":"a","category":"Web Development"}]}`), &s))
			assert.True(t, tc.want.Equal(s.CapturedAt), "got %v", s.CapturedAt)
			require.Len(t, s.Records, 1)
			assert.Equal(t, WebDevelopment, s.Records[0].Category)
		})
	}
}

func TestSnapshot_UnmarshalRejectsGarbage(t *testing.T) {
	var s Snapshot
	assert.Error(t, json.Unmarshal([]byte(`{"timestamp":"yesterday","projects":[]}`), &s))
	assert.Error(t, json.Unmarshal([]byte(`[]`), &s))
}

func TestSnapshot_RoundTrip(t *testing.T) {
	in := Snapshot{CapturedAt: time.Date(2024, 5, 1, 10, 0, 0, 5, time.UTC), Records: []Record{{Name: "a"}}}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	var out Snapshot
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, in.CapturedAt.Equal(out.CapturedAt))
	assert.Equal(t, in.Records, out.Records)
}
