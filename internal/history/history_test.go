package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewEvent(t *testing.T) {
	loc := time.FixedZone("x", 3600)
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, loc)
	e := NewEvent(EventRefresh, at)
	assert.Equal(t, EventRefresh, e.Type)
	assert.Equal(t, time.UTC, e.OccurredAt.Location())
	assert.True(t, e.OccurredAt.Equal(at))
	assert.Len(t, e.ID, 36)
	assert.NotEqual(t, e.ID, NewEvent(EventRefresh, at).ID)
}

func TestOrNop(t *testing.T) {
	s := OrNop(nil)
	assert.IsType(t, Nop{}, s)
	assert.NoError(t, s.Send(context.Background(), Event{}))
}
