package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/folio/internal/history"
)

func TestSQLiteSink_SendAndCount(t *testing.T) {
	ctx := context.Background()
	sink, err := New("sqlite://" + filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer func() { _ = sink.Close() }()

	e := history.NewEvent(history.EventRefresh, time.Now())
	e.Account = "octo"
	e.Count = 2
	require.NoError(t, sink.Send(ctx, e))
	require.NoError(t, sink.Send(ctx, history.NewEvent(history.EventShutdown, time.Now())))
	require.NoError(t, sink.Send(ctx, history.NewEvent(history.EventRefresh, time.Now())))

	n, err := sink.Count(ctx, history.EventRefresh)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = sink.Count(ctx, history.EventContact)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	_, err := New("   ")
	assert.Error(t, err)
}
