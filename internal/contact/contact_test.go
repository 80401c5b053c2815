package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/folio/internal/history"
	"github.com/loykin/folio/internal/store"
	"github.com/loykin/folio/internal/store/memory"
)

type notifyRecorder struct {
	mu  sync.Mutex
	ids []string
	err error
}

func (n *notifyRecorder) Notify(_ context.Context, e Entry) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, e.ID)
	return n.err
}

type sinkRecorder struct {
	mu     sync.Mutex
	events []history.Event
}

func (s *sinkRecorder) Send(_ context.Context, e history.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

type brokenStore struct{ store.Store }

func (brokenStore) Put(context.Context, string, []byte) error { return errors.New("read-only") }

func TestMessage_Validate(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want error
	}{
		{"ok", Message{Name: "Ada", Email: "ada@example.com", Message: "hi"}, nil},
		{"named address", Message{Name: "Ada", Email: "Ada <ada@example.com>", Message: "hi"}, nil},
		{"missing name", Message{Email: "ada@example.com", Message: "hi"}, ErrMissingField},
		{"blank message", Message{Name: "Ada", Email: "ada@example.com", Message: "   "}, ErrMissingField},
		{"missing email", Message{Name: "Ada", Message: "hi"}, ErrMissingField},
		{"bad email", Message{Name: "Ada", Email: "not-an-address", Message: "hi"}, ErrInvalidEmail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSubmit_AppendsToLog(t *testing.T) {
	st := memory.New()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := &notifyRecorder{}
	sink := &sinkRecorder{}
	b, err := NewBook(Config{Store: st, Notifier: n, Sink: sink, Now: func() time.Time { return now }})
	require.NoError(t, err)

	e1, err := b.Submit(context.Background(), Message{Name: " Ada ", Email: "ada@example.com", Message: "first"})
	require.NoError(t, err)
	_, err = b.Submit(context.Background(), Message{Name: "Bob", Email: "bob@example.com", Message: "second"})
	require.NoError(t, err)

	assert.Equal(t, "Ada", e1.Name)
	assert.NotEmpty(t, e1.ID)
	assert.True(t, e1.Timestamp.Equal(now))

	raw, err := st.Get(context.Background(), DefaultKey)
	require.NoError(t, err)
	var stored []Entry
	require.NoError(t, json.Unmarshal(raw, &stored))
	require.Len(t, stored, 2)
	assert.Equal(t, "first", stored[0].Message)
	assert.Equal(t, "second", stored[1].Message)

	assert.Len(t, n.ids, 2)
	require.Len(t, sink.events, 2)
	assert.Equal(t, history.EventContact, sink.events[1].Type)
	assert.Equal(t, 2, sink.events[1].Count)
}

func TestSubmit_RejectsInvalid(t *testing.T) {
	st := memory.New()
	b, err := NewBook(Config{Store: st})
	require.NoError(t, err)

	_, err = b.Submit(context.Background(), Message{Name: "Ada"})
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = st.Get(context.Background(), DefaultKey)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSubmit_CorruptLogStartsOver(t *testing.T) {
	st := memory.New()
	require.NoError(t, st.Put(context.Background(), DefaultKey, []byte("{garbage")))
	b, err := NewBook(Config{Store: st})
	require.NoError(t, err)

	_, err = b.Submit(context.Background(), Message{Name: "Ada", Email: "ada@example.com", Message: "hi"})
	require.NoError(t, err)
	assert.Len(t, b.Entries(context.Background()), 1)
}

func TestSubmit_NotifierErrorIsNotFatal(t *testing.T) {
	b, err := NewBook(Config{Store: memory.New(), Notifier: &notifyRecorder{err: errors.New("smtp down")}})
	require.NoError(t, err)
	_, err = b.Submit(context.Background(), Message{Name: "Ada", Email: "ada@example.com", Message: "hi"})
	assert.NoError(t, err)
}

func TestSubmit_StoreFailure(t *testing.T) {
	b, err := NewBook(Config{Store: brokenStore{memory.New()}})
	require.NoError(t, err)
	_, err = b.Submit(context.Background(), Message{Name: "Ada", Email: "ada@example.com", Message: "hi"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingField)
}

func TestSubmit_Concurrent(t *testing.T) {
	b, err := NewBook(Config{Store: memory.New()})
	require.NoError(t, err)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := b.Submit(context.Background(), Message{
				Name:    fmt.Sprintf("user%d", i),
				Email:   fmt.Sprintf("user%d@example.com", i),
				Message: "hello",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	assert.Len(t, b.Entries(context.Background()), n)
}

func TestNewBook_RequiresStore(t *testing.T) {
	_, err := NewBook(Config{})
	assert.Error(t, err)
}
