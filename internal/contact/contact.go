package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/loykin/folio/internal/history"
	"github.com/loykin/folio/internal/metrics"
	"github.com/loykin/folio/internal/store"
)

// DefaultKey is the store key holding the message log.
const DefaultKey = "messages"

// Validation errors. Their text is returned to the submitting client.
var (
	ErrMissingField = errors.New("All fields are required")
	ErrInvalidEmail = errors.New("Please enter a valid email address")
)

// Message is a contact form submission.
type Message struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validate checks that every field is present and the address parses.
func (m Message) Validate() error {
	if strings.TrimSpace(m.Name) == "" || strings.TrimSpace(m.Email) == "" || strings.TrimSpace(m.Message) == "" {
		return ErrMissingField
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// Entry is a stored message.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
}

// Notifier is told about every accepted message. Delivery errors are logged
// and never fail the submission.
type Notifier interface {
	Notify(ctx context.Context, e Entry) error
}

// LogNotifier writes one log line per message.
type LogNotifier struct{ Logger *slog.Logger }

func (n LogNotifier) Notify(_ context.Context, e Entry) error {
	l := n.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("contact message received", "id", e.ID, "name", e.Name, "email", e.Email)
	return nil
}

type Config struct {
	Key      string
	Store    store.Store
	Notifier Notifier
	Sink     history.Sink
	Now      func() time.Time
	Logger   *slog.Logger
}

// Book appends contact messages to a JSON array kept in a store.
type Book struct {
	key      string
	store    store.Store
	notifier Notifier
	sink     history.Sink
	now      func() time.Time
	logger   *slog.Logger

	mu sync.Mutex
}

func NewBook(cfg Config) (*Book, error) {
	if cfg.Store == nil {
		return nil, errors.New("contact: store is required")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultKey
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
	}
	return &Book{
		key:      cfg.Key,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		sink:     history.OrNop(cfg.Sink),
		now:      cfg.Now,
		logger:   cfg.Logger,
	}, nil
}

// Submit validates m and appends it to the log.
func (b *Book) Submit(ctx context.Context, m Message) (Entry, error) {
	if err := m.Validate(); err != nil {
		metrics.IncContact(false)
		return Entry{}, err
	}
	e := Entry{
		ID:        uuid.NewString(),
		Timestamp: b.now().UTC(),
		Name:      strings.TrimSpace(m.Name),
		Email:     strings.TrimSpace(m.Email),
		Message:   m.Message,
	}

	b.mu.Lock()
	entries := b.read(ctx)
	entries = append(entries, e)
	err := b.write(ctx, entries)
	b.mu.Unlock()
	if err != nil {
		metrics.IncContact(false)
		return Entry{}, fmt.Errorf("save contact message: %w", err)
	}
	metrics.IncContact(true)

	if err := b.notifier.Notify(ctx, e); err != nil {
		b.logger.Warn("contact notification failed", "id", e.ID, "error", err)
	}
	ev := history.NewEvent(history.EventContact, e.Timestamp)
	ev.Detail = e.ID
	ev.Count = len(entries)
	if err := b.sink.Send(ctx, ev); err != nil {
		b.logger.Warn("history sink send failed", "event", ev.Type, "error", err)
	}
	return e, nil
}

// Entries returns every stored message in submission order.
func (b *Book) Entries(ctx context.Context) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.read(ctx)
}

// read loads the log; an absent or unreadable log starts empty.
func (b *Book) read(ctx context.Context) []Entry {
	raw, err := b.store.Get(ctx, b.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			b.logger.Warn("contact log read failed", "error", err)
		}
		return []Entry{}
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		b.logger.Warn("contact log is corrupt, starting a new one", "error", err)
		return []Entry{}
	}
	return entries
}

func (b *Book) write(ctx context.Context, entries []Entry) error {
	raw, err := json.MarshalIndent(entries, "", "    ")
	if err != nil {
		return err
	}
	return b.store.Put(ctx, b.key, raw)
}
