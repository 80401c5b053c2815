package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnavailable marks any failure to obtain a complete listing from upstream.
var ErrUnavailable = errors.New("upstream unavailable")

// Repo is the subset of an upstream repository listing the cache consumes.
// Description and Language are nullable upstream.
type Repo struct {
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	HTMLURL     string    `json:"html_url"`
	Stars       int       `json:"stargazers_count"`
	Language    *string   `json:"language"`
	Fork        bool      `json:"fork"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Source returns raw repository listings for an account.
type Source interface {
	ListRepos(ctx context.Context, account string) ([]Repo, error)
}

// StatusError reports a non-success upstream response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.Code)
}

func (e *StatusError) Unwrap() error { return ErrUnavailable }

// Func adapts a function to Source.
type Func func(ctx context.Context, account string) ([]Repo, error)

func (f Func) ListRepos(ctx context.Context, account string) ([]Repo, error) {
	return f(ctx, account)
}
