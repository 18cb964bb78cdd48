// Package store defines the storage interface and implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/silkycoders1/claimcheck/internal/domain"
)

// ErrUnsupportedURL is returned by Open for database URLs with an unknown scheme.
var ErrUnsupportedURL = errors.New("store: unsupported database url")

// Store defines the interface for data persistence.
// Lookups return (nil, nil) when the record does not exist.
type Store interface {
	// Session operations
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	GetLatestSessionByOrder(ctx context.Context, orderID string) (*domain.Session, error)

	// Message operations
	CreateMessage(ctx context.Context, message *domain.Message) error
	GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PGStore)(nil)
)

// Open picks the implementation from the url scheme.
// postgres:// and postgresql:// open PostgreSQL; sqlite://, file: and bare paths open SQLite.
func Open(ctx context.Context, url string) (Store, error) {
	switch {
	case url == "":
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedURL)
	case isPostgresURL(url):
		return NewPGStore(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStore(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file:"), !strings.Contains(url, "://"):
		return NewSQLiteStore(url)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, redact(url))
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// redact drops everything after the scheme so credentials never reach logs.
func redact(url string) string {
	if i := strings.Index(url, "://"); i >= 0 {
		return url[:i+3] + "..."
	}
	return url
}
