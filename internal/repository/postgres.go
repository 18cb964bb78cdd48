package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/silkycoders1/claimcheck/internal/domain"
)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore connects to url and applies pending migrations.
func NewPGStore(ctx context.Context, url string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PGStore{db: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the pool.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

// CreateSession creates a new session.
func (s *PGStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO verification_sessions (session_id, order_id, intent, description, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		session.SessionID, session.OrderID, string(session.Intent), session.Description, session.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: create session: %w", err)
	}
	return nil
}

func (s *PGStore) scanSession(row pgx.Row) (*domain.Session, error) {
	var session domain.Session
	var intent string
	err := row.Scan(&session.SessionID, &session.OrderID, &intent, &session.Description, &session.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	session.Intent = domain.Intent(intent)
	return &session, nil
}

// GetSession retrieves a session by ID.
func (s *PGStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.scanSession(s.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM verification_sessions WHERE session_id = $1`, sessionID))
}

// GetLatestSessionByOrder returns the most recently created session for orderID.
func (s *PGStore) GetLatestSessionByOrder(ctx context.Context, orderID string) (*domain.Session, error) {
	return s.scanSession(s.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM verification_sessions WHERE order_id = $1
		 ORDER BY created_at DESC, seq DESC LIMIT 1`, orderID))
}

// CreateMessage creates a new message.
func (s *PGStore) CreateMessage(ctx context.Context, message *domain.Message) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO chat_messages (message_id, session_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		message.MessageID, message.SessionID, string(message.Role), message.Content, message.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: create message: %w", err)
	}
	return nil
}

// GetMessages retrieves messages for a session in insertion order.
// A positive limit keeps the newest limit messages.
func (s *PGStore) GetMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	query := `SELECT message_id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = $1 ORDER BY created_at ASC, seq ASC`
	if limit > 0 {
		query = `SELECT message_id, session_id, role, content, created_at FROM chat_messages
		WHERE session_id = $1 ORDER BY created_at DESC, seq DESC` + fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: get messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role string
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		msg.Role = domain.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 {
		slices.Reverse(messages)
	}
	return messages, nil
}

// CreateEvent creates a new event.
func (s *PGStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	if event.Ts == 0 {
		event.Ts = time.Now().UnixMilli()
	}
	var payload []byte
	if len(event.Payload) > 0 {
		payload = event.Payload
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO verification_events (event_id, session_id, ts, type, payload) VALUES ($1, $2, $3, $4, $5)`,
		event.EventID, event.SessionID, event.Ts, string(event.Type), payload)
	if err != nil {
		return fmt.Errorf("store: create event: %w", err)
	}
	return nil
}

// GetEvents retrieves events for a session.
func (s *PGStore) GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT event_id, session_id, ts, type, payload FROM verification_events WHERE session_id = $1`)
	args := []interface{}{sessionID}

	if afterTs > 0 {
		args = append(args, afterTs)
		fmt.Fprintf(&sb, " AND ts > $%d", len(args))
	}
	if len(types) > 0 {
		args = append(args, types)
		fmt.Fprintf(&sb, " AND type = ANY($%d)", len(args))
	}
	sb.WriteString(" ORDER BY ts ASC, seq ASC")
	if limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	}

	rows, err := s.db.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("store: get events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var eventType string
		var payload []byte
		if err := rows.Scan(&event.EventID, &event.SessionID, &event.Ts, &eventType, &payload); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		event.Type = domain.EventType(eventType)
		if len(payload) > 0 {
			event.Payload = payload
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
