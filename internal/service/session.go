package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/silkycoders1/claimcheck/internal/domain"
)

// ResolveSession finds or creates the session a request belongs to.
//
// The first turn of a conversation always opens a new session. Later turns reuse the most
// recent session for the order; its intent and description win over the request's. When no
// session exists a new one is created from the request.
func (s *Service) ResolveSession(ctx context.Context, orderID string, intent domain.Intent, description string, turnCount int) (*domain.Session, error) {
	if turnCount != 1 {
		existing, err := s.store.GetLatestSessionByOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("resolve session: %w", err)
		}
		if existing != nil {
			return existing, nil
		}
		s.logger.Info("no session for order, starting a new one", "order_id", orderID, "turn_count", turnCount)
	}

	session := &domain.Session{
		SessionID:   "sess_" + uuid.New().String(),
		OrderID:     orderID,
		Intent:      intent,
		Description: description,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	return session, nil
}

// OrderSession returns the latest session for orderID with its messages.
func (s *Service) OrderSession(ctx context.Context, orderID string) (*domain.Session, []domain.Message, error) {
	session, err := s.store.GetLatestSessionByOrder(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, ErrSessionNotFound
	}
	messages, err := s.store.GetMessages(ctx, session.SessionID, s.config.Server.HistoryLimit)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}

// SessionMessages returns the persisted history of a session.
func (s *Service) SessionMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.config.Server.HistoryLimit {
		limit = s.config.Server.HistoryLimit
	}
	return s.store.GetMessages(ctx, sessionID, limit)
}

// SessionEvents returns the trace events of a session.
func (s *Service) SessionEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.GetEvents(ctx, sessionID, afterTs, types, limit)
}

func (s *Service) requireSession(ctx context.Context, sessionID string) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return ErrSessionNotFound
	}
	return nil
}
