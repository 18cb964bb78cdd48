package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/chunk"
	"github.com/silkycoders1/claimcheck/internal/conversation"
	"github.com/silkycoders1/claimcheck/internal/domain"
)

// emitError marks a failure of the consumer rather than the model.
type emitError struct{ err error }

func (e *emitError) Error() string { return e.err.Error() }
func (e *emitError) Unwrap() error { return e.err }

// Verify runs one conversational verification turn and streams the model output to emit.
//
// The latest user turn is persisted before the model is called. The assistant reply is
// persisted once, after the stream completed cleanly and the last chunk was emitted.
// Errors returned before the first emit leave the consumer untouched.
func (s *Service) Verify(ctx context.Context, req domain.ChatRequest, emit Emitter) error {
	if len(req.Messages) == 0 {
		return fmt.Errorf("%w: no messages", ErrInvalidRequest)
	}

	ctx, span := s.tracer.Start(ctx, "verify")
	defer span.End()

	session, err := s.ResolveSession(ctx, req.OrderID, domain.ParseIntent(req.Intent), req.Description, len(req.Messages))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve session")
		return err
	}
	span.SetAttributes(
		attribute.String("session.id", session.SessionID),
		attribute.String("order.id", session.OrderID),
		attribute.String("intent", string(session.Intent)),
	)
	log := s.logger.With("session_id", session.SessionID, "order_id", session.OrderID)

	modelCtx := s.builder.Build(ctx, session.Intent, req.Messages)
	log.Debug("built model context", "messages", len(modelCtx.Messages), "system_chars", len(modelCtx.System()))

	started := domain.VerificationStartedPayload{
		OrderID:   session.OrderID,
		Intent:    session.Intent,
		TurnCount: len(req.Messages),
	}
	if modelCtx.LastUser != nil {
		msg := &domain.Message{
			MessageID: "msg_" + uuid.New().String(),
			SessionID: session.SessionID,
			Role:      domain.RoleUser,
			Content:   conversation.PersistedText(*modelCtx.LastUser),
			CreatedAt: s.now(),
		}
		if err := s.store.CreateMessage(ctx, msg); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "persist user message")
			return fmt.Errorf("persist user message: %w", err)
		}
		started.UserMessageID = msg.MessageID
		started.MediaCount = len(modelCtx.Messages[len(modelCtx.Messages)-1].Media)
	}
	s.traceEvent(ctx, session.SessionID, domain.EventTypeVerificationStarted, started)

	reply, err := s.stream(ctx, session.SessionID, llm.FromCanonical(modelCtx.Messages), emit)

	// Terminal bookkeeping must survive a consumer that already went away.
	persistCtx := context.WithoutCancel(ctx)

	switch {
	case err == nil:
		completed := domain.VerificationCompletedPayload{Chars: len(reply)}
		if reply != "" {
			msg := &domain.Message{
				MessageID: "msg_" + uuid.New().String(),
				SessionID: session.SessionID,
				Role:      domain.RoleAssistant,
				Content:   reply,
				CreatedAt: s.now(),
			}
			if err := s.store.CreateMessage(persistCtx, msg); err != nil {
				log.Error("failed to persist assistant message", "error", err)
				span.RecordError(err)
				s.traceEvent(persistCtx, session.SessionID, domain.EventTypeVerificationFailed, domain.VerificationFailedPayload{
					Code: "persist_failed", Message: err.Error(),
				})
				return fmt.Errorf("persist assistant message: %w", err)
			}
			completed.AssistantMessageID = msg.MessageID
		}
		s.traceEvent(persistCtx, session.SessionID, domain.EventTypeVerificationCompleted, completed)
		log.Info("verification completed", "chars", len(reply))
		return nil

	case isCancellation(ctx, err):
		s.traceEvent(persistCtx, session.SessionID, domain.EventTypeVerificationCancelled, domain.VerificationFailedPayload{
			Code: "cancelled", Message: err.Error(),
		})
		span.SetStatus(codes.Error, "cancelled")
		log.Info("verification cancelled", "reason", err)
		return fmt.Errorf("%w: %w", ErrStreamCancelled, err)

	default:
		s.traceEvent(persistCtx, session.SessionID, domain.EventTypeVerificationFailed, domain.VerificationFailedPayload{
			Code: "model_failed", Message: err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "model failed")
		log.Error("verification failed", "error", err)
		return fmt.Errorf("%w: %w", ErrModelFailed, err)
	}
}

// stream calls the model and forwards every non-empty fragment to emit as it arrives.
// It returns the accumulated reply.
func (s *Service) stream(ctx context.Context, sessionID string, messages []llm.ChatMessage, emit Emitter) (string, error) {
	req := &llm.ChatCompletionRequest{
		Model:    s.config.LLM.Model,
		Messages: messages,
	}
	requestID := "llm_" + uuid.New().String()[:8]
	startTime := time.Now()

	var (
		reply     strings.Builder
		fragments int
		model     string
	)
	usage, err := s.llmClient.CreateChatCompletionStream(ctx, req, func(c *llm.StreamChunk) error {
		if model == "" && c.Model != "" {
			model = c.Model
		}
		text := c.DeltaText()
		if text == "" {
			return nil
		}
		reply.WriteString(text)
		fragments++

		encoded, encErr := chunk.Encode(text)
		if encErr != nil {
			s.logger.Warn("dropping unencodable chunk", "session_id", sessionID, "error", encErr)
			return nil
		}
		if emitErr := emit(encoded); emitErr != nil {
			return &emitError{err: emitErr}
		}
		return nil
	})

	payload := domain.LLMCallDonePayload{
		RequestID: requestID,
		Model:     model,
		LatencyMs: time.Since(startTime).Milliseconds(),
		Fragments: fragments,
		Chars:     reply.Len(),
	}
	if payload.Model == "" {
		payload.Model = req.Model
	}
	if usage != nil {
		payload.PromptTokens = usage.PromptTokens
		payload.CompletionTokens = usage.CompletionTokens
		payload.TotalTokens = usage.TotalTokens
	}
	if err != nil {
		payload.Error = err.Error()
	}
	s.traceEvent(context.WithoutCancel(ctx), sessionID, domain.EventTypeLLMCallDone, payload)

	if err != nil {
		return "", err
	}
	return reply.String(), nil
}

func isCancellation(ctx context.Context, err error) bool {
	var ee *emitError
	if errors.As(err, &ee) {
		return true
	}
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
