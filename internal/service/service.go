// Package service implements claim verification on top of the store and the model client.
package service

import (
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/config"
	"github.com/silkycoders1/claimcheck/internal/conversation"
	"github.com/silkycoders1/claimcheck/internal/logger"
	"github.com/silkycoders1/claimcheck/internal/observability"
	store "github.com/silkycoders1/claimcheck/internal/repository"
)

var (
	// ErrInvalidRequest is returned for requests that cannot be verified at all.
	ErrInvalidRequest = errors.New("service: invalid request")
	// ErrModelFailed wraps model backend failures.
	ErrModelFailed = errors.New("service: model call failed")
	// ErrStreamCancelled is returned when the consumer goes away before the stream completes.
	ErrStreamCancelled = errors.New("service: stream cancelled")
	// ErrSessionNotFound is returned by read lookups for unknown sessions.
	ErrSessionNotFound = errors.New("service: session not found")
)

// Emitter receives encoded stream chunks in order. An error stops the stream.
type Emitter func(chunk []byte) error

type Service struct {
	store     store.Store
	llmClient llm.LLMClient
	builder   *conversation.Builder
	config    *config.Config
	logger    *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func New(store store.Store, llmClient llm.LLMClient, builder *conversation.Builder, cfg *config.Config, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		store:     store,
		llmClient: llmClient,
		builder:   builder,
		config:    cfg,
		logger:    log,
		tracer:    observability.Tracer(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}
