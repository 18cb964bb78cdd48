package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/attachment"
	"github.com/silkycoders1/claimcheck/internal/chunk"
	"github.com/silkycoders1/claimcheck/internal/config"
	"github.com/silkycoders1/claimcheck/internal/conversation"
	"github.com/silkycoders1/claimcheck/internal/domain"
	store "github.com/silkycoders1/claimcheck/internal/repository"
)

// fakeLLM streams scripted fragments and then returns err.
type fakeLLM struct {
	mu        sync.Mutex
	fragments []string
	err       error
	// onFragment runs after each fragment is delivered.
	onFragment func(i int)
	requests   []*llm.ChatCompletionRequest

	models  []llm.Model
	listErr error
}

func (f *fakeLLM) CreateChatCompletionStream(ctx context.Context, req *llm.ChatCompletionRequest, callback llm.StreamCallback) (*llm.Usage, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	for i, frag := range f.fragments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &llm.StreamChunk{Model: "fake", Choices: []llm.Choice{{Delta: &llm.ChatMessage{Role: "assistant", Content: frag}}}}
		if err := callback(c); err != nil {
			return nil, err
		}
		if f.onFragment != nil {
			f.onFragment(i)
		}
	}
	return &llm.Usage{TotalTokens: 3}, f.err
}

func (f *fakeLLM) ListModels(ctx context.Context) ([]llm.Model, error) {
	return f.models, f.listErr
}

func (f *fakeLLM) lastRequest(t *testing.T) *llm.ChatCompletionRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

// faultyStore fails selected operations.
type faultyStore struct {
	store.Store
	failCreateMessageRole domain.Role
	failCreateSession     bool
	failEvents            bool
}

func (s *faultyStore) CreateMessage(ctx context.Context, m *domain.Message) error {
	if s.failCreateMessageRole != "" && m.Role == s.failCreateMessageRole {
		return errors.New("disk full")
	}
	return s.Store.CreateMessage(ctx, m)
}

func (s *faultyStore) CreateSession(ctx context.Context, sess *domain.Session) error {
	if s.failCreateSession {
		return errors.New("db down")
	}
	return s.Store.CreateSession(ctx, sess)
}

func (s *faultyStore) CreateEvent(ctx context.Context, e *domain.Event) error {
	if s.failEvents {
		return errors.New("events table locked")
	}
	return s.Store.CreateEvent(ctx, e)
}

func newTestService(t *testing.T, st store.Store, model llm.LLMClient) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.LLM.Model = "vision-test"
	builder := conversation.NewBuilder(conversation.NewNormalizer(attachment.NewDecoder(nil, 0), nil))
	return New(st, model, builder, &cfg, nil)
}

// collector gathers emitted chunks.
type collector struct {
	chunks [][]byte
	failAt int
}

func (c *collector) emit(b []byte) error {
	if c.failAt > 0 && len(c.chunks)+1 == c.failAt {
		return errors.New("client disconnected")
	}
	c.chunks = append(c.chunks, append([]byte(nil), b...))
	return nil
}

func (c *collector) text(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	for _, b := range c.chunks {
		s, err := chunk.Decode(b)
		require.NoError(t, err)
		sb.WriteString(s)
	}
	return sb.String()
}

func user(text string, urls ...string) domain.ClientMessage {
	m := domain.ClientMessage{Role: "user", Content: domain.TextContent(text)}
	for _, u := range urls {
		m.ExperimentalAttachments = append(m.ExperimentalAttachments, domain.AttachmentRef{URL: u})
	}
	return m
}

func assistant(text string) domain.ClientMessage {
	return domain.ClientMessage{Role: "assistant", Content: domain.TextContent(text)}
}

func messagesByOrder(t *testing.T, st store.Store, orderID string) []domain.Message {
	t.Helper()
	sess, err := st.GetLatestSessionByOrder(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, sess)
	msgs, err := st.GetMessages(context.Background(), sess.SessionID, 0)
	require.NoError(t, err)
	return msgs
}

func eventTypes(t *testing.T, st store.Store, sessionID string) []domain.EventType {
	t.Helper()
	events, err := st.GetEvents(context.Background(), sessionID, 0, nil, 0)
	require.NoError(t, err)
	var types []domain.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}
