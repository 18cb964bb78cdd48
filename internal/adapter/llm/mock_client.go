package llm

import (
	"context"
	"fmt"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/silkycoders1/claimcheck/internal/chunk"
)

// MockClient is a deterministic LLMClient used for local runs and tests.
type MockClient struct {
	// Delay is slept between stream chunks.
	Delay time.Duration
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

var _ LLMClient = (*MockClient)(nil)

// CreateChatCompletionStream streams the mock response in 10-character chunks.
func (m *MockClient) CreateChatCompletionStream(ctx context.Context, req *ChatCompletionRequest, callback StreamCallback) (*Usage, error) {
	responseContent := m.generateMockResponse(req)
	id := fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano())
	created := time.Now().Unix()

	pieces := slices.Collect(chunk.Split(slices.Values([]string{responseContent}), 10))

	for i, piece := range pieces {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if m.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(m.Delay):
			}
		}

		finishReason := ""
		if i == len(pieces)-1 {
			finishReason = "stop"
		}

		streamChunk := &StreamChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   req.Model,
			Choices: []Choice{
				{
					Index:        0,
					Delta:        &ChatMessage{Role: "assistant", Content: piece},
					FinishReason: finishReason,
				},
			},
			SystemFingerprint: "mock-fp",
		}

		if err := callback(streamChunk); err != nil {
			return nil, err
		}
	}

	return m.usage(req, responseContent), nil
}

// ListModels returns a list of mock models.
func (m *MockClient) ListModels(ctx context.Context) ([]Model, error) {
	return []Model{
		{
			ID:      "mock-vision",
			Object:  "model",
			Created: time.Now().Unix(),
			OwnedBy: "mock",
		},
	}, nil
}

func (m *MockClient) generateMockResponse(req *ChatCompletionRequest) string {
	var (
		lastUser string
		images   int
	)
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			lastUser = req.Messages[i].Content
			for _, p := range req.Messages[i].Parts {
				if p.Type == PartTypeImageURL {
					images++
				}
			}
			break
		}
	}

	if lastUser == "" && images == 0 {
		return "[MOCK] <thought>No customer input.</thought>\nProsimy o opisanie zgłoszenia."
	}

	return fmt.Sprintf("[MOCK] <thought>Received %d image(s) and text %q.</thought>\nDziękujemy, zgłoszenie zostało przyjęte do weryfikacji.",
		images, truncate(lastUser, 100))
}

func (m *MockClient) usage(req *ChatCompletionRequest, response string) *Usage {
	prompt := 0
	for _, msg := range req.Messages {
		prompt += len(msg.Content) / 4
	}
	completion := len(response) / 4
	return &Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// truncate shortens s to at most maxLen runes.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}
