package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkycoders1/claimcheck/internal/domain"
)

func TestClientCreateChatCompletionStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req map[string]interface{}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if r.URL.Path != "/v1/chat/completions" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		if req["stream"] != true {
			t.Fatalf("expected stream=true, got %v", req["stream"])
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Dzień\"}}]}\n\n")
		fmt.Fprint(w, "data: not-json\n\n")
		fmt.Fprint(w, "data:{\"id\":\"c1\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\" dobry\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2,\"total_tokens\":7}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "sk-test", time.Second)
	var text strings.Builder
	usage, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{
		Model:    "gpt",
		Messages: []ChatMessage{{Role: "user", Content: "hello"}},
	}, func(chunk *StreamChunk) error {
		text.WriteString(chunk.DeltaText())
		return nil
	})
	if err != nil {
		t.Fatalf("CreateChatCompletionStream failed: %v", err)
	}
	assert.Equal(t, "Dzień dobry", text.String())
	require.NotNil(t, usage)
	assert.Equal(t, 7, usage.TotalTokens)
}

func TestClientStreamWithoutDone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	var text strings.Builder
	_, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{Model: "gpt"}, func(chunk *StreamChunk) error {
		text.WriteString(chunk.DeltaText())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ab", text.String())
}

func TestClientStreamErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"error\":{\"message\":\"overloaded\",\"type\":\"server_error\"}}\n\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{Model: "gpt"}, func(chunk *StreamChunk) error {
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected stream error, got %v", err)
	}
}

func TestClientStreamCallbackError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n\n")
	}))
	defer server.Close()

	stop := errors.New("client went away")
	calls := 0
	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{Model: "gpt"}, func(chunk *StreamChunk) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestClientStreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream down")
	}))
	defer server.Close()

	client := NewClient(server.URL, "", time.Second)
	_, err := client.CreateChatCompletionStream(context.Background(), &ChatCompletionRequest{Model: "gpt"}, func(chunk *StreamChunk) error {
		t.Fatalf("callback should not run")
		return nil
	})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestClientListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"object":"list","data":[{"id":"gpt-4o","object":"model","created":1,"owned_by":"openai"}]}`)
	}))
	defer server.Close()

	models, err := NewClient(server.URL, "", time.Second).ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "gpt-4o", models[0].ID)
}

func TestClientListModelsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key","type":"invalid_request_error","code":401}}`)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "", time.Second).ListModels(context.Background())
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "bad key", statusErr.Message)
}

func TestMockClientListModels(t *testing.T) {
	models, err := NewMockClient().ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, "mock-vision", models[0].ID)
}

func TestChatMessageMarshal(t *testing.T) {
	b, err := json.Marshal(ChatMessage{Role: "system", Content: "be brief"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"system","content":"be brief"}`, string(b))

	msgs := FromCanonical([]domain.CanonicalMessage{{
		Role:  domain.RoleUser,
		Text:  "Zwrot",
		Media: []domain.Medium{{MimeType: "image/png", Data: []byte{0x89, 0x50, 0x4E, 0x47}}},
	}})
	b, err = json.Marshal(msgs[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[
		{"type":"text","text":"Zwrot"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBORw=="}}
	]}`, string(b))
}

func TestChatMessageUnmarshal(t *testing.T) {
	var m ChatMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":null}`), &m))
	assert.Equal(t, "", m.Content)

	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":[{"type":"text","text":"x"},{"type":"image_url","image_url":{"url":"data:,"}}]}`), &m))
	assert.Equal(t, "x", m.Content)
	assert.Len(t, m.Parts, 2)
}

func TestMockClientStream(t *testing.T) {
	mock := NewMockClient()
	req := &ChatCompletionRequest{
		Model:    "mock",
		Messages: FromCanonical([]domain.CanonicalMessage{{Role: domain.RoleUser, Text: "Rozdarty szew"}}),
	}
	var got strings.Builder
	_, err := mock.CreateChatCompletionStream(context.Background(), req, func(c *StreamChunk) error {
		piece := c.DeltaText()
		if len([]rune(piece)) > 10 {
			t.Fatalf("chunk longer than 10 runes: %q", piece)
		}
		got.WriteString(piece)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, mock.generateMockResponse(req), got.String())
	assert.Contains(t, got.String(), "Rozdarty szew")
}

func TestMockClientStreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMockClient().CreateChatCompletionStream(ctx, &ChatCompletionRequest{}, func(c *StreamChunk) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewLLMClientMockMode(t *testing.T) {
	t.Setenv(EnvMode, "MOCK")
	if _, ok := NewLLMClient("http://localhost", "", time.Second, nil).(*MockClient); !ok {
		t.Fatalf("expected MockClient in mock mode")
	}
	t.Setenv(EnvMode, "")
	if _, ok := NewLLMClient("http://localhost", "", time.Second, nil).(*Client); !ok {
		t.Fatalf("expected Client outside mock mode")
	}
}
