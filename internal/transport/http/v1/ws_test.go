package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/chunk"
)

func dialChat(t *testing.T, h *Handler) *websocket.Conn {
	t.Helper()
	e := newEcho()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

// readUntilFrame collects chunk frames until the terminal control frame.
func readUntilFrame(t *testing.T, conn *websocket.Conn) (string, Frame) {
	t.Helper()
	var sb strings.Builder
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if strings.HasPrefix(string(data), "{") {
			var f Frame
			require.NoError(t, json.Unmarshal(data, &f))
			return sb.String(), f
		}
		s, err := chunk.Decode(data)
		require.NoError(t, err)
		sb.WriteString(s)
	}
}

func TestChatWSStreamsAndFinishes(t *testing.T) {
	h, st := newTestHandler(t, llm.NewMockClient())
	conn := dialChat(t, h)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(chatBody)))
	text, frame := readUntilFrame(t, conn)

	assert.Equal(t, FrameDone, frame.Type)
	assert.Contains(t, text, "[MOCK]")

	// The assistant message is written before the done frame.
	sess, err := st.GetLatestSessionByOrder(context.Background(), "ORD-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	msgs, err := st.GetMessages(context.Background(), sess.SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestChatWSInvalidRequest(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedLLM{})
	conn := dialChat(t, h)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"messages":[]}`)))
	_, frame := readUntilFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
	assert.NotEmpty(t, frame.Error)
}

func TestChatWSModelError(t *testing.T) {
	h, _ := newTestHandler(t, &scriptedLLM{fragments: []string{"x"}, err: errors.New("boom")})
	conn := dialChat(t, h)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(chatBody)))
	text, frame := readUntilFrame(t, conn)
	assert.Equal(t, "x", text)
	assert.Equal(t, Frame{Type: FrameError, Error: "model call failed"}, frame)
}
