package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/silkycoders1/claimcheck/internal/chunk"
)

const (
	headerDataStream = "X-Vercel-AI-Data-Stream"
	framingSSE       = "sse"
)

// chunkWriter writes encoded chunks to the response, committing headers on first use.
type chunkWriter struct {
	resp    *echo.Response
	sse     bool
	started bool
}

func newChunkWriter(resp *echo.Response, sse bool) *chunkWriter {
	return &chunkWriter{resp: resp, sse: sse}
}

func (w *chunkWriter) start() {
	if w.started {
		return
	}
	w.started = true
	header := w.resp.Header()
	if w.sse {
		header.Set(echo.HeaderContentType, "text/event-stream")
		header.Set("Connection", "keep-alive")
	} else {
		header.Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	}
	header.Set("Cache-Control", "no-cache")
	header.Set(headerDataStream, "v1")
	w.resp.WriteHeader(http.StatusOK)
}

// write is the service Emitter.
func (w *chunkWriter) write(encoded []byte) error {
	w.start()
	if w.sse {
		encoded = chunk.SSE(encoded)
	}
	if _, err := w.resp.Write(encoded); err != nil {
		return err
	}
	if flusher, ok := w.resp.Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
