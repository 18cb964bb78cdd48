package v1

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/chunk"
)

func multipartRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return req
}

func TestAnalyzeMultipart(t *testing.T) {
	e := newEcho()
	h, _ := newTestHandler(t, llm.NewMockClient())

	req := multipartRequest(t,
		map[string]string{"requestType": "COMPLAINT", "userInput": "Rozprute szwy"},
		map[string][]byte{"defect.png": {0x89, 'P', 'N', 'G'}},
	)
	rec := httptest.NewRecorder()
	if err := h.Analyze(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	assert.Equal(t, http.StatusOK, rec.Code)

	text, errPart := decodeChunks(t, rec.Body.Bytes())
	assert.Empty(t, errPart)
	assert.Contains(t, text, "1 image(s)")

	for _, line := range bytes.Split(bytes.TrimSuffix(rec.Body.Bytes(), []byte("\n")), []byte("\n")) {
		s, err := chunk.Decode(line)
		require.NoError(t, err)
		assert.LessOrEqual(t, utf8.RuneCountInString(s), 10)
	}
}

func TestAnalyzeWithoutImages(t *testing.T) {
	e := newEcho()
	h, _ := newTestHandler(t, llm.NewMockClient())

	req := multipartRequest(t, map[string]string{"requestType": "RETURN", "userInput": "paragon"}, nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Analyze(e.NewContext(req, rec)))
	text, _ := decodeChunks(t, rec.Body.Bytes())
	assert.Contains(t, text, "0 image(s)")
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	e := newEcho()
	h, _ := newTestHandler(t, llm.NewMockClient())
	h.config.Attachments.MaxBytes = 4

	req := multipartRequest(t, map[string]string{"requestType": "RETURN"}, map[string][]byte{"big.jpg": []byte("0123456789")})
	rec := httptest.NewRecorder()
	require.NoError(t, h.Analyze(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
