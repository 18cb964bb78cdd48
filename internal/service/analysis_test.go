package service

import (
	"context"
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/chunk"
	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/prompt"
	"github.com/silkycoders1/claimcheck/internal/testutil"
)

func TestImageMIME(t *testing.T) {
	tests := []struct {
		filename, contentType, want string
	}{
		{"receipt.PNG", "", "image/png"},
		{"a.gif", "application/octet-stream", "image/gif"},
		{"a.webp", "", "image/webp"},
		{"a.jpg", "", "image/jpeg"},
		{"noext", "", "image/jpeg"},
		{"photo.bin", "image/heic", "image/heic"},
		{"", "", "image/jpeg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageMIME(tt.filename, tt.contentType), "%s/%s", tt.filename, tt.contentType)
	}
}

func TestAnalyzeResplitsAndFilters(t *testing.T) {
	st := testutil.NewTestSQLiteStore(t)
	model := &fakeLLM{fragments: []string{`{"status": "APPROVED"}`, "", "\nSzew puścił."}}
	svc := newTestService(t, st, model)

	c := &collector{}
	err := svc.Analyze(context.Background(), AnalysisRequest{
		Intent:    domain.IntentComplaint,
		UserInput: "Rozprute szwy",
		Images:    []Upload{{Filename: "defect.png", Data: []byte{1, 2, 3}}, {Filename: "tag.jpg", Data: []byte{4}}},
	}, c.emit)
	require.NoError(t, err)

	var pieces []string
	for _, b := range c.chunks {
		s, err := chunk.Decode(b)
		require.NoError(t, err)
		if utf8.RuneCountInString(s) > 10 {
			t.Fatalf("piece longer than chunk size: %q", s)
		}
		pieces = append(pieces, s)
	}
	assert.Equal(t, []string{`{"status":`, ` "APPROVED`, `"}`, "\nSzew puśc", "ił."}, pieces)

	req := model.lastRequest(t)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, prompt.Analysis(domain.IntentComplaint), req.Messages[0].Content)
	require.Len(t, req.Messages[1].Parts, 3)
	assert.Equal(t, "data:image/png;base64,AQID", req.Messages[1].Parts[1].ImageURL.URL)
	assert.Equal(t, "image_url", req.Messages[1].Parts[2].Type)
	assert.Contains(t, req.Messages[1].Parts[2].ImageURL.URL, "data:image/jpeg;")
}

func TestAnalyzeWithoutImagesSendsPlainText(t *testing.T) {
	model := &fakeLLM{fragments: []string{"ok"}}
	svc := newTestService(t, testutil.NewTestSQLiteStore(t), model)

	require.NoError(t, svc.Analyze(context.Background(), AnalysisRequest{Intent: domain.IntentReturn, UserInput: "Paragon w załączeniu"}, (&collector{}).emit))
	req := model.lastRequest(t)
	assert.Empty(t, req.Messages[1].Parts)
	assert.Equal(t, "Paragon w załączeniu", req.Messages[1].Content)
}

func TestAnalyzeErrors(t *testing.T) {
	svc := newTestService(t, testutil.NewTestSQLiteStore(t), &fakeLLM{err: errors.New("quota")})
	err := svc.Analyze(context.Background(), AnalysisRequest{Intent: domain.IntentReturn}, (&collector{}).emit)
	assert.ErrorIs(t, err, ErrModelFailed)

	svc = newTestService(t, testutil.NewTestSQLiteStore(t), &fakeLLM{fragments: []string{"abcdefghijKLM"}})
	err = svc.Analyze(context.Background(), AnalysisRequest{Intent: domain.IntentReturn}, (&collector{failAt: 2}).emit)
	assert.ErrorIs(t, err, ErrStreamCancelled)
}

func TestAnalyzeWithMockClient(t *testing.T) {
	svc := newTestService(t, testutil.NewTestSQLiteStore(t), llm.NewMockClient())
	c := &collector{}
	require.NoError(t, svc.Analyze(context.Background(), AnalysisRequest{Intent: domain.IntentReturn, UserInput: "x"}, c.emit))
	assert.Contains(t, c.text(t), "[MOCK]")
}
