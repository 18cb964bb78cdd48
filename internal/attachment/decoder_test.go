package attachment

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silkycoders1/claimcheck/internal/policy"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47}

func TestDecodePNG(t *testing.T) {
	d := NewDecoder(nil, 0)
	m, err := d.Decode(context.Background(), "data:image/png;base64,iVBORw==")
	require.NoError(t, err)
	assert.Equal(t, "image/png", m.MimeType)
	assert.Equal(t, pngHeader, m.Data)
}

func TestDecodeErrors(t *testing.T) {
	d := NewDecoder(nil, 0)
	tests := []struct {
		name string
		ref  string
		want error
	}{
		{"remote url", "https://example.com/receipt.png", ErrNotInline},
		{"empty", "", ErrNotInline},
		{"no comma", "data:image/png;base64", ErrMalformed},
		{"no marker", "data:image/png,iVBORw==", ErrMalformed},
		{"empty marker", "data:image/png;,iVBORw==", ErrMalformed},
		{"no subtype", "data:png;base64,iVBORw==", ErrMalformed},
		{"empty mime", "data:;base64,iVBORw==", ErrMalformed},
		{"bad base64", "data:image/png;base64,@@@", ErrInvalidPayload},
		{"empty payload", "data:image/png;base64,", ErrInvalidPayload},
		{"truncated unpadded", "data:image/png;base64,iVBORwAAA", ErrInvalidPayload},
		{"padding mid payload", "data:image/png;base64,iV==BORw", ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(context.Background(), tt.ref)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode(%q) error = %v, want %v", tt.ref, err, tt.want)
			}
		})
	}
}

func TestDecodeUnpaddedPayload(t *testing.T) {
	d := NewDecoder(nil, 0)
	m, err := d.Decode(context.Background(), "data:image/png;base64,iVBORw")
	require.NoError(t, err)
	assert.Equal(t, pngHeader, m.Data)

	// Seven characters carry five bytes without the trailing "=".
	m, err = d.Decode(context.Background(), "data:image/png;base64,iVBORwA")
	require.NoError(t, err)
	assert.Len(t, m.Data, 5)
}

func TestDecodeSchemeCaseInsensitive(t *testing.T) {
	d := NewDecoder(nil, 0)
	m, err := d.Decode(context.Background(), "DATA:image/jpeg;base64,iVBORw==")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", m.MimeType)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	d := NewDecoder(nil, 0)
	payloads := [][]byte{
		{0x00},
		pngHeader,
		bytes.Repeat([]byte{0xFF, 0x00, 0x7F}, 1000),
		[]byte("plain text bytes"),
	}
	mimes := []string{"image/png", "image/jpeg", "image/webp", "application/pdf"}

	for _, p := range payloads {
		for _, m := range mimes {
			got, err := d.Decode(context.Background(), Encode(m, p))
			require.NoError(t, err)
			assert.Equal(t, m, got.MimeType)
			assert.Equal(t, p, got.Data)
		}
	}
}

func TestDecodePolicyRejectsOversized(t *testing.T) {
	ctx := context.Background()
	engine, err := policy.NewAttachmentEngine(ctx, "")
	require.NoError(t, err)

	d := NewDecoder(engine, 8)
	_, err = d.Decode(ctx, Encode("image/png", bytes.Repeat([]byte{1}, 9)))
	assert.ErrorIs(t, err, ErrRejected)

	m, err := d.Decode(ctx, Encode("image/png", bytes.Repeat([]byte{1}, 8)))
	require.NoError(t, err)
	assert.Len(t, m.Data, 8)
}

type failingPolicy struct{}

func (failingPolicy) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	return "", "", errors.New("boom")
}

func TestDecodePolicyErrorRejects(t *testing.T) {
	d := NewDecoder(failingPolicy{}, DefaultMaxBytes)
	_, err := d.Decode(context.Background(), Encode("image/png", pngHeader))
	assert.ErrorIs(t, err, ErrRejected)
}
