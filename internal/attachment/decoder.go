// Package attachment decodes inline data-URI attachments into media.
package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/policy"
)

const dataScheme = "data:"

// DefaultMaxBytes is the decoded size above which the default policy rejects a payload.
const DefaultMaxBytes = 20 << 20

// Evaluator makes the admission decision for a decoded payload.
type Evaluator interface {
	Evaluate(ctx context.Context, input interface{}) (string, string, error)
}

// Decoder turns attachment references into media.
type Decoder struct {
	policy   Evaluator
	maxBytes int64
}

// NewDecoder creates a decoder. A nil evaluator admits every well-formed payload.
func NewDecoder(evaluator Evaluator, maxBytes int64) *Decoder {
	return &Decoder{policy: evaluator, maxBytes: maxBytes}
}

// Decode parses ref as data:<mime>;<marker>,<payload>.
func (d *Decoder) Decode(ctx context.Context, ref string) (domain.Medium, error) {
	ref = strings.TrimSpace(ref)
	if len(ref) < len(dataScheme) || !strings.EqualFold(ref[:len(dataScheme)], dataScheme) {
		return domain.Medium{}, ErrNotInline
	}

	header, payload, ok := strings.Cut(ref, ",")
	if !ok {
		return domain.Medium{}, fmt.Errorf("%w: missing payload separator", ErrMalformed)
	}

	mimePart, marker, ok := strings.Cut(header[len(dataScheme):], ";")
	if !ok || strings.TrimSpace(marker) == "" {
		return domain.Medium{}, fmt.Errorf("%w: missing encoding marker", ErrMalformed)
	}

	mediaType, _, err := mime.ParseMediaType(mimePart)
	if err != nil || !strings.Contains(mediaType, "/") {
		return domain.Medium{}, fmt.Errorf("%w: invalid mime type %q", ErrMalformed, mimePart)
	}

	if payload == "" {
		return domain.Medium{}, fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	data, err := decodeBase64(payload)
	if err != nil {
		return domain.Medium{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := d.admit(ctx, mediaType, len(data)); err != nil {
		return domain.Medium{}, err
	}

	return domain.Medium{MimeType: mediaType, Data: data}, nil
}

// decodeBase64 decodes standard base64, accepting payloads whose padding was stripped.
func decodeBase64(payload string) ([]byte, error) {
	if !strings.HasSuffix(payload, "=") && len(payload)%4 != 0 {
		return base64.RawStdEncoding.DecodeString(payload)
	}
	return base64.StdEncoding.DecodeString(payload)
}

func (d *Decoder) admit(ctx context.Context, mediaType string, size int) error {
	if d.policy == nil {
		return nil
	}
	input := map[string]interface{}{
		"mime":      mediaType,
		"size":      size,
		"max_bytes": d.maxBytes,
	}
	decision, reason, err := d.policy.Evaluate(ctx, input)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if decision != policy.DecisionAllow {
		return fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	return nil
}

// Encode builds a base64 data URI for data.
func Encode(mimeType string, data []byte) string {
	return dataScheme + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
