// Package conversation turns client messages into the canonical form sent to the model.
package conversation

import (
	"context"
	"errors"

	"github.com/silkycoders1/claimcheck/internal/attachment"
	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/logger"
)

// ImageAttachedMarker is appended to the persisted text of a user turn that carried attachments.
const ImageAttachedMarker = " [Image Attached]"

// MediaDecoder decodes one attachment reference.
type MediaDecoder interface {
	Decode(ctx context.Context, ref string) (domain.Medium, error)
}

// Normalizer converts client messages into canonical messages.
type Normalizer struct {
	decoder MediaDecoder
	logger  *logger.Logger
}

// NewNormalizer creates a normalizer.
func NewNormalizer(decoder MediaDecoder, log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Normalizer{decoder: decoder, logger: log}
}

// Normalize resolves the text of msg and decodes its attachments.
// Attachments that fail to decode are logged and dropped.
func (n *Normalizer) Normalize(ctx context.Context, msg domain.ClientMessage) domain.CanonicalMessage {
	out := domain.CanonicalMessage{
		Role: domain.RoleUser,
		Text: msg.Content.PlainText(),
	}

	for i, ref := range msg.AllAttachments() {
		medium, err := n.decoder.Decode(ctx, ref.URL)
		if err != nil {
			if errors.Is(err, attachment.ErrNotInline) {
				n.logger.Debug("skipping non-inline attachment", "index", i, "name", ref.Name)
			} else {
				n.logger.Warn("dropping attachment", "index", i, "name", ref.Name, "error", err)
			}
			continue
		}
		out.Media = append(out.Media, medium)
	}

	return out
}

// PersistedText is the text stored for a user turn.
func PersistedText(msg domain.ClientMessage) string {
	text := msg.Content.PlainText()
	if len(msg.AllAttachments()) > 0 {
		text += ImageAttachedMarker
	}
	return text
}
