package llm

import (
	"github.com/silkycoders1/claimcheck/internal/attachment"
	"github.com/silkycoders1/claimcheck/internal/domain"
)

// FromCanonical converts canonical messages to wire messages.
// Media are sent as image_url parts carrying data URIs, after the text part.
func FromCanonical(msgs []domain.CanonicalMessage) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		cm := ChatMessage{Role: string(m.Role), Content: m.Text}
		if len(m.Media) > 0 {
			cm.Parts = make([]ContentPart, 0, len(m.Media)+1)
			cm.Parts = append(cm.Parts, ContentPart{Type: PartTypeText, Text: m.Text})
			for _, md := range m.Media {
				cm.Parts = append(cm.Parts, ContentPart{
					Type:     PartTypeImageURL,
					ImageURL: &ImageURL{URL: attachment.Encode(md.MimeType, md.Data)},
				})
			}
		}
		out = append(out, cm)
	}
	return out
}
