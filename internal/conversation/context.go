package conversation

import (
	"context"

	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/prompt"
)

// Context is the model input for one verification request.
type Context struct {
	// Messages starts with exactly one system message.
	Messages []domain.CanonicalMessage
	// LastUser is the final element of the request when that element is a user turn.
	LastUser *domain.ClientMessage
}

// System returns the leading system instruction.
func (c Context) System() string {
	if len(c.Messages) == 0 {
		return ""
	}
	return c.Messages[0].Text
}

// Builder assembles model contexts.
type Builder struct {
	normalizer *Normalizer
}

// NewBuilder creates a builder.
func NewBuilder(normalizer *Normalizer) *Builder {
	return &Builder{normalizer: normalizer}
}

// Build produces the system instruction followed by the normalized history.
// Messages with roles other than user or assistant are ignored.
func (b *Builder) Build(ctx context.Context, intent domain.Intent, history []domain.ClientMessage) Context {
	out := Context{
		Messages: make([]domain.CanonicalMessage, 0, len(history)+1),
	}
	out.Messages = append(out.Messages, domain.CanonicalMessage{
		Role: domain.RoleSystem,
		Text: prompt.System(intent),
	})

	for i := range history {
		msg := history[i]
		switch domain.ParseRole(msg.Role) {
		case domain.RoleUser:
			out.Messages = append(out.Messages, b.normalizer.Normalize(ctx, msg))
			if i == len(history)-1 {
				out.LastUser = &history[i]
			}
		case domain.RoleAssistant:
			out.Messages = append(out.Messages, domain.CanonicalMessage{
				Role: domain.RoleAssistant,
				Text: msg.Content.PlainText(),
			})
		}
	}

	return out
}
