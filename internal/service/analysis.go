package service

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/silkycoders1/claimcheck/internal/adapter/llm"
	"github.com/silkycoders1/claimcheck/internal/chunk"
	"github.com/silkycoders1/claimcheck/internal/domain"
	"github.com/silkycoders1/claimcheck/internal/prompt"
)

// Upload is an image submitted to the single-shot analysis flow.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AnalysisRequest is a single-shot verification without a session.
type AnalysisRequest struct {
	Intent    domain.Intent
	UserInput string
	Images    []Upload
}

// ImageMIME picks the MIME type for an upload. A declared image/* content type wins;
// otherwise the filename extension decides, defaulting to JPEG.
func ImageMIME(filename, contentType string) string {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Analyze sends one user message with every image to the model under the QA instruction
// and emits the reply re-split into fixed-width pieces. Nothing is persisted.
func (s *Service) Analyze(ctx context.Context, req AnalysisRequest, emit Emitter) error {
	ctx, span := s.tracer.Start(ctx, "analyze")
	defer span.End()
	span.SetAttributes(
		attribute.String("intent", string(req.Intent)),
		attribute.Int("images", len(req.Images)),
	)

	system := prompt.Analysis(req.Intent)
	s.logger.Debug("built analysis prompt", "intent", req.Intent, "chars", len(system))

	user := domain.CanonicalMessage{Role: domain.RoleUser, Text: req.UserInput}
	for _, img := range req.Images {
		user.Media = append(user.Media, domain.Medium{
			MimeType: ImageMIME(img.Filename, img.ContentType),
			Data:     img.Data,
		})
	}

	chatReq := &llm.ChatCompletionRequest{
		Model: s.config.LLM.Model,
		Messages: llm.FromCanonical([]domain.CanonicalMessage{
			{Role: domain.RoleSystem, Text: system},
			user,
		}),
	}

	size := s.config.Analysis.ChunkSize
	var fragments, pieces, chars int
	_, err := s.llmClient.CreateChatCompletionStream(ctx, chatReq, func(c *llm.StreamChunk) error {
		text := c.DeltaText()
		if text == "" {
			return nil
		}
		fragments++
		chars += len(text)
		for piece := range chunk.Split(slices.Values([]string{text}), size) {
			encoded, encErr := chunk.Encode(piece)
			if encErr != nil {
				s.logger.Warn("dropping unencodable chunk", "error", encErr)
				continue
			}
			if emitErr := emit(encoded); emitErr != nil {
				return &emitError{err: emitErr}
			}
			pieces++
		}
		return nil
	})

	switch {
	case err == nil:
		s.logger.Info("analysis completed", "intent", req.Intent, "fragments", fragments, "pieces", pieces, "chars", chars)
		return nil
	case isCancellation(ctx, err):
		span.SetStatus(codes.Error, "cancelled")
		s.logger.Warn("analysis cancelled", "pieces", pieces, "reason", err)
		return fmt.Errorf("%w: %w", ErrStreamCancelled, err)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "model failed")
		s.logger.Error("analysis failed", "error", err)
		return fmt.Errorf("%w: %w", ErrModelFailed, err)
	}
}
