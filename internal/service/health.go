package service

import (
	"context"
	"time"
)

const modelCheckTimeout = 5 * time.Second

// ModelStatus is the outcome of a model endpoint check.
type ModelStatus struct {
	Model     string `json:"model"`
	Reachable bool   `json:"reachable"`
	// Listed is true when the endpoint advertises the configured model.
	Listed bool   `json:"listed"`
	Error  string `json:"error,omitempty"`
}

// CheckModel asks the model endpoint for its model list. Some gateways do not list every
// routable model, so an unlisted model is reported but does not make the endpoint unreachable.
func (s *Service) CheckModel(ctx context.Context) ModelStatus {
	ctx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	status := ModelStatus{Model: s.config.LLM.Model}
	models, err := s.llmClient.ListModels(ctx)
	if err != nil {
		s.logger.Warn("model endpoint check failed", "model", status.Model, "error", err)
		status.Error = err.Error()
		return status
	}
	status.Reachable = true
	for _, m := range models {
		if m.ID == status.Model {
			status.Listed = true
			break
		}
	}
	return status
}
