package llm

import (
	"os"
	"strings"
	"time"

	"github.com/silkycoders1/claimcheck/internal/logger"
)

const (
	// EnvMode is the environment variable name for mode selection.
	EnvMode = "CLAIMCHECK_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewLLMClient returns a MockClient when CLAIMCHECK_MODE=MOCK and a real Client otherwise.
func NewLLMClient(baseURL, apiKey string, timeout time.Duration, log *logger.Logger) LLMClient {
	if strings.EqualFold(os.Getenv(EnvMode), ModeMock) {
		if log != nil {
			log.Info("mock mode detected, using mock LLM client", "env", EnvMode)
		}
		return NewMockClient()
	}

	return NewClient(baseURL, apiKey, timeout)
}
