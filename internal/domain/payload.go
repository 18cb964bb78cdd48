package domain

// VerificationStartedPayload is the payload for verification_started event.
type VerificationStartedPayload struct {
	OrderID       string `json:"order_id"`
	Intent        Intent `json:"intent"`
	TurnCount     int    `json:"turn_count"`
	UserMessageID string `json:"user_message_id,omitempty"`
	MediaCount    int    `json:"media_count"`
}

// LLMCallDonePayload is the payload for llm_call_done event.
type LLMCallDonePayload struct {
	RequestID string `json:"request_id"`
	Model     string `json:"model"`
	LatencyMs int64  `json:"latency_ms"`
	Fragments int    `json:"fragments"`
	Chars     int    `json:"chars"`
	Error     string `json:"error,omitempty"`

	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// VerificationCompletedPayload is the payload for verification_completed event.
type VerificationCompletedPayload struct {
	AssistantMessageID string `json:"assistant_message_id,omitempty"`
	Chars              int    `json:"chars"`
}

// VerificationFailedPayload is the payload for verification_failed and verification_cancelled events.
type VerificationFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
