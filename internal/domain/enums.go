// Package domain defines the core domain models for claim verification.
package domain

import "strings"

// Intent is the verification domain of a conversation.
type Intent string

const (
	IntentReturn    Intent = "RETURN"
	IntentComplaint Intent = "COMPLAINT"
)

// ParseIntent maps a client intent string to an Intent.
// Anything that is not a return is handled as a complaint.
func ParseIntent(s string) Intent {
	if strings.EqualFold(strings.TrimSpace(s), string(IntentReturn)) {
		return IntentReturn
	}
	return IntentComplaint
}

// Role represents the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ParseRole normalizes a client role. Unknown roles are returned as-is in lower case.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// EventType represents the type of a verification trace event.
type EventType string

const (
	EventTypeVerificationStarted   EventType = "verification_started"
	EventTypeLLMCallDone           EventType = "llm_call_done"
	EventTypeVerificationCompleted EventType = "verification_completed"
	EventTypeVerificationFailed    EventType = "verification_failed"
	EventTypeVerificationCancelled EventType = "verification_cancelled"
)
