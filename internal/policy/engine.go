// Package policy evaluates admission decisions with OPA rego.
package policy

import (
	"context"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

const (
	DecisionAllow  = "allow"
	DecisionReject = "reject"
)

// AttachmentQuery is the rego query evaluated for attachment admission.
const AttachmentQuery = "data.attachment_policy.result"

// Engine is a prepared OPA query.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine prepares query against a single rego module.
func NewEngine(ctx context.Context, query, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query(query),
		rego.Module("attachment_policy.rego", policyContent),
	)

	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: prepared}, nil
}

// NewAttachmentEngine loads the attachment policy from path, or DefaultAttachmentPolicy when
// path is empty.
func NewAttachmentEngine(ctx context.Context, path string) (*Engine, error) {
	content := DefaultAttachmentPolicy
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read policy file: %w", err)
		}
		content = string(b)
	}
	return NewEngine(ctx, AttachmentQuery, content)
}

// Evaluate runs the query with input.
// The rule may produce a bare decision string or an object {decision, reason}.
// No result means allow.
func (e *Engine) Evaluate(ctx context.Context, input interface{}) (string, string, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, "default", nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return val, "", nil
	case map[string]interface{}:
		decision, _ := val["decision"].(string)
		reason, _ := val["reason"].(string)
		if decision == "" {
			return DecisionAllow, "missing decision", nil
		}
		return decision, reason, nil
	}

	return DecisionAllow, "unexpected return type", nil
}

// DefaultAttachmentPolicy rejects inline payloads larger than input.max_bytes.
// A max_bytes of zero or less disables the size check.
const DefaultAttachmentPolicy = `
package attachment_policy

default decision = "allow"
default reason = ""

decision = "reject" {
	too_large
}

reason = "payload exceeds max_bytes" {
	too_large
}

too_large {
	input.max_bytes > 0
	input.size > input.max_bytes
}

result = {"decision": decision, "reason": reason}
`
