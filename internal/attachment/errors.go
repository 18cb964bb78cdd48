package attachment

import "errors"

var (
	// ErrNotInline is returned for references that are not data URIs. They are never fetched.
	ErrNotInline = errors.New("attachment: not an inline data reference")
	// ErrMalformed is returned when the data URI header is missing segments or carries a bad MIME type.
	ErrMalformed = errors.New("attachment: malformed data reference")
	// ErrInvalidPayload is returned when the payload is empty or not valid base64.
	ErrInvalidPayload = errors.New("attachment: invalid payload encoding")
	// ErrRejected is returned when the admission policy rejects the payload.
	ErrRejected = errors.New("attachment: rejected by policy")
)
