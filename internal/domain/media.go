package domain

// Medium is a typed binary attachment carried alongside a message.
type Medium struct {
	MimeType string
	Data     []byte
}

// CanonicalMessage is the normalized in-memory representation used to build model context.
// It is never persisted as such.
type CanonicalMessage struct {
	Role  Role
	Text  string
	Media []Medium
}
