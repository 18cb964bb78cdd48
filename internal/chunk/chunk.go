// Package chunk implements the line-oriented stream protocol written to chat clients.
//
// Each text part is the prefix "0:" followed by a JSON string literal and a newline.
// A terminal error part uses the prefix "3:".
package chunk

import (
	"bytes"
	"encoding/json"
	"errors"
	"iter"
	"unicode/utf8"
)

const (
	textPrefix  = "0:"
	errorPrefix = "3:"
)

// ErrNotTextPart is returned by Decode for lines that are not "0:" parts.
var ErrNotTextPart = errors.New("chunk: not a text part")

// Encode frames one text fragment.
func Encode(fragment string) ([]byte, error) {
	return encode(textPrefix, fragment)
}

// EncodeError frames a terminal error message.
func EncodeError(msg string) ([]byte, error) {
	return encode(errorPrefix, msg)
}

func encode(prefix, s string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(prefix) + len(s) + 3)
	buf.WriteString(prefix)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encode terminates the literal with the newline the protocol needs.
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a single "0:" line back into its fragment.
func Decode(line []byte) (string, error) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte(textPrefix)) {
		return "", ErrNotTextPart
	}
	var s string
	if err := json.Unmarshal(line[len(textPrefix):], &s); err != nil {
		return "", err
	}
	return s, nil
}

// SSE wraps an encoded chunk as a server-sent event.
func SSE(encoded []byte) []byte {
	encoded = bytes.TrimSuffix(encoded, []byte("\n"))
	buf := make([]byte, 0, len(encoded)+7)
	buf = append(buf, "data:"...)
	buf = append(buf, encoded...)
	return append(buf, '\n', '\n')
}

// Split re-chunks every fragment of seq into pieces of at most size runes.
// Fragments are split independently, so a piece never spans two fragments.
// Empty fragments yield nothing. A size below one yields fragments unchanged.
func Split(seq iter.Seq[string], size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		for fragment := range seq {
			if fragment == "" {
				continue
			}
			if size < 1 {
				if !yield(fragment) {
					return
				}
				continue
			}
			for fragment != "" {
				end, n := 0, 0
				for end < len(fragment) && n < size {
					_, w := utf8.DecodeRuneInString(fragment[end:])
					end += w
					n++
				}
				if !yield(fragment[:end]) {
					return
				}
				fragment = fragment[end:]
			}
		}
	}
}
