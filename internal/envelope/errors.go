package envelope

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const snippetLimit = 64

// DecodeError reports a response body that is not parseable as JSON.
// A scenario that hits it is inconclusive, never a pass.
type DecodeError struct {
	StatusCode int
	// Snippet is the leading part of the body, for diagnostics.
	Snippet string
	Length  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode: body is not valid JSON (status=%d, length=%d): %q", e.StatusCode, e.Length, e.Snippet)
}

func newDecodeError(status int, body []byte) *DecodeError {
	snippet := body
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
		for len(snippet) > 0 && !utf8.Valid(snippet) {
			snippet = snippet[:len(snippet)-1]
		}
	}
	return &DecodeError{
		StatusCode: status,
		Snippet:    string(snippet),
		Length:     len(body),
	}
}

// IsDecodeError returns true if err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
