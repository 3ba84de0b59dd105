package transport

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Request describes one API call.
type Request struct {
	Method string
	// PathTemplate may contain {name} placeholders, e.g. /api/test/user/{id}.
	PathTemplate string
	PathParams   map[string]string
	// Query parameters. A parameter that should be missing from the request
	// is simply left out.
	Query Query
}

// Query is an ordered-by-key set of query parameters.
type Query map[string]string

// Encode renders the query in key order. Empty values are kept, so
// "gender=" is distinct from an omitted gender.
func (q Query) Encode() string {
	if len(q) == 0 {
		return ""
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q[k]))
	}
	return b.String()
}

// Path expands the template. Parameter values are path-escaped; an empty
// value yields an empty segment.
func (r Request) Path() (string, error) {
	path := r.PathTemplate
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for {
		open := strings.IndexByte(path, '{')
		if open < 0 {
			break
		}
		end := strings.IndexByte(path[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("transport: unterminated placeholder in %q", r.PathTemplate)
		}
		name := path[open+1 : open+end]
		value, ok := r.PathParams[name]
		if !ok {
			return "", fmt.Errorf("transport: no value for path parameter %q in %q", name, r.PathTemplate)
		}
		path = path[:open] + url.PathEscape(value) + path[open+end+1:]
	}
	return path, nil
}

// Response is the raw result of a request.
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
	RequestID  string
}

// Error reports a request that produced no usable response.
type Error struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport: %s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsTransportError returns true if err is or wraps a *Error.
func IsTransportError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}
