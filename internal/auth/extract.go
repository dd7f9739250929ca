package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenSource exposes the request parts a token may travel in.
type TokenSource interface {
	Header(name string) string
	Query(name string) string
}

// Locations lists where a token is looked up, in priority order. Query names
// are consulted only when AllowQuery is set, which is reserved for endpoints
// that cannot carry custom headers (direct resource links).
type Locations struct {
	Headers    []string
	Query      []string
	AllowQuery bool
}

// WithQuery returns a copy of l that also accepts query parameters.
func (l Locations) WithQuery() Locations {
	l.AllowQuery = true
	return l
}

// Extract returns the first non-empty token found in src.
func Extract(src TokenSource, loc Locations) (string, error) {
	for _, name := range loc.Headers {
		if v := stripBearer(src.Header(name)); v != "" {
			return v, nil
		}
	}
	if loc.AllowQuery {
		for _, name := range loc.Query {
			if v := strings.TrimSpace(src.Query(name)); v != "" {
				return v, nil
			}
		}
	}
	return "", ErrTokenMissing
}

func stripBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) > 7 && strings.EqualFold(v[:7], "Bearer ") {
		return strings.TrimSpace(v[7:])
	}
	return v
}

type fiberSource struct {
	c *fiber.Ctx
}

// FiberSource adapts a fiber request to TokenSource.
func FiberSource(c *fiber.Ctx) TokenSource {
	return fiberSource{c: c}
}

func (s fiberSource) Header(name string) string { return s.c.Get(name) }

func (s fiberSource) Query(name string) string { return s.c.Query(name) }
