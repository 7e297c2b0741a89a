package match

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Context is the page state conditions are evaluated against.
type Context struct {
	Path    string
	Host    string
	Query   map[string]string
	Cookies map[string]string

	// Now is the evaluation time for date conditions.
	// Zero means time.Now().
	Now time.Time
}

// NewContext builds a Context from a page URL and a Cookie header value.
func NewContext(rawURL, cookieHeader string, now time.Time) (Context, error) {
	ctx := Context{
		Query:   map[string]string{},
		Cookies: ParseCookies(cookieHeader),
		Now:     now,
	}
	if rawURL == "" {
		return ctx, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Context{}, fmt.Errorf("parse page url: %w", err)
	}

	ctx.Path = u.Path
	ctx.Host = u.Hostname()
	for key, vals := range u.Query() {
		if len(vals) > 0 {
			ctx.Query[key] = vals[0]
		}
	}
	return ctx, nil
}

// ParseCookies splits a Cookie header ("a=1; b=2") into a map. Names and
// values are trimmed; a pair without "=" maps to "".
func ParseCookies(header string) map[string]string {
	out := map[string]string{}
	if strings.TrimSpace(header) == "" {
		return out
	}
	for _, pair := range strings.Split(header, ";") {
		name, value, _ := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out[name] = strings.TrimSpace(value)
	}
	return out
}

func (c Context) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}
