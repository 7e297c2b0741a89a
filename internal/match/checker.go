package match

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
)

// dateOnly is the accepted short form for daterange bounds.
const dateOnly = "2006-01-02"

// Checker evaluates condition lists against a fixed Context.
//
// Conditions are ANDed in order and evaluation stops at the first failure.
// Not negates a condition's result. A condition whose param the Checker does
// not know, or whose values are missing, passes.
type Checker struct {
	ctx    Context
	logger *slog.Logger

	mu    sync.Mutex
	regex map[string]*regexp.Regexp // nil entry: pattern failed to compile
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used to report unusable patterns and dates.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChecker creates a Checker for ctx.
func NewChecker(ctx Context, opts ...Option) *Checker {
	c := &Checker{
		ctx:    ctx,
		logger: slog.Default(),
		regex:  make(map[string]*regexp.Regexp),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Allow reports whether every condition holds.
func (c *Checker) Allow(conds []Condition) bool {
	for _, cond := range conds {
		ok, known := c.check(cond)
		if !known {
			continue
		}
		if cond.Not {
			ok = !ok
		}
		if !ok {
			return false
		}
	}
	return true
}

// check evaluates one condition. known is false for unknown params.
func (c *Checker) check(cond Condition) (ok, known bool) {
	switch cond.Param {
	case ParamPath:
		return c.checkValue(cond, c.ctx.Path), true
	case ParamHost:
		return c.checkValue(cond, c.ctx.Host), true
	case ParamQuery:
		return c.checkLookup(cond, c.ctx.Query), true
	case ParamCookie:
		return c.checkLookup(cond, c.ctx.Cookies), true
	case ParamDate:
		return c.checkDate(cond), true
	default:
		return false, false
	}
}

func (c *Checker) checkValue(cond Condition, value string) bool {
	if cond.Values == nil {
		return true
	}
	return c.test(cond, value)
}

// checkLookup tests a named query parameter or cookie. A missing or empty
// value fails.
func (c *Checker) checkLookup(cond Condition, values map[string]string) bool {
	if cond.ParamName == "" || cond.Values == nil {
		return true
	}
	v := values[cond.ParamName]
	if v == "" {
		return false
	}
	return c.test(cond, v)
}

func (c *Checker) test(cond Condition, value string) bool {
	switch cond.Condition {
	case OpContains:
		return strings.Contains(value, cond.Values.Scalar)
	case OpRegex:
		re := c.compile(cond.Values.Pattern)
		if re == nil {
			return false
		}
		return re.MatchString(value)
	default:
		return true
	}
}

// compile returns the case-insensitive regexp for pattern, or nil if it does
// not compile.
func (c *Checker) compile(pattern string) *regexp.Regexp {
	c.mu.Lock()
	defer c.mu.Unlock()

	if re, ok := c.regex[pattern]; ok {
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		c.logger.Warn("invalid match pattern", "pattern", pattern, "error", err)
		re = nil
	}
	c.regex[pattern] = re
	return re
}

func (c *Checker) checkDate(cond Condition) bool {
	if cond.Values == nil {
		return true
	}
	now := c.ctx.now()

	switch cond.Condition {
	case OpDateRange:
		if min, ok := c.parseBound(cond.Values.Min); ok && min.After(now) {
			return false
		}
		if max, ok := c.parseBound(cond.Values.Max); ok && max.Before(now) {
			return false
		}
		return true
	case OpDayOfWeek:
		if len(cond.Values.Days) == 0 {
			return true
		}
		return slices.Contains(cond.Values.Days, int(now.Weekday()))
	default:
		return true
	}
}

// parseBound parses a daterange bound. Empty and unparseable bounds are
// treated as unbounded.
func (c *Checker) parseBound(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := ParseDate(s)
	if err != nil {
		c.logger.Warn("invalid date bound", "value", s, "error", err)
		return time.Time{}, false
	}
	return t, true
}

// ParseDate parses a daterange bound the way the Checker does.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(dateOnly, s)
}
