// Package hostspec expands bracketed host patterns into concrete hostnames.
//
// A pattern contains at most one bracketed expression, either a numeric
// range ("web[1-3].example.com") or a comma list ("db-[east,west]"); any
// literal prefix and suffix around the brackets is repeated in every
// expansion. Malformed patterns are hard failures, never best-effort
// guesses.
package hostspec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/HarrisonTotty/remote-framework/internal/errors"
)

// Sentinel errors for the expansion failure modes. They are surfaced to
// callers wrapped in a categorized *errors.Error.
var (
	ErrUnbalancedBrackets   = fmt.Errorf("host pattern does not have balanced brackets")
	ErrInvalidRange         = fmt.Errorf("host pattern is not a valid range expansion")
	ErrInvalidListExpansion = fmt.Errorf("host pattern is not a valid list expansion")
	ErrAmbiguousExpansion   = fmt.Errorf("host pattern specifies neither a range nor a list expansion")
)

var (
	rangeContentRegex = regexp.MustCompile(`^(\d+)-(\d+)$`)
	rangePatternRegex = regexp.MustCompile(`^[\w\-.]*(\[\d+-\d+\])[\w\-.]*$`)
	listPatternRegex  = regexp.MustCompile(`^[\w\-.]*(\[[\w,\-.]+\])[\w\-.]*$`)
)

// Expand turns a single host pattern into an ordered, non-empty list of
// hostnames. A pattern without brackets expands to itself.
func Expand(pattern string) ([]string, error) {
	hasOpen := strings.Contains(pattern, "[")
	hasClose := strings.Contains(pattern, "]")
	if !hasOpen && !hasClose {
		return []string{pattern}, nil
	}
	if hasOpen != hasClose {
		return nil, fail(pattern, ErrUnbalancedBrackets)
	}
	content := strings.SplitN(pattern, "[", 2)[1]
	if !strings.Contains(content, "]") {
		return nil, fail(pattern, ErrUnbalancedBrackets)
	}
	content = strings.SplitN(content, "]", 2)[0]

	switch {
	case rangeContentRegex.MatchString(content):
		return expandRange(pattern, content)
	case strings.Contains(content, ","):
		return expandList(pattern)
	default:
		return nil, fail(pattern, ErrAmbiguousExpansion)
	}
}

func expandRange(pattern, content string) ([]string, error) {
	m := rangePatternRegex.FindStringSubmatch(pattern)
	if m == nil {
		return nil, fail(pattern, ErrInvalidRange)
	}
	bounds := rangeContentRegex.FindStringSubmatch(content)
	lower, err := strconv.Atoi(bounds[1])
	if err != nil {
		return nil, fail(pattern, ErrInvalidRange)
	}
	upper, err := strconv.Atoi(bounds[2])
	if err != nil {
		return nil, fail(pattern, ErrInvalidRange)
	}
	if upper <= lower {
		return nil, &errors.Error{
			Category: errors.HostSpec,
			Message:  fmt.Sprintf("pattern %q: upper bound %d is not greater than lower bound %d", pattern, upper, lower),
			Err:      ErrInvalidRange,
		}
	}
	hosts := make([]string, 0, upper-lower+1)
	for i := lower; i <= upper; i++ {
		hosts = append(hosts, strings.Replace(pattern, m[1], strconv.Itoa(i), 1))
	}
	return hosts, nil
}

func expandList(pattern string) ([]string, error) {
	m := listPatternRegex.FindStringSubmatch(pattern)
	if m == nil {
		return nil, fail(pattern, ErrInvalidListExpansion)
	}
	tokens := strings.Split(strings.Trim(m[1], "[]"), ",")
	hosts := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if token == "" {
			return nil, fail(pattern, ErrInvalidListExpansion)
		}
		hosts = append(hosts, strings.Replace(pattern, m[1], token, 1))
	}
	return hosts, nil
}

func fail(pattern string, cause error) *errors.Error {
	return &errors.Error{
		Category: errors.HostSpec,
		Message:  fmt.Sprintf("pattern %q", pattern),
		Err:      cause,
	}
}
