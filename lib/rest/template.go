package rest

import (
	"fmt"
	"regexp"
	"strings"
)

// pathToken is one compiled segment of a path template.
//
//	users          literal
//	{id}           parameter matching any non-empty segment
//	{id:[0-9]+}    parameter matching the anchored expression
//	{path:*}       parameter matching all remaining segments; must be last
type pathToken struct {
	literal string
	name    string
	pattern *regexp.Regexp
	tail    bool
}

func (t pathToken) isParam() bool {
	return t.name != ""
}

// match reports whether the request path segment satisfies t
func (t pathToken) match(segment string) bool {
	if !t.isParam() {
		return segment == t.literal
	}
	if segment == "" {
		return false
	}
	return t.pattern == nil || t.pattern.MatchString(segment)
}

// tokenizePath splits path into its segments; the root path has none
func tokenizePath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// parsePathTemplate compiles a path template such as /api/{route}/{param:[0-9]+}
func parsePathTemplate(path string) ([]pathToken, error) {
	parts := tokenizePath(path)
	tokens := make([]pathToken, 0, len(parts))
	for i, part := range parts {
		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, fmt.Errorf("unexpected brace in segment %q of %q", part, path)
			}
			tokens = append(tokens, pathToken{literal: part})
			continue
		}
		if !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("unterminated parameter %q in %q", part, path)
		}
		name, expr, hasExpr := strings.Cut(part[1:len(part)-1], ":")
		t := pathToken{name: strings.TrimSpace(name)}
		if t.name == "" {
			return nil, fmt.Errorf("parameter without name in %q", path)
		}
		if hasExpr {
			expr = strings.TrimSpace(expr)
			switch expr {
			case "":
				return nil, fmt.Errorf("empty expression for parameter %q in %q", t.name, path)
			case "*":
				if i != len(parts)-1 {
					return nil, fmt.Errorf("parameter %q matching the remaining path must be the last segment of %q", t.name, path)
				}
				t.tail = true
			default:
				re, err := regexp.Compile("^(?:" + expr + ")$")
				if err != nil {
					return nil, fmt.Errorf("invalid expression for parameter %q in %q: %w", t.name, path, err)
				}
				t.pattern = re
			}
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}

// matchPath reports whether tokens match all of segments and counts the matched parameters and literals
func matchPath(tokens []pathToken, segments []string) (paramCount, staticCount int, ok bool) {
	for i, t := range tokens {
		if i >= len(segments) {
			return 0, 0, false
		}
		if t.tail {
			return paramCount + 1, staticCount, true
		}
		if !t.match(segments[i]) {
			return 0, 0, false
		}
		if t.isParam() {
			paramCount++
		} else {
			staticCount++
		}
	}
	if len(tokens) != len(segments) {
		return 0, 0, false
	}
	return paramCount, staticCount, true
}

// matchPrefix reports whether tokens match the leading segments.
// The score favours literals and literals close to the start of the path.
func matchPrefix(tokens []pathToken, segments []string) (score int, ok bool) {
	if len(tokens) > len(segments) {
		return 0, false
	}
	for i, t := range tokens {
		if t.tail {
			return score + 1, true
		}
		if !t.match(segments[i]) {
			return 0, false
		}
		if t.isParam() {
			score++
		} else {
			score += (len(tokens) - i) * 10
		}
	}
	return score, true
}
