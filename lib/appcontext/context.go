package appcontext

import (
	"fmt"
	"os"
	"regexp"
	"sync"
	"time"
)

// Principal is the authenticated caller bound to a token
type Principal struct {
	UserID string
	Role   string
}

// RoleACL grants Role access to request paths matching Pattern
type RoleACL struct {
	Role    string
	Pattern string

	re *regexp.Regexp
}

// NewRoleACL compiles pattern; it must match the whole request path
func NewRoleACL(role, pattern string) (RoleACL, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return RoleACL{}, fmt.Errorf("invalid ACL pattern %q for role %q: %w", pattern, role, err)
	}
	return RoleACL{Role: role, Pattern: pattern, re: re}, nil
}

// Matches returns true if path is covered by the entry
func (a RoleACL) Matches(path string) bool {
	return a.re != nil && a.re.MatchString(path)
}

// ApplicationContext holds the process wide state shared by all requests
type ApplicationContext struct {
	HostName              string
	ApplicationID         string
	ContextPath           string
	UserManagementEnabled bool

	mu     sync.RWMutex
	tokens map[string]tokenBinding
	acl    []RoleACL
}

type tokenBinding struct {
	principal Principal
	// zero means the binding never expires
	expiresAt time.Time
}

// New returns an ApplicationContext for the running host
func New(applicationID, contextPath string, userManagementEnabled bool) *ApplicationContext {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return &ApplicationContext{
		HostName:              host,
		ApplicationID:         applicationID,
		ContextPath:           contextPath,
		UserManagementEnabled: userManagementEnabled,
		tokens:                make(map[string]tokenBinding),
	}
}

// PutToken binds token to p until it is removed, replacing any previous binding
func (c *ApplicationContext) PutToken(token string, p Principal) {
	c.PutTokenUntil(token, p, time.Time{})
}

// PutTokenUntil binds token to p. The binding is dropped by RemoveExpiredTokens after expiresAt.
func (c *ApplicationContext) PutTokenUntil(token string, p Principal, expiresAt time.Time) {
	c.mu.Lock()
	c.tokens[token] = tokenBinding{principal: p, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Token returns the principal bound to token
func (c *ApplicationContext) Token(token string) (Principal, bool) {
	c.mu.RLock()
	b, ok := c.tokens[token]
	c.mu.RUnlock()
	return b.principal, ok
}

// RemoveExpiredTokens unbinds every token whose expiry is before now and returns their number
func (c *ApplicationContext) RemoveExpiredTokens(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for token, b := range c.tokens {
		if !b.expiresAt.IsZero() && b.expiresAt.Before(now) {
			delete(c.tokens, token)
			n++
		}
	}
	return n
}

// RemoveToken unbinds token and reports whether it was bound
func (c *ApplicationContext) RemoveToken(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tokens[token]; !ok {
		return false
	}
	delete(c.tokens, token)
	return true
}

// RemoveUserTokens unbinds every token of userID and returns their number
func (c *ApplicationContext) RemoveUserTokens(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for token, b := range c.tokens {
		if b.principal.UserID == userID {
			delete(c.tokens, token)
			n++
		}
	}
	return n
}

// TokenCount returns the number of bound tokens
func (c *ApplicationContext) TokenCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tokens)
}

// SetRoleACL replaces the role ACL list
func (c *ApplicationContext) SetRoleACL(acl []RoleACL) {
	list := make([]RoleACL, len(acl))
	copy(list, acl)
	c.mu.Lock()
	c.acl = list
	c.mu.Unlock()
}

// RoleACL returns a copy of the role ACL list
func (c *ApplicationContext) RoleACL() []RoleACL {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list := make([]RoleACL, len(c.acl))
	copy(list, c.acl)
	return list
}

// Authorized reports whether role may access path.
//
// Paths not covered by any ACL entry are open to every role.
func (c *ApplicationContext) Authorized(role, path string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	covered := false
	for _, a := range c.acl {
		if !a.Matches(path) {
			continue
		}
		if a.Role == role {
			return true
		}
		covered = true
	}
	return !covered
}
