package lflag

import (
	"strings"
	"sync"
)

var (
	secretFlags     = make(map[string]bool)
	secretFlagsLock sync.RWMutex
)

// RegisterSecretFlag registers flagName as secret.
//
// Secret flags aren't exposed at /metrics page and in WriteFlags output.
func RegisterSecretFlag(flagName string) {
	lname := strings.ToLower(flagName)
	secretFlagsLock.Lock()
	secretFlags[lname] = true
	secretFlagsLock.Unlock()
}

// IsSecretFlag returns true if s contains flag name with secret value, which shouldn't be exposed.
func IsSecretFlag(s string) bool {
	if strings.Contains(s, "pass") || strings.Contains(s, "key") || strings.Contains(s, "secret") || strings.Contains(s, "token") {
		return true
	}
	secretFlagsLock.RLock()
	defer secretFlagsLock.RUnlock()
	return secretFlags[s]
}
