package lflag

import (
	"os"
	"strings"
)

// ReplaceString replaces %{ENV_VAR} placeholders in s with the values of the corresponding env vars.
//
// Placeholders for missing env vars are left as is.
func ReplaceString(s string) string {
	if !strings.Contains(s, "%{") {
		return s
	}
	var b strings.Builder
	for {
		n := strings.Index(s, "%{")
		if n < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:n])
		s = s[n+2:]
		end := strings.IndexByte(s, '}')
		if end < 0 {
			b.WriteString("%{")
			b.WriteString(s)
			break
		}
		name := s[:end]
		s = s[end+1:]
		if v, ok := os.LookupEnv(name); ok {
			b.WriteString(v)
			continue
		}
		b.WriteString("%{")
		b.WriteString(name)
		b.WriteString("}")
	}
	return b.String()
}
