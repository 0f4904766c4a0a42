package scheme

import (
	"fmt"
	"strings"
)

// GroupKind unambiguously identifies a handler type, e.g. "sample.Echo"
type GroupKind struct {
	Group string
	Kind  string
}

// ParseGroupKind parses a qualified name "group.Kind". The group may itself contain dots,
// the kind is the part after the last dot.
func ParseGroupKind(s string) (GroupKind, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return GroupKind{}, fmt.Errorf("invalid qualified type name %q; want group.Kind", s)
	}
	return GroupKind{Group: s[:i], Kind: s[i+1:]}, nil
}

// Empty returns true if group and kind are empty
func (gk GroupKind) Empty() bool {
	return len(gk.Group) == 0 && len(gk.Kind) == 0
}

func (gk GroupKind) String() string {
	return gk.Group + "." + gk.Kind
}
