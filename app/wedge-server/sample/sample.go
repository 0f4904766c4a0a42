// Package sample contains the handlers bundled with wedge-server.
package sample

import (
	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/converter"
	"wedge.io/wedge/lib/dispatch"
	"wedge.io/wedge/lib/runtime/scheme"
)

// Group is the group of the bundled handlers, e.g. "sample.Echo"
const Group = "sample"

// Users resolves user settings such as "user.<id>.password"
type Users interface {
	Lookup(key string) (string, bool)
}

// Deps are the services the bundled handlers depend on
type Deps struct {
	Issuer    *auth.Issuer
	Users     Users
	Messages  dispatch.MessageSource
	Converter *converter.Converter
}

// Register adds the bundled handlers to s
func Register(s *scheme.Scheme, deps Deps) error {
	regs := []scheme.Registration{
		{
			GroupKind: scheme.GroupKind{Group: Group, Kind: "Echo"},
			New:       func() any { return &Echo{} },
			NoToken:   true,
			RequestTypes: scheme.RequestTypes{
				Post: func() any { return &EchoRequest{} },
			},
		},
		{
			GroupKind: scheme.GroupKind{Group: Group, Kind: "Login"},
			New:       func() any { return &Login{issuer: deps.Issuer, users: deps.Users, messages: deps.Messages} },
			NoToken:   true,
			RequestTypes: scheme.RequestTypes{
				Post: func() any { return &LoginRequest{} },
			},
		},
		{
			GroupKind: scheme.GroupKind{Group: Group, Kind: "Logout"},
			New:       func() any { return &Logout{issuer: deps.Issuer} },
			RequestTypes: scheme.RequestTypes{
				Delete: func() any { return &LogoutRequest{} },
			},
		},
		{
			GroupKind: scheme.GroupKind{Group: Group, Kind: "Document"},
			New:       func() any { return &Document{converter: deps.Converter} },
			RequestTypes: scheme.RequestTypes{
				Post: func() any { return &DocumentRequest{} },
			},
		},
	}
	for _, reg := range regs {
		if err := s.AddKnownType(reg); err != nil {
			return err
		}
	}
	return nil
}
