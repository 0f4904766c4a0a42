package filters

import (
	"fmt"
	"net/http"
	"strings"

	"wedge.io/wedge/lib/appcontext"
	"wedge.io/wedge/lib/auth"
	"wedge.io/wedge/lib/rest"
)

// RejectFunc writes the response for a request failing token verification
type RejectFunc func(w http.ResponseWriter, r *http.Request, err error)

// TokenFilter returns a route filter verifying the bearer token of the request.
//
// The check is skipped if user management is disabled in app. Otherwise the token must verify
// against issuer and the principal's role must be authorized for the request path.
// The principal is stored in the request context for the next filters.
func TokenFilter(issuer *auth.Issuer, app *appcontext.ApplicationContext, reject RejectFunc) rest.FilterFunction {
	return func(w http.ResponseWriter, r *http.Request, chain *rest.FilterChain) {
		if !app.UserManagementEnabled {
			chain.ProcessFilter(w, r)
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			reject(w, r, auth.ErrNoToken)
			return
		}
		p, err := issuer.Verify(token)
		if err != nil {
			reject(w, r, err)
			return
		}
		if !app.Authorized(p.Role, r.URL.Path) {
			reject(w, r, fmt.Errorf("%w: role %q may not access %s", auth.ErrForbidden, p.Role, r.URL.Path))
			return
		}
		chain.ProcessFilter(w, r.WithContext(auth.WithPrincipal(r.Context(), p, token)))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
