package rest

import "net/http"

// FilterFunction definitions must call ProcessFilter on the FilterChain to pass on the control and eventually call the RouteFunction
type FilterFunction func(w http.ResponseWriter, r *http.Request, chain *FilterChain)

// FilterChain is a request scoped object to process one or more filters before calling the target RouteFunction.
type FilterChain struct {
	Filters []FilterFunction // ordered list of FilterFunction
	Index   int              // index into filters that is currently in progress
	Target  RouteFunction    // function to call after passing all filters
}

// ProcessFilter passes the request,response pair through the next of Filters.
// Each filter can decide to proceed to the next Filter or handle the Response itself.
func (f *FilterChain) ProcessFilter(w http.ResponseWriter, r *http.Request) {
	if f.Index < len(f.Filters) {
		f.Index++
		f.Filters[f.Index-1](w, r, f)
	} else {
		f.Target(w, r)
	}
}
