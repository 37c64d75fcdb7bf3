package kyugo

import (
	"net/http"
)

// Adapt converts a handler function that accepts our wrapper types into a
// standard http.HandlerFunc.
func Adapt(h func(*Response, *Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(NewResponse(w, r), NewRequest(r))
	}
}
