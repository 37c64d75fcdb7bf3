// Package federation bridges a net/http handler chain and a federation
// handler written against the immutable Request/Response values of package
// fetch.
//
// Integrate returns a middleware. For each request it
//
//   - translates the *http.Request into a fetch.Request (absolute URL,
//     flattened headers, body attached as a stream for methods that carry
//     one),
//   - calls Federation.Fetch with the caller's context data and the
//     OnNotFound/OnNotAcceptable callbacks,
//   - branches once on the outcome: not found continues to the next
//     handler, not acceptable is resolved by the configured Strategy, and a
//     handled response is streamed onto the http.ResponseWriter, after which
//     the exchange is finalized and further writes are ignored.
//
// Exactly one of "response written", "not found" and "not acceptable"
// happens per exchange. The adapter never writes after handing the request
// to the next handler, except for the 406 of StrategyStrict, which is only
// sent when the downstream chain produced nothing but its own not-found
// answer, and that answer is withheld.
package federation
