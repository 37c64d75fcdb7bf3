// Package fetch provides immutable Request and Response values modelled on
// the Fetch API, together with the ordered Headers collection and the
// pull-based Stream used for bodies.
//
// Bodies are never buffered implicitly. A Stream produces a chunk only when
// its StreamReader asks for one, and a reader's claim is released exactly
// once through StreamReader.Release.
package fetch
