package federation

import (
	"errors"
	"maps"
	"net/http"
)

// ErrFinalized is returned by writes attempted after the adapter finalized
// an exchange.
var ErrFinalized = errors.New("federation: response already finalized")

// guardWriter is the writer the adapter projects through. Once finalized,
// every mutation is a no-op. It has no Unwrap so the underlying writer
// cannot be reached around the guard. The guard is dropped after
// finalize and next is never called for a handled exchange, so in the
// middleware nothing writes through a finalized guard.
type guardWriter struct {
	w         http.ResponseWriter
	finalized bool
	discard   http.Header
}

func newGuardWriter(w http.ResponseWriter) *guardWriter {
	return &guardWriter{w: w}
}

func (g *guardWriter) Header() http.Header {
	if g.finalized {
		// a fresh map each time so nothing set here is ever observed
		g.discard = http.Header{}
		return g.discard
	}
	return g.w.Header()
}

func (g *guardWriter) WriteHeader(code int) {
	if g.finalized {
		return
	}
	g.w.WriteHeader(code)
}

func (g *guardWriter) Write(b []byte) (int, error) {
	if g.finalized {
		return 0, ErrFinalized
	}
	return g.w.Write(b)
}

func (g *guardWriter) FlushError() error {
	if g.finalized {
		return nil
	}
	return http.NewResponseController(g.w).Flush()
}

func (g *guardWriter) Flush() {
	_ = g.FlushError()
}

// finalize ends the exchange: a last flush, then the guard closes. It
// reports whether this call did the finalizing.
func (g *guardWriter) finalize() bool {
	if g.finalized {
		return false
	}
	_ = g.FlushError()
	g.finalized = true
	return true
}

type deferState int

const (
	deferPending deferState = iota
	deferCommitted
	deferSuppressed
)

// deferredWriter sits between the adapter and the downstream chain after a
// not-acceptable outcome. Headers are staged until the chain starts its
// response; the probe then decides whether that response belongs to a
// matched route (committed and passed through) or is the router's own
// not-found answer (suppressed so the adapter can send its 406).
type deferredWriter struct {
	w      http.ResponseWriter
	probe  RouteProbe
	header http.Header
	state  deferState
}

func newDeferredWriter(w http.ResponseWriter, probe RouteProbe) *deferredWriter {
	return &deferredWriter{w: w, probe: probe, header: w.Header().Clone()}
}

func (d *deferredWriter) decide(status int) {
	if d.state != deferPending {
		return
	}
	if !d.probe(status) {
		d.state = deferSuppressed
		return
	}
	dst := d.w.Header()
	clear(dst)
	maps.Copy(dst, d.header)
	d.state = deferCommitted
}

func (d *deferredWriter) Header() http.Header {
	if d.state == deferCommitted {
		return d.w.Header()
	}
	return d.header
}

func (d *deferredWriter) WriteHeader(code int) {
	d.decide(code)
	if d.state == deferCommitted {
		d.w.WriteHeader(code)
	}
}

func (d *deferredWriter) Write(b []byte) (int, error) {
	d.decide(http.StatusOK)
	if d.state == deferCommitted {
		return d.w.Write(b)
	}
	return len(b), nil
}

func (d *deferredWriter) FlushError() error {
	if d.state != deferCommitted {
		return nil
	}
	return http.NewResponseController(d.w).Flush()
}

func (d *deferredWriter) Flush() {
	_ = d.FlushError()
}

// Unwrap is only meaningful once committed; before that the staged state
// must not be bypassed.
func (d *deferredWriter) Unwrap() http.ResponseWriter {
	if d.state == deferCommitted {
		return d.w
	}
	return nil
}
