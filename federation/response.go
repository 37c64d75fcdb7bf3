package federation

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-kyugo/fedkyugo/fetch"
)

// projectResponse writes res onto w: headers, then status, then the body
// chunk by chunk. A chunk is pulled only after the previous one has been
// written and flushed. The body's reader claim is released and the body
// closed exactly once on every path.
func projectResponse(ctx context.Context, w http.ResponseWriter, res *fetch.Response) (int64, error) {
	h := w.Header()
	for name, value := range res.Headers().All() {
		h.Add(name, value)
	}
	w.WriteHeader(res.Status())

	body := res.Body()
	if body == nil {
		return 0, nil
	}
	defer body.Close()

	rd, err := body.GetReader()
	if err != nil {
		return 0, err
	}
	defer rd.Release()

	rc := http.NewResponseController(w)
	var written int64
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		chunk, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return written, nil
		}
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return written, err
		}
	}
}
