package federation

import (
	"net/http"
	"strings"

	"github.com/go-kyugo/fedkyugo/fetch"
)

// translateRequest builds the fetch.Request handed to the federation. The
// native body is attached as a stream and never read here.
func translateRequest(r *http.Request, trustProxy bool) (*fetch.Request, error) {
	headers := fetch.HeadersFrom(r.Header)
	if r.Host != "" && !headers.Has("host") {
		headers.Append("Host", r.Host)
	}

	var body *fetch.Stream
	if fetch.MethodAllowsBody(r.Method) && r.Body != nil && r.Body != http.NoBody {
		body = fetch.NewStream(r.Body)
	}

	return fetch.NewRequest(r.Method, requestURL(r, trustProxy), fetch.RequestInit{
		Headers: headers,
		Body:    body,
	})
}

// requestURL reconstructs scheme://host/path?query. The Host header wins
// over any host inferred from proxy headers or the request line.
func requestURL(r *http.Request, trustProxy bool) string {
	return requestScheme(r, trustProxy) + "://" + requestHost(r, trustProxy) + r.URL.RequestURI()
}

func requestScheme(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if proto := firstValue(r.Header.Get("X-Forwarded-Proto")); proto != "" {
			return strings.ToLower(proto)
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func requestHost(r *http.Request, trustProxy bool) string {
	if r.Host != "" {
		return r.Host
	}
	if trustProxy {
		if host := firstValue(r.Header.Get("X-Forwarded-Host")); host != "" {
			return host
		}
	}
	if r.URL.Host != "" {
		return r.URL.Host
	}
	return "localhost"
}

// firstValue returns the first element of a comma-separated proxy header.
func firstValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
