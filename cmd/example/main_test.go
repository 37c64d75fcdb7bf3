package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-kyugo/fedkyugo"
	"github.com/go-kyugo/fedkyugo/config"
	"github.com/go-kyugo/fedkyugo/federation"
)

func request(h http.Handler, target, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestApp(t *testing.T) {
	srv, err := newApp(&config.Config{Federation: config.FederationConfig{TrustProxy: true}})
	require.NoError(t, err)
	h := srv.Handler()

	t.Run("actor document", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/alice", nil)
		req.Host = "social.example"
		req.Header.Set("Accept", activityJSON)
		req.Header.Set("X-Forwarded-Proto", "https")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, activityJSON, rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{
			"@context": "https://www.w3.org/ns/activitystreams",
			"id": "https://social.example/users/alice",
			"type": "Person",
			"preferredUsername": "alice",
			"name": "Alice",
			"summary": "Writes about gardens.",
			"inbox": "https://social.example/users/alice/inbox",
			"outbox": "https://social.example/users/alice/outbox"
		}`, rec.Body.String())
	})

	t.Run("html fallback", func(t *testing.T) {
		rec := request(h, "/users/alice", "text/html")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "<p>Hello, alice!</p>", rec.Body.String())
	})

	t.Run("unknown actor renders html", func(t *testing.T) {
		rec := request(h, "/users/carol", activityJSON)
		assert.Equal(t, "<p>Hello, carol!</p>", rec.Body.String())
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, request(h, "/notes/1", activityJSON).Code)
	})

	u, ok := srv.Router().URLFor("users.show", map[string]string{"handle": "bob"})
	require.True(t, ok)
	assert.Equal(t, "/users/bob", u)
	assert.NotNil(t, srv.Service("actors"))
}

func TestActorFederation_NotAcceptableWithoutHTMLRoute(t *testing.T) {
	srv, err := kyugo.NewServer(kyugo.Options{Config: &config.Config{}})
	require.NoError(t, err)
	factory := func(*http.Request) (Directory, error) { return demoDirectory(), nil }
	require.NoError(t, kyugo.Federate(srv, actorFederation(), factory, federation.Options{}))

	rec := request(srv.Handler(), "/users/alice", activityJSON)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, activityJSON, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"id":"http://example.com/users/alice"`)

	rec = request(srv.Handler(), "/users/bob", "text/html")
	assert.Equal(t, http.StatusNotAcceptable, rec.Code)
	assert.Equal(t, "Accept", rec.Header().Get("Vary"))

	rec = request(srv.Handler(), "/users/bob/", activityJSON)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectoryFor(t *testing.T) {
	dir := directoryFor(nil)
	a, ok, err := dir.Lookup(context.Background(), "bob")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bob", a.Name)

	_, ok, err = dir.Lookup(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}
