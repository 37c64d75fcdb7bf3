package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-kyugo/fedkyugo/database"
	"github.com/go-kyugo/fedkyugo/federation"
	"github.com/go-kyugo/fedkyugo/fetch"
)

const activityJSON = "application/activity+json"

// Actor is the directory entry rendered as an ActivityPub Person.
type Actor struct {
	Handle  string
	Name    string
	Summary string
}

// Directory resolves local actors by handle.
type Directory interface {
	Lookup(ctx context.Context, handle string) (Actor, bool, error)
}

type staticDirectory map[string]Actor

func (d staticDirectory) Lookup(_ context.Context, handle string) (Actor, bool, error) {
	a, ok := d[handle]
	return a, ok, nil
}

func demoDirectory() staticDirectory {
	return staticDirectory{
		"alice": {Handle: "alice", Name: "Alice", Summary: "Writes about gardens."},
		"bob":   {Handle: "bob", Name: "Bob"},
	}
}

// sqlDirectory reads actors from the actors(handle, name, summary) table.
type sqlDirectory struct {
	db *database.DB
}

func (d sqlDirectory) Lookup(ctx context.Context, handle string) (Actor, bool, error) {
	a := Actor{Handle: handle}
	var summary sql.NullString
	err := d.db.SQL.QueryRowContext(ctx,
		`SELECT name, summary FROM actors WHERE handle = $1`, handle,
	).Scan(&a.Name, &summary)
	if errors.Is(err, sql.ErrNoRows) {
		return Actor{}, false, nil
	}
	if err != nil {
		return Actor{}, false, err
	}
	a.Summary = summary.String
	return a, true, nil
}

// directoryFor picks the SQL directory when a database is configured.
func directoryFor(db *database.DB) Directory {
	if db != nil {
		return sqlDirectory{db: db}
	}
	return demoDirectory()
}

type person struct {
	Context           string `json:"@context"`
	ID                string `json:"id"`
	Type              string `json:"type"`
	PreferredUsername string `json:"preferredUsername"`
	Name              string `json:"name,omitempty"`
	Summary           string `json:"summary,omitempty"`
	Inbox             string `json:"inbox"`
	Outbox            string `json:"outbox"`
}

func accepts(req *fetch.Request) bool {
	for _, v := range req.Headers().Values("accept") {
		if strings.Contains(v, activityJSON) || strings.Contains(v, "application/ld+json") {
			return true
		}
	}
	return false
}

// actorFederation serves actor documents for /users/{handle}. Everything
// else is left to the router.
func actorFederation() federation.FederationFunc[Directory] {
	return func(ctx context.Context, req *fetch.Request, opts federation.FetchOptions[Directory]) (*fetch.Response, error) {
		if req.Method() != http.MethodGet && req.Method() != http.MethodHead {
			return opts.OnNotFound(req), nil
		}
		handle, ok := strings.CutPrefix(req.URL().Path, "/users/")
		if !ok || handle == "" || strings.Contains(handle, "/") {
			return opts.OnNotFound(req), nil
		}
		actor, found, err := opts.ContextData.Lookup(ctx, handle)
		if err != nil {
			return nil, err
		}
		if !found {
			return opts.OnNotFound(req), nil
		}
		if !accepts(req) {
			return opts.OnNotAcceptable(req), nil
		}

		u := req.URL()
		id := u.Scheme + "://" + u.Host + "/users/" + actor.Handle
		body, err := json.Marshal(person{
			Context:           "https://www.w3.org/ns/activitystreams",
			ID:                id,
			Type:              "Person",
			PreferredUsername: actor.Handle,
			Name:              actor.Name,
			Summary:           actor.Summary,
			Inbox:             id + "/inbox",
			Outbox:            id + "/outbox",
		})
		if err != nil {
			return nil, err
		}

		h := fetch.NewHeaders()
		h.Set("Content-Type", activityJSON)
		h.Set("Vary", "Accept")
		return fetch.NewResponse(fetch.NewBytesStream(body), fetch.ResponseInit{Headers: h}), nil
	}
}
