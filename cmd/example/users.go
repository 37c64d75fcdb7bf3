package main

import (
	"html"
	"net/http"

	"github.com/go-kyugo/fedkyugo"
)

// Users renders the HTML side of /users/{handle}. Requests asking for
// activity+json never reach it.
type Users struct {
	kyugo.Component
}

func (u *Users) RegisterRoutes(rt *kyugo.Router) {
	rt.Get("/users/{handle}", u.Show).Name("users.show")
}

func (u *Users) Show(res *kyugo.Response, req *kyugo.Request) {
	res.HTML(http.StatusOK, "<p>Hello, "+html.EscapeString(req.Param("handle"))+"!</p>")
}
