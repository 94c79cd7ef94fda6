package server

import "net/http"

type Server interface {
	Options() Options
	Handle(path string, h http.Handler, methods ...string)
	Start() error
	Stop() error
}
