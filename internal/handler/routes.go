package handler

import (
	"net/http"

	"github.com/w-h-a/upserter/server"
	toolhandler "github.com/w-h-a/upserter/tool_handler"
)

func Register(srv server.Server, upserter Upserter, metrics *Metrics, tools ...toolhandler.ToolHandler) {
	srv.Handle("/api/v1/resolve", NewResolve(upserter, metrics), http.MethodPost)
	srv.Handle("/api/v1/records/{id}", NewRecords(upserter), http.MethodGet)
	srv.Handle("/api/v1/tools", NewTools(metrics, tools...), http.MethodPost)
	srv.Handle("/metrics", metrics.Handler(), http.MethodGet)
}
