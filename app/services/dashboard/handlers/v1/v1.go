// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/blocksim/blocksim/app/services/dashboard/handlers/v1/eventgrp"
	"github.com/blocksim/blocksim/app/services/dashboard/handlers/v1/ledgergrp"
	"github.com/blocksim/blocksim/business/core/session"
	"github.com/blocksim/blocksim/foundation/events"
	"github.com/blocksim/blocksim/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log      *zap.SugaredLogger
	Registry *session.Registry
	Evts     *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	lgh := ledgergrp.Handlers{
		Log:      cfg.Log,
		Registry: cfg.Registry,
	}

	app.Handle(http.MethodGet, version, "/sessions", lgh.ListSessions)
	app.Handle(http.MethodPost, version, "/sessions", lgh.CreateSession)
	app.Handle(http.MethodDelete, version, "/sessions/:id", lgh.DeleteSession)
	app.Handle(http.MethodGet, version, "/sessions/:id/stats", lgh.Stats)
	app.Handle(http.MethodGet, version, "/sessions/:id/blocks", lgh.Blocks)
	app.Handle(http.MethodPost, version, "/sessions/:id/blocks", lgh.AppendBlock)
	app.Handle(http.MethodGet, version, "/sessions/:id/balances", lgh.Balances)
	app.Handle(http.MethodGet, version, "/sessions/:id/balances/:address", lgh.Balances)
	app.Handle(http.MethodGet, version, "/sessions/:id/tx/pending", lgh.Pending)
	app.Handle(http.MethodPost, version, "/sessions/:id/tx/add", lgh.AddTransaction)
	app.Handle(http.MethodPost, version, "/sessions/:id/mine", lgh.Mine)
	app.Handle(http.MethodGet, version, "/sessions/:id/validate", lgh.Validate)
	app.Handle(http.MethodPost, version, "/sessions/:id/tamper", lgh.Tamper)
	app.Handle(http.MethodPost, version, "/sessions/:id/reset", lgh.Reset)
	app.Handle(http.MethodPost, version, "/sessions/:id/demo", lgh.Demo)
	app.Handle(http.MethodGet, version, "/sessions/:id/export", lgh.Export)
	app.Handle(http.MethodPost, version, "/sessions/:id/import", lgh.Import)

	evh := eventgrp.Handlers{
		Log:  cfg.Log,
		WS:   websocket.Upgrader{},
		Evts: cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", evh.Events)
}
