// Package eventgrp maintains the group of handlers for streaming events.
package eventgrp

import (
	"context"
	"net/http"
	"time"

	"github.com/blocksim/blocksim/foundation/events"
	"github.com/blocksim/blocksim/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of event endpoints.
type Handlers struct {
	Log  *zap.SugaredLogger
	WS   websocket.Upgrader
	Evts *events.Events
}

// Events handles a web socket to provide events to a client. The session
// query parameter limits the events to a single session's chain.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	topic := r.URL.Query().Get("session")

	h.Log.Infow("events", "traceid", v.TraceID, "status", "subscribed", "session", topic)
	defer h.Log.Infow("events", "traceid", v.TraceID, "status", "released", "session", topic)

	ch := h.Evts.Acquire(v.TraceID, topic)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}

		case <-ctx.Done():
			return nil
		}
	}
}
