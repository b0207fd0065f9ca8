// Package server exposes HTTP handlers, including WebSocket upgrades and the
// health check.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler returns the upgrade handler bound to engine. It validates
// that the request uses the GET method, upgrades the HTTP connection to
// WebSocket, and hands the new client to the engine, which registers it and
// starts its pumps.
func WebSocketHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		engine.Accept(NewClient(conn, engine, r.RemoteAddr))
	}
}

// HealthHandler provides a simple health check endpoint that returns relay
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Global Network relay is running!")
}
