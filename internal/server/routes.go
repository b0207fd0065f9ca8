// Package server wires HTTP handlers into a ServeMux for the relay via
// routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all relay routes:
// the health check and the WebSocket endpoint.
func SetupRoutes(engine *Engine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.Handle("/ws", WebSocketHandler(engine))
	return mux
}
