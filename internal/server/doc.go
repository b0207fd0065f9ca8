// Package server implements the real-time messaging relay for the Global
// Network application: the WebSocket transport, the connection registry, the
// relay engine that executes the chat protocol, and the liveness sweep.
//
// The implementation is organized into specialized files for configuration,
// frames, the registry, clients, the engine, and HTTP handlers to keep the
// codebase maintainable and testable as the project grows.
package server
