// Package websocket provides real-time event streaming via WebSocket.
//
// Clients can connect to /api/v1/runs/:id/ws to receive workflow and unit
// events of a single run as they are published.
package websocket
