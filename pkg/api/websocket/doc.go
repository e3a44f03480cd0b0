// Package websocket provides real-time turn event streaming.
//
// Clients connect to /api/v1/conversations/:id/ws, send user messages
// as JSON frames and receive each turn's ordered event sequence.
package websocket
