/*
Package handler provides the HTTP handlers and routing setup for the MapFrens backend.

This file contains the minimal status surface: a root service banner and a
health check, both reporting the current connection count.
*/
package handler

import (
	"net/http"
	"time"

	"github.com/mdmisri/mapfrens-backend/internal/pkg/resp"
)

// ServiceVersion is reported by the root endpoint.
const ServiceVersion = "2.0.0"

// HandleRoot returns the service banner with version, connection count, and endpoint map.
func HandleRoot(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"message":        "MapFrens - Real-time Location Sharing",
			"version":        ServiceVersion,
			"connectedUsers": deps.Hub.ConnectionCount(),
			"endpoints": map[string]string{
				"health":    "/health",
				"websocket": "/ws",
			},
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleHealth reports process health and the current connection count.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"status":         "OK",
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"connectedUsers": deps.Hub.ConnectionCount(),
		}
		resp.RespondSuccess(w, r, data)
	}
}
