/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which is responsible for rate limiting,
upgrading the HTTP connection to WebSocket, and initiating the client lifecycle.
*/
package handler

import (
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/mdmisri/mapfrens-backend/internal/app/hub"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/errs"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/limiter"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/logx"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/randx"
	"github.com/mdmisri/mapfrens-backend/internal/pkg/resp"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Each upgraded connection is assigned a UUID connection id, registered with the hub,
// and driven by its read and write pumps until disconnect.
func HandleWebSocket(upgrader websocket.Upgrader, rateLimiter *limiter.IPRateLimiter, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !rateLimiter.GetLimiter(ip).Allow() {
			logx.Warn("WebSocket connection rejected: Rate limit exceeded.", "ip", ip)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		connID := randx.ConnectionID()
		client := hub.NewClient(deps.Hub, conn, connID)

		go client.WritePump()

		logx.Info("WebSocket connection established", "conn_id", connID)

		deps.Hub.Register(client)

		client.ReadPump()
	}
}
