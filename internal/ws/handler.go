package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/jmylchreest/circadiand/internal/events"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins; API key auth provides access control.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler upgrades connections to WebSocket and registers the client with
// the hub. The optional "events" query parameter holds a comma-separated
// list of event types to subscribe to; absent means all. Auth happens in the
// Chi middleware layer before this handler runs.
func Handler(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		types := parseEventFilter(r.URL.Query().Get("events"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("ws: upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
			return
		}

		client := hub.NewClient(conn, types)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

func parseEventFilter(raw string) []events.EventType {
	if raw == "" {
		return nil
	}
	var out []events.EventType
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, events.EventType(part))
		}
	}
	return out
}
