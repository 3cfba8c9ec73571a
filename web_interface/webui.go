package web_interface

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"turtle-trader/logging"
	"turtle-trader/models"
)

// Message is the envelope pushed to dashboard clients.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// WebUI pushes cycle and risk snapshots to connected browser clients over a
// websocket. The engine calls BroadcastCycle after every pipeline pass; slow
// clients are dropped rather than allowed to stall the hub.
type WebUI struct {
	addr   string
	state  *models.EngineState
	logger logging.LoggerInterface

	upgrader  websocket.Upgrader
	mu        sync.Mutex
	clients   map[*websocket.Conn]bool
	broadcast chan Message
}

// NewWebUI creates the dashboard hub.
func NewWebUI(addr string, state *models.EngineState, logger logging.LoggerInterface) *WebUI {
	return &WebUI{
		addr:   addr,
		state:  state,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 16),
	}
}

// Start launches the HTTP server and the broadcast pump. Returns nil when the
// dashboard is disabled by configuration.
func (w *WebUI) Start() *http.Server {
	addr := strings.TrimSpace(w.addr)
	if addr == "" || strings.EqualFold(addr, "off") || strings.EqualFold(addr, "disabled") {
		w.logger.Info("Dashboard disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", w.handleIndex)
	mux.HandleFunc("/ws", w.handleWS)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go w.handleBroadcasts()
	go func() {
		w.logger.Info("Dashboard listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("Dashboard stopped: %v", err)
		}
	}()
	return srv
}

// BroadcastCycle queues the latest snapshots for connected clients. Never
// blocks the pipeline: if the queue is full the update is skipped.
func (w *WebUI) BroadcastCycle() {
	msg := Message{
		Type: "cycle_update",
		Data: map[string]interface{}{
			"cycle": w.state.Cycle(),
			"risk":  w.state.Risk(),
		},
	}
	select {
	case w.broadcast <- msg:
	default:
		w.logger.Debug("Broadcast channel full, update skipped")
	}
}

// handleBroadcasts fans queued messages out to every connected client.
func (w *WebUI) handleBroadcasts() {
	for msg := range w.broadcast {
		w.mu.Lock()
		for client := range w.clients {
			if err := client.WriteJSON(msg); err != nil {
				w.logger.Debug("WebSocket write error: %v", err)
				delete(w.clients, client)
				_ = client.Close()
			}
		}
		w.mu.Unlock()
	}
}

func (w *WebUI) handleWS(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warning("WebSocket upgrade failed: %v", err)
		return
	}

	w.mu.Lock()
	w.clients[conn] = true
	w.mu.Unlock()

	// Greet the new client with the current state so the dashboard renders
	// before the next cycle completes.
	_ = conn.WriteJSON(Message{
		Type: "cycle_update",
		Data: map[string]interface{}{
			"cycle": w.state.Cycle(),
			"risk":  w.state.Risk(),
		},
	})

	// Reader loop only exists to detect disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				w.mu.Lock()
				delete(w.clients, conn)
				w.mu.Unlock()
				_ = conn.Close()
				return
			}
		}
	}()
}

func (w *WebUI) handleIndex(rw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(rw, r)
		return
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = rw.Write([]byte(indexPage))
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Turtle Dashboard</title>
<style>
body { font-family: monospace; background: #111; color: #ddd; margin: 2em; }
table { border-collapse: collapse; margin-top: 1em; }
td, th { border: 1px solid #444; padding: 4px 10px; text-align: right; }
th { background: #222; }
.dropped { color: #777; }
#risk { margin-top: 1em; }
</style>
</head>
<body>
<h2>Turtle Dashboard</h2>
<div id="risk">waiting for data...</div>
<table id="markets"><thead>
<tr><th>Market</th><th>Close</th><th>20d High</th><th>20d Low</th><th>55d High</th><th>55d Low</th><th>ATR</th><th>Size</th><th>Risk</th></tr>
</thead><tbody></tbody></table>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = function (ev) {
  const msg = JSON.parse(ev.data);
  if (msg.type !== "cycle_update" || !msg.data) return;
  const risk = msg.data.risk || {};
  document.getElementById("risk").textContent =
    "capital " + (risk.capital || 0).toFixed(2) +
    "  long " + (risk.longRisk || 0) +
    "  short " + (risk.shortRisk || 0);
  const cycle = msg.data.cycle || {};
  const body = document.querySelector("#markets tbody");
  body.innerHTML = "";
  (cycle.markets || []).forEach(function (m) {
    const tr = document.createElement("tr");
    if (m.dropped) tr.className = "dropped";
    tr.innerHTML = "<td>" + m.symbol + "</td><td>" + m.close.toFixed(4) +
      "</td><td>" + m.twentyDayHigh.toFixed(4) + "</td><td>" + m.twentyDayLow.toFixed(4) +
      "</td><td>" + m.fiftyFiveDayHigh.toFixed(4) + "</td><td>" + m.fiftyFiveDayLow.toFixed(4) +
      "</td><td>" + m.atr.toFixed(4) + "</td><td>" + m.tradeSize + "</td><td>" + m.marketRisk + "</td>";
    body.appendChild(tr);
  });
};
</script>
</body>
</html>
`
