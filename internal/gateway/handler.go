package gateway

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/park285/rps-arena/internal/metrics"
	"github.com/park285/rps-arena/internal/obslog"
)

// HeaderParticipant carries the participant id when the query parameter is absent.
const HeaderParticipant = "X-Participant-Id"

// ServeHTTP upgrades /ws requests and blocks until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	participant := strings.TrimSpace(r.URL.Query().Get("participant"))
	if participant == "" {
		participant = strings.TrimSpace(r.Header.Get(HeaderParticipant))
	}
	if participant == "" {
		http.Error(w, "participant is required", http.StatusBadRequest)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("participant", participant), zap.Error(err))
		return
	}
	conn.SetReadLimit(64 << 10)

	c := newClient(h, conn, participant)
	h.register(c)
	c.enqueue(Outbound{Type: TypeConnected, Data: ConnectedData{
		ParticipantID: participant,
		Message:       h.cat.Text("session.connected", map[string]any{"Participant": participant}, "Connected."),
	}})
	c.run()
}

// NewMux mounts the websocket endpoint next to health and metrics.
func NewMux(h *Hub, rec *metrics.Recorder) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if rec != nil {
		mux.Handle("/metrics", rec.Handler())
	}
	return mux
}
