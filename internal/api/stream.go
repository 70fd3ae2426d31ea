package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamRunLogs handles GET /api/runs/{id}/ws: it replays the run's log
// history over a websocket and then streams live lines until the run
// finishes or the client disconnects.
func (h *Handler) StreamRunLogs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if _, err := h.runMgr.Get(id); err != nil {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}

	history, live, cancel, err := h.runMgr.Subscribe(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}
	defer conn.Close()

	h.log.Debug().Str("run_id", id).Msg("client connected to run log stream")

	// Reader pump: we never expect client messages, but reading is how
	// websockets surface disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for _, line := range history {
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case line, ok := <-live:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
				return
			}
		}
	}
}
