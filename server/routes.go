package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter builds the ambient HTTP surface: liveness/readiness probes,
// a room introspection endpoint, and the WebSocket upgrade route.
func NewRouter(manager *RoomManager) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleReadyz).Methods(http.MethodGet)
	r.HandleFunc("/rooms", handleRooms(manager)).Methods(http.MethodGet)
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		ServeWS(manager, w, req)
	})

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

// roomStatus is the per-room shape returned by GET /rooms: id, client
// count, body count, and current tick, for operators.
type roomStatus struct {
	ID          string `json:"id"`
	ClientCount int    `json:"clientCount"`
	BodyCount   int    `json:"bodyCount"`
	Tick        uint32 `json:"tick"`
}

func handleRooms(manager *RoomManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		infos := manager.RoomInfos()
		rooms := make([]roomStatus, len(infos))
		for i, info := range infos {
			rooms[i] = roomStatus{ID: info.ID, ClientCount: info.ClientCount, BodyCount: info.BodyCount, Tick: info.Tick}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"rooms": rooms})
	}
}
