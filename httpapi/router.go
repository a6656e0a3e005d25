// Package httpapi exposes job and segment status over HTTP, grounded
// on the donor's main.go router construction: gorilla/mux, a CORS
// wrapper from gorilla/handlers, and a WebSocket upgrade route.
package httpapi

import (
	"encoding/json"
	"net/http"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/streamforge/hlsprep/catalog"
	"github.com/streamforge/hlsprep/notify"
)

// NewRouter builds the complete hlsprep HTTP API: liveness, job
// status, segment listing, and a WebSocket subscription endpoint,
// wrapped in permissive CORS the same way the donor wraps its router.
func NewRouter(cat *catalog.Catalog, hub *notify.Hub) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthzHandler).Methods("GET")
	r.HandleFunc("/jobs/{id}", jobHandler(cat)).Methods("GET")
	r.HandleFunc("/jobs/{id}/segments", segmentsHandler(cat)).Methods("GET")
	r.HandleFunc("/ws/{id}", wsHandler(hub)).Methods("GET")

	allowedOrigins := gorillaHandlers.AllowedOrigins([]string{"*"})
	allowedMethods := gorillaHandlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"})
	allowedHeaders := gorillaHandlers.AllowedHeaders([]string{"Content-Type"})

	return gorillaHandlers.CORS(allowedOrigins, allowedMethods, allowedHeaders)(r)
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func jobHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		job, err := cat.GetJob(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, job)
	}
}

func segmentsHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		segments, err := cat.SegmentsForJob(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, segments)
	}
}

func wsHandler(hub *notify.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		hub.Subscribe(id, w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
