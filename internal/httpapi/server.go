package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"albumserver/internal/app/albums"
	"albumserver/internal/store"
)

// AlbumService exposes album-specific workflows.
type AlbumService interface {
	ListByArtist(ctx context.Context, artist string) ([]store.Album, error)
	Add(ctx context.Context, sub albums.Submission) (store.Album, error)
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	albums AlbumService
}

// New configures a Server with the given album service.
func New(albums AlbumService) *Server {
	return &Server{albums: albums}
}

// Routes exposes the HTTP handlers for the album catalogue.
func (s *Server) Routes() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeText(w, http.StatusOK, "OK")
	}).Methods(http.MethodGet)

	router.HandleFunc("/albums/{artist}", s.handleAlbumsByArtist).Methods(http.MethodGet)
	router.HandleFunc("/albums", s.handleAddAlbum).Methods(http.MethodPost)

	return router
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
