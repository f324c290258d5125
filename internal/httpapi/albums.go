package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"albumserver/internal/app/albums"
	"albumserver/internal/logging"
	"albumserver/internal/store"
)

// ReasonStorageFailure is reported when the store could not serve a request.
const ReasonStorageFailure = "StorageFailure"

const maxFormMemory = 1 << 20

type artistAlbumsResponse struct {
	Artist string        `json:"artist"`
	Count  int           `json:"count"`
	Albums []store.Album `json:"albums"`
}

func (s *Server) handleAlbumsByArtist(w http.ResponseWriter, r *http.Request) {
	artist := mux.Vars(r)["artist"]

	list, err := s.albums.ListByArtist(r.Context(), artist)
	if err != nil {
		logging.WithContext(r.Context()).Error().Err(err).Str("artist", artist).Msg("list albums failed")
		s.writeError(w, r, http.StatusInternalServerError, ReasonStorageFailure+" - albums could not be loaded")
		return
	}

	if len(list) == 0 {
		s.writeError(w, r, http.StatusNotFound, fmt.Sprintf("No albums found for %s", artist))
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, artistAlbumsResponse{Artist: artist, Count: len(list), Albums: list})
		return
	}

	titles := make([]string, 0, len(list))
	for _, a := range list {
		titles = append(titles, a.Title)
	}
	writeText(w, http.StatusOK, fmt.Sprintf("Albums by %s: %d\nAlbum list for %s: %s",
		artist, len(list), artist, strings.Join(titles, ", ")))
}

func (s *Server) handleAddAlbum(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.writeError(w, r, http.StatusBadRequest, fmt.Sprintf("%s - form data could not be parsed", albums.ReasonMalformedInput))
		return
	}

	sub := albums.Submission{
		Year:   formValue(r, "year"),
		Artist: formValue(r, "artist"),
		Genre:  formValue(r, "genre"),
		Album:  formValue(r, "album"),
	}

	saved, err := s.albums.Add(r.Context(), sub)
	if err != nil {
		var rejection *albums.Rejection
		if errors.As(err, &rejection) {
			status := http.StatusBadRequest
			if rejection.Reason == albums.ReasonAlbumAlreadyExists {
				status = http.StatusConflict
			}
			s.writeError(w, r, status, rejection.Error())
			return
		}

		logging.WithContext(r.Context()).Error().Err(err).Msg("save album failed")
		s.writeError(w, r, http.StatusInternalServerError, ReasonStorageFailure+" - album could not be saved")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, saved)
		return
	}
	writeText(w, http.StatusOK, "Album saved")
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		writeJSON(w, status, errorResponse{Error: message})
		return
	}
	writeText(w, status, message)
}

// formValue returns the posted field, or nil when the client did not send it.
func formValue(r *http.Request, key string) *string {
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := values[0]
	return &v
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
