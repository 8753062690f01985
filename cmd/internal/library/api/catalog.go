package libraryapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/freegatik/music-streaming/cmd/internal/catalog"
)

func (h *Handler) writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
		return
	}
	h.log.Error("library.catalog.fail", "err", err)
	writeError(w, http.StatusInternalServerError, "server_error", "internal error")
}

func (h *Handler) handleListTracks(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}

	q := r.URL.Query()
	limit := queryInt(q.Get("limit"))
	var (
		tracks []catalog.Track
		err    error
	)
	if genre := strings.TrimSpace(q.Get("genre")); genre != "" {
		tracks, err = h.catalog.ListTracksByGenre(r.Context(), genre, limit)
	} else {
		tracks, err = h.catalog.ListTracks(r.Context(), limit, queryInt(q.Get("offset")))
	}
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackResponses(tracks))
}

func (h *Handler) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}
	t, err := h.catalog.GetTrack(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrackResponse(t))
}

func (h *Handler) handleListArtists(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}
	q := r.URL.Query()
	artists, err := h.catalog.ListArtists(r.Context(), queryInt(q.Get("limit")), queryInt(q.Get("offset")))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	out := make([]artistResponse, len(artists))
	for i, a := range artists {
		out[i] = toArtistResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetArtist(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}
	a, err := h.catalog.GetArtist(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArtistResponse(a))
}

func (h *Handler) handleListArtistAlbums(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}

	id := r.PathValue("id")
	if _, err := h.catalog.GetArtist(r.Context(), id); err != nil {
		h.writeCatalogError(w, err)
		return
	}
	albums, err := h.catalog.ListAlbumsByArtist(r.Context(), id)
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	out := make([]albumResponse, len(albums))
	for i, a := range albums {
		out[i] = toAlbumResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}
	a, err := h.catalog.GetAlbum(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAlbumResponse(a))
}

func queryInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
