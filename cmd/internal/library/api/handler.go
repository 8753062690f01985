// Package libraryapi is the HTTP surface for playlists and the catalog.
//
// Every route requires a valid access token. Playlist mutation additionally
// requires ownership of the playlist, or the ADMIN role.
package libraryapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/freegatik/music-streaming/cmd/identity"
	"github.com/freegatik/music-streaming/cmd/internal/auth/session"
	"github.com/freegatik/music-streaming/cmd/internal/catalog"
	"github.com/freegatik/music-streaming/cmd/internal/playlist"
)

const maxBodyBytes = 1 << 20

// Authenticator validates the request's access token. Satisfied by the auth
// API handler.
type Authenticator interface {
	RequireAuth(w http.ResponseWriter, r *http.Request) (session.Claims, bool)
}

// Handler serves the library routes.
type Handler struct {
	log       *slog.Logger
	auth      Authenticator
	users     identity.Store
	playlists *playlist.Service
	catalog   catalog.Store
}

// NewHandler constructs a library Handler.
func NewHandler(log *slog.Logger, auth Authenticator, users identity.Store, playlists *playlist.Service, cat catalog.Store) (*Handler, error) {
	if auth == nil || users == nil || playlists == nil || cat == nil {
		return nil, errors.New("libraryapi: nil dependency")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, auth: auth, users: users, playlists: playlists, catalog: cat}, nil
}

// Register wires library routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}

	mux.HandleFunc("POST /api/playlists", h.handleCreatePlaylist)
	mux.HandleFunc("GET /api/playlists", h.handleListMine)
	mux.HandleFunc("GET /api/playlists/public", h.handleListPublic)
	mux.HandleFunc("GET /api/playlists/search", h.handleSearch)
	mux.HandleFunc("GET /api/playlists/{id}", h.handleGetPlaylist)
	mux.HandleFunc("PUT /api/playlists/{id}", h.handleUpdatePlaylist)
	mux.HandleFunc("DELETE /api/playlists/{id}", h.handleDeletePlaylist)

	mux.HandleFunc("POST /api/playlists/{id}/tracks", h.handleAddTrack)
	mux.HandleFunc("DELETE /api/playlists/{id}/tracks/{position}", h.handleRemoveTrack)
	mux.HandleFunc("POST /api/playlists/{id}/move", h.handleMoveTrack)
	mux.HandleFunc("POST /api/playlists/{id}/shuffle", h.handleShuffle)
	mux.HandleFunc("POST /api/playlists/{id}/clone", h.handleClone)

	mux.HandleFunc("POST /api/playlists/daily-mix", h.handleDailyMix)
	mux.HandleFunc("GET /api/library/summary", h.handleSummary)

	mux.HandleFunc("GET /api/catalog/tracks", h.handleListTracks)
	mux.HandleFunc("GET /api/catalog/tracks/{id}", h.handleGetTrack)
	mux.HandleFunc("GET /api/catalog/artists", h.handleListArtists)
	mux.HandleFunc("GET /api/catalog/artists/{id}", h.handleGetArtist)
	mux.HandleFunc("GET /api/catalog/artists/{id}/albums", h.handleListArtistAlbums)
	mux.HandleFunc("GET /api/catalog/albums/{id}", h.handleGetAlbum)
}

// currentUser authenticates the request and resolves the full user record.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (identity.User, bool) {
	claims, ok := h.auth.RequireAuth(w, r)
	if !ok {
		return identity.User{}, false
	}
	u, err := h.users.ResolveByContact(r.Context(), claims.Email)
	if err != nil {
		if identity.IsNotFound(err) {
			writeError(w, http.StatusUnauthorized, "not_found", "user not found")
		} else {
			h.log.Error("library.resolve_user.fail", "err", err)
			writeError(w, http.StatusInternalServerError, "server_error", "internal error")
		}
		return identity.User{}, false
	}
	return u, true
}

// ownedPlaylist loads the playlist and enforces owner-or-admin access.
func (h *Handler) ownedPlaylist(w http.ResponseWriter, r *http.Request, u identity.User, id string) (playlist.Playlist, bool) {
	p, err := h.playlists.Get(r.Context(), id)
	if err != nil {
		h.writePlaylistError(w, err)
		return playlist.Playlist{}, false
	}
	if p.OwnerID != u.ID && u.Role != identity.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "not your playlist")
		return playlist.Playlist{}, false
	}
	return p, true
}

func (h *Handler) writePlaylistError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, playlist.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "playlist not found")
	case errors.Is(err, playlist.ErrDuplicateTrack):
		writeError(w, http.StatusConflict, "duplicate_track", "track already in playlist")
	case errors.Is(err, playlist.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, "position_not_found", "no track at that position")
	case errors.Is(err, playlist.ErrTrackNotFound):
		writeError(w, http.StatusNotFound, "track_not_in_playlist", "track not in playlist")
	case errors.Is(err, playlist.ErrEmptyPlaylist):
		writeError(w, http.StatusConflict, "empty_playlist", "playlist is empty")
	case errors.Is(err, playlist.ErrNoCandidates):
		writeError(w, http.StatusConflict, "no_candidates", "not enough tracks to build a mix")
	case errors.Is(err, playlist.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		h.log.Error("library.playlist.fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// ---- playlist handlers ----

func (h *Handler) handleCreatePlaylist(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req createPlaylistRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	p, err := h.playlists.Create(r.Context(), u.ID, req.Name, req.Description, req.Public)
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaylistResponse(p))
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	ps, err := h.playlists.ListByOwner(r.Context(), u.ID)
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistResponses(ps))
}

func (h *Handler) handleListPublic(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}
	ps, err := h.playlists.ListPublic(r.Context())
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistResponses(ps))
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.auth.RequireAuth(w, r); !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}
	ps, err := h.playlists.SearchByName(r.Context(), q)
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistResponses(ps))
}

func (h *Handler) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	p, err := h.playlists.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	// Private playlists are visible to their owner and admins only.
	if !p.Public && p.OwnerID != u.ID && u.Role != identity.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "not your playlist")
		return
	}

	views, err := h.playlists.View(r.Context(), p.ID)
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toViewResponse(p, views))
}

func (h *Handler) handleUpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	p, ok := h.ownedPlaylist(w, r, u, r.PathValue("id"))
	if !ok {
		return
	}
	var req createPlaylistRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	updated, err := h.playlists.Rename(r.Context(), p.ID, req.Name, req.Description, req.Public)
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlaylistResponse(updated))
}

func (h *Handler) handleDeletePlaylist(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	p, ok := h.ownedPlaylist(w, r, u, r.PathValue("id"))
	if !ok {
		return
	}
	if err := h.playlists.Delete(r.Context(), p.ID); err != nil {
		h.writePlaylistError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	p, ok := h.ownedPlaylist(w, r, u, r.PathValue("id"))
	if !ok {
		return
	}
	var req addTrackRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.TrackID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "track_id is required")
		return
	}

	if err := h.playlists.AddTrack(r.Context(), p.ID, req.TrackID, req.Position); err != nil {
		h.writePlaylistError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveTrack(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	p, ok := h.ownedPlaylist(w, r, u, r.PathValue("id"))
	if !ok {
		return
	}
	pos, err := strconv.Atoi(r.PathValue("position"))
	if err != nil || pos < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "position must be a non-negative integer")
		return
	}

	if err := h.playlists.RemoveTrackAt(r.Context(), p.ID, pos); err != nil {
		h.writePlaylistError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMoveTrack(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	p, ok := h.ownedPlaylist(w, r, u, r.PathValue("id"))
	if !ok {
		return
	}
	var req moveTrackRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if strings.TrimSpace(req.TrackID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "track_id is required")
		return
	}

	if err := h.playlists.Move(r.Context(), p.ID, req.TrackID, req.Position); err != nil {
		h.writePlaylistError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleShuffle(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	p, ok := h.ownedPlaylist(w, r, u, r.PathValue("id"))
	if !ok {
		return
	}
	if err := h.playlists.Shuffle(r.Context(), p.ID); err != nil {
		h.writePlaylistError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClone(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	// Cloning copies into the caller's own library; the source only needs
	// to be visible, not owned.
	src, err := h.playlists.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	if !src.Public && src.OwnerID != u.ID && u.Role != identity.RoleAdmin {
		writeError(w, http.StatusForbidden, "forbidden", "not your playlist")
		return
	}

	var req cloneRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	clone, err := h.playlists.Clone(r.Context(), src.ID, u.ID, req.Name, req.Description, req.Public)
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPlaylistResponse(clone))
}

func (h *Handler) handleDailyMix(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req dailyMixRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
			return
		}
	}

	mix, entries, err := h.playlists.DailyMix(r.Context(), u.ID, playlist.DailyMixRequest{
		Name:        req.Name,
		Description: req.Description,
		Genre:       req.Genre,
		Limit:       req.Limit,
		MakePublic:  req.Public,
	})
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}

	views := make([]playlist.TrackView, 0, len(entries))
	for _, e := range entries {
		if tr, err := h.catalog.GetTrack(r.Context(), e.TrackID); err == nil {
			views = append(views, playlist.TrackView{Position: e.Position, Track: tr})
		}
	}
	writeJSON(w, http.StatusCreated, toViewResponse(mix, views))
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	u, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	sum, err := h.playlists.Summary(r.Context(), u.ID)
	if err != nil {
		h.writePlaylistError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		PlaylistCount:    sum.PlaylistCount,
		TrackCount:       sum.TrackCount,
		TotalDurationSec: int64(sum.TotalDuration.Seconds()),
	})
}
