package libraryapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/freegatik/music-streaming/cmd/identity"
	authapi "github.com/freegatik/music-streaming/cmd/internal/auth/api"
	"github.com/freegatik/music-streaming/cmd/internal/auth/session"
	"github.com/freegatik/music-streaming/cmd/internal/catalog"
	"github.com/freegatik/music-streaming/cmd/internal/playlist"
	"github.com/freegatik/music-streaming/cmd/security/password"
)

type testEnv struct {
	mux   *http.ServeMux
	users *identity.MemoryStore
	pwd   password.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	codec, err := session.NewCodec([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	sessions := session.NewService(session.DefaultConfig(), codec, session.NewMemoryStore())

	pwd := password.DefaultConfig()
	pwd.Params.MemoryKiB = 8 * 1024
	pwd.Params.Iterations = 1

	users := identity.NewMemoryStore()
	log := slog.New(slog.DiscardHandler)

	auth, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), users, sessions, pwd,
		authapi.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		t.Fatalf("authapi.NewHandler: %v", err)
	}

	cat := catalog.NewMemoryStore()
	for i := 0; i < 8; i++ {
		genre := "rock"
		if i%2 == 1 {
			genre = "jazz"
		}
		cat.PutTrack(catalog.Track{
			ID:       fmt.Sprintf("t%02d", i),
			AlbumID:  "al1",
			ArtistID: "ar1",
			Title:    fmt.Sprintf("Track %d", i),
			Genre:    genre,
			Duration: 200 * time.Second,
		})
	}
	cat.PutArtist(catalog.Artist{ID: "ar1", Name: "The Band"})
	cat.PutAlbum(catalog.Album{ID: "al1", ArtistID: "ar1", Title: "First"})

	lib, err := NewHandler(log, auth, users, playlist.NewService(playlist.NewMemoryStore(), cat), cat)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	auth.Register(mux)
	lib.Register(mux)
	return &testEnv{mux: mux, users: users, pwd: pwd}
}

// signup registers a user (optionally promoting to ADMIN) and logs in.
func (e *testEnv) signup(t *testing.T, username string, role identity.Role) string {
	t.Helper()

	hash, err := e.pwd.Hash("correct horse 9!")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := e.users.CreateUser(t.Context(), identity.CreateUserInput{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: hash,
		Role:         role,
	}); err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}

	rec := e.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"contact":  username,
		"password": "correct horse 9!",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login(%s): status %d: %s", username, rec.Code, rec.Body)
	}
	var resp struct {
		Session struct {
			AccessToken string `json:"access_token"`
		} `json:"session"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return resp.Session.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) createPlaylist(t *testing.T, token, name string, public bool) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/playlists", map[string]any{
		"name":   name,
		"public": public,
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create playlist: status %d: %s", rec.Code, rec.Body)
	}
	var resp playlistResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode playlist: %v", err)
	}
	return resp.ID
}

func (e *testEnv) addTrack(t *testing.T, token, playlistID, trackID string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/playlists/"+playlistID+"/tracks", map[string]any{
		"track_id": trackID,
	}, token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("add track: status %d: %s", rec.Code, rec.Body)
	}
}

func TestPlaylistCRUDAndView(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ana := e.signup(t, "ana", identity.RoleUser)

	id := e.createPlaylist(t, ana, "road trip", false)
	e.addTrack(t, ana, id, "t00")
	e.addTrack(t, ana, id, "t01")

	rec := e.do(t, http.MethodGet, "/api/playlists/"+id, nil, ana)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d: %s", rec.Code, rec.Body)
	}
	var view playlistViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if view.Playlist.Name != "road trip" || len(view.Tracks) != 2 {
		t.Fatalf("view = %+v", view)
	}
	if view.Tracks[0].Track.ID != "t00" || view.Tracks[0].Position != 0 {
		t.Fatalf("tracks out of order: %+v", view.Tracks)
	}

	// Remove the head; the survivor renumbers to position 0.
	rec = e.do(t, http.MethodDelete, "/api/playlists/"+id+"/tracks/0", nil, ana)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("remove: status %d: %s", rec.Code, rec.Body)
	}
	rec = e.do(t, http.MethodGet, "/api/playlists/"+id, nil, ana)
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Tracks) != 1 || view.Tracks[0].Track.ID != "t01" || view.Tracks[0].Position != 0 {
		t.Fatalf("after remove: %+v", view.Tracks)
	}

	rec = e.do(t, http.MethodDelete, "/api/playlists/"+id, nil, ana)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/api/playlists/"+id, nil, ana)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: status %d", rec.Code)
	}
}

func TestOwnershipAndAdminOverride(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ana := e.signup(t, "ana", identity.RoleUser)
	bo := e.signup(t, "bo", identity.RoleUser)
	root := e.signup(t, "root", identity.RoleAdmin)

	id := e.createPlaylist(t, ana, "private", false)

	// A stranger can neither see nor mutate a private playlist.
	rec := e.do(t, http.MethodGet, "/api/playlists/"+id, nil, bo)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger get: status %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/playlists/"+id+"/tracks", map[string]any{"track_id": "t00"}, bo)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger add: status %d", rec.Code)
	}

	// Admins may do both.
	rec = e.do(t, http.MethodPost, "/api/playlists/"+id+"/tracks", map[string]any{"track_id": "t00"}, root)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin add: status %d: %s", rec.Code, rec.Body)
	}
	rec = e.do(t, http.MethodGet, "/api/playlists/"+id, nil, root)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin get: status %d", rec.Code)
	}
}

func TestPublicPlaylistVisibleAndCloneable(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ana := e.signup(t, "ana", identity.RoleUser)
	bo := e.signup(t, "bo", identity.RoleUser)

	id := e.createPlaylist(t, ana, "shared", true)
	e.addTrack(t, ana, id, "t02")
	e.addTrack(t, ana, id, "t03")

	rec := e.do(t, http.MethodGet, "/api/playlists/"+id, nil, bo)
	if rec.Code != http.StatusOK {
		t.Fatalf("public get: status %d", rec.Code)
	}

	rec = e.do(t, http.MethodPost, "/api/playlists/"+id+"/clone", nil, bo)
	if rec.Code != http.StatusCreated {
		t.Fatalf("clone: status %d: %s", rec.Code, rec.Body)
	}
	var clone playlistResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &clone); err != nil {
		t.Fatalf("decode clone: %v", err)
	}
	if clone.Name != "shared (copy)" {
		t.Fatalf("clone name = %q", clone.Name)
	}

	// The clone belongs to bo, so bo can read it in full.
	rec = e.do(t, http.MethodGet, "/api/playlists/"+clone.ID, nil, bo)
	if rec.Code != http.StatusOK {
		t.Fatalf("get clone: status %d", rec.Code)
	}
	var view playlistViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if len(view.Tracks) != 2 || view.Tracks[0].Track.ID != "t02" {
		t.Fatalf("clone tracks = %+v", view.Tracks)
	}
}

func TestDailyMixAndSummary(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ana := e.signup(t, "ana", identity.RoleUser)

	id := e.createPlaylist(t, ana, "seeds", false)
	e.addTrack(t, ana, id, "t00")
	e.addTrack(t, ana, id, "t01")

	rec := e.do(t, http.MethodPost, "/api/playlists/daily-mix", map[string]any{"limit": 4}, ana)
	if rec.Code != http.StatusCreated {
		t.Fatalf("daily mix: status %d: %s", rec.Code, rec.Body)
	}
	var mix playlistViewResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &mix); err != nil {
		t.Fatalf("decode mix: %v", err)
	}
	if len(mix.Tracks) != 4 {
		t.Fatalf("mix size = %d, want 4", len(mix.Tracks))
	}

	rec = e.do(t, http.MethodGet, "/api/library/summary", nil, ana)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: status %d: %s", rec.Code, rec.Body)
	}
	var sum summaryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	// seeds (2 tracks) + the generated mix (4 tracks).
	if sum.PlaylistCount != 2 || sum.TrackCount != 6 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.TotalDurationSec != 6*200 {
		t.Fatalf("total duration = %d", sum.TotalDurationSec)
	}
}

func TestCatalogEndpoints(t *testing.T) {
	t.Parallel()

	e := newTestEnv(t)
	ana := e.signup(t, "ana", identity.RoleUser)

	rec := e.do(t, http.MethodGet, "/api/catalog/tracks/t00", nil, ana)
	if rec.Code != http.StatusOK {
		t.Fatalf("get track: status %d", rec.Code)
	}
	var tr trackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tr); err != nil {
		t.Fatalf("decode track: %v", err)
	}
	if tr.Title != "Track 0" || tr.DurationSec != 200 {
		t.Fatalf("track = %+v", tr)
	}

	rec = e.do(t, http.MethodGet, "/api/catalog/tracks/missing", nil, ana)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing track: status %d", rec.Code)
	}

	rec = e.do(t, http.MethodGet, "/api/catalog/tracks?genre=jazz", nil, ana)
	if rec.Code != http.StatusOK {
		t.Fatalf("genre list: status %d", rec.Code)
	}
	var tracks []trackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tracks); err != nil {
		t.Fatalf("decode tracks: %v", err)
	}
	if len(tracks) != 4 {
		t.Fatalf("jazz tracks = %d, want 4", len(tracks))
	}

	rec = e.do(t, http.MethodGet, "/api/catalog/artists/ar1/albums", nil, ana)
	if rec.Code != http.StatusOK {
		t.Fatalf("artist albums: status %d", rec.Code)
	}

	// Everything behind the library surface needs a token.
	rec = e.do(t, http.MethodGet, "/api/catalog/tracks", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated: status %d", rec.Code)
	}
}
