package libraryapi

import (
	"time"

	"github.com/freegatik/music-streaming/cmd/internal/catalog"
	"github.com/freegatik/music-streaming/cmd/internal/playlist"
)

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type addTrackRequest struct {
	TrackID  string `json:"track_id"`
	Position *int   `json:"position"`
}

type moveTrackRequest struct {
	TrackID  string `json:"track_id"`
	Position int    `json:"position"`
}

type cloneRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

type dailyMixRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Genre       string `json:"genre"`
	Limit       int    `json:"limit"`
	Public      bool   `json:"public"`
}

type playlistResponse struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Public      bool      `json:"public"`
	CreatedAt   time.Time `json:"created_at"`
}

type trackResponse struct {
	ID          string `json:"id"`
	AlbumID     string `json:"album_id,omitempty"`
	ArtistID    string `json:"artist_id,omitempty"`
	Title       string `json:"title"`
	Genre       string `json:"genre,omitempty"`
	DurationSec int64  `json:"duration_sec"`
}

type playlistTrackResponse struct {
	Position int           `json:"position"`
	Track    trackResponse `json:"track"`
}

type playlistViewResponse struct {
	Playlist playlistResponse        `json:"playlist"`
	Tracks   []playlistTrackResponse `json:"tracks"`
}

type summaryResponse struct {
	PlaylistCount    int   `json:"playlist_count"`
	TrackCount       int   `json:"track_count"`
	TotalDurationSec int64 `json:"total_duration_sec"`
}

type artistResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country,omitempty"`
}

type albumResponse struct {
	ID         string    `json:"id"`
	ArtistID   string    `json:"artist_id"`
	Title      string    `json:"title"`
	ReleasedAt time.Time `json:"released_at"`
}

func toPlaylistResponse(p playlist.Playlist) playlistResponse {
	return playlistResponse{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		Public:      p.Public,
		CreatedAt:   p.CreatedAt,
	}
}

func toPlaylistResponses(ps []playlist.Playlist) []playlistResponse {
	out := make([]playlistResponse, len(ps))
	for i, p := range ps {
		out[i] = toPlaylistResponse(p)
	}
	return out
}

func toTrackResponse(t catalog.Track) trackResponse {
	return trackResponse{
		ID:          t.ID,
		AlbumID:     t.AlbumID,
		ArtistID:    t.ArtistID,
		Title:       t.Title,
		Genre:       t.Genre,
		DurationSec: int64(t.Duration.Seconds()),
	}
}

func toTrackResponses(ts []catalog.Track) []trackResponse {
	out := make([]trackResponse, len(ts))
	for i, t := range ts {
		out[i] = toTrackResponse(t)
	}
	return out
}

func toViewResponse(p playlist.Playlist, views []playlist.TrackView) playlistViewResponse {
	tracks := make([]playlistTrackResponse, len(views))
	for i, v := range views {
		tracks[i] = playlistTrackResponse{Position: v.Position, Track: toTrackResponse(v.Track)}
	}
	return playlistViewResponse{Playlist: toPlaylistResponse(p), Tracks: tracks}
}

func toArtistResponse(a catalog.Artist) artistResponse {
	return artistResponse{ID: a.ID, Name: a.Name, Country: a.Country}
}

func toAlbumResponse(a catalog.Album) albumResponse {
	return albumResponse{ID: a.ID, ArtistID: a.ArtistID, Title: a.Title, ReleasedAt: a.ReleasedAt}
}
