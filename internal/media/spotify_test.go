package media

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

// fakeSpotify serves the handful of endpoints the client touches.
type fakeSpotify struct {
	devices    []string
	plays      []map[string]any
	lastVolume string
}

func (f *fakeSpotify) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("missing bearer token on %s", r.URL.Path)
		}
		switch {
		case r.URL.Path == "/v1/me/player/devices":
			devices := make([]map[string]string, len(f.devices))
			for i, id := range f.devices {
				devices[i] = map[string]string{"id": id}
			}
			json.NewEncoder(w).Encode(map[string]any{"devices": devices})

		case r.URL.Path == "/v1/search" && r.URL.Query().Get("type") == "track":
			json.NewEncoder(w).Encode(map[string]any{
				"tracks": map[string]any{"items": []map[string]any{{
					"id":   "t1",
					"uri":  "spotify:track:t1",
					"name": "Bohemian Rhapsody",
					"artists": []map[string]string{
						{"name": "Queen"},
					},
				}}},
			})

		case r.URL.Path == "/v1/search" && r.URL.Query().Get("type") == "artist":
			json.NewEncoder(w).Encode(map[string]any{
				"artists": map[string]any{"items": []map[string]any{{
					"id": "a1", "name": "Queen",
				}}},
			})

		case r.URL.Path == "/v1/artists/a1/top-tracks":
			json.NewEncoder(w).Encode(map[string]any{
				"tracks": []map[string]any{{
					"id": "t2", "uri": "spotify:track:t2", "name": "Don't Stop Me Now",
				}},
			})

		case r.URL.Path == "/v1/me/player/play":
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.plays = append(f.plays, body)
			w.WriteHeader(http.StatusNoContent)

		case r.URL.Path == "/v1/me/player/volume":
			f.lastVolume = r.URL.Query().Get("volume_percent")
			w.WriteHeader(http.StatusNoContent)

		default:
			w.WriteHeader(http.StatusNoContent)
		}
	}
}

func newTestClient(t *testing.T, fake *fakeSpotify) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(ClientConfig{BaseURL: srv.URL, Market: "CZ"}, zerolog.Nop())
}

func TestClient_PlayTrack(t *testing.T) {
	fake := &fakeSpotify{devices: []string{"dev-1"}}
	c := newTestClient(t, fake)

	info, err := c.PlayTrack(context.Background(), "tok", "bohemian rhapsody")
	if err != nil {
		t.Fatalf("PlayTrack: %v", err)
	}
	if info.Name != "Bohemian Rhapsody" || info.Artists != "Queen" {
		t.Errorf("got %+v", info)
	}
	if len(fake.plays) != 1 {
		t.Fatalf("expected one play call, got %d", len(fake.plays))
	}
}

func TestClient_PlayArtistTop(t *testing.T) {
	fake := &fakeSpotify{devices: []string{"dev-1"}}
	c := newTestClient(t, fake)

	info, err := c.PlayArtistTop(context.Background(), "tok", "queen")
	if err != nil {
		t.Fatalf("PlayArtistTop: %v", err)
	}
	if info.Name != "Don't Stop Me Now" || info.Artists != "Queen" {
		t.Errorf("got %+v", info)
	}
}

func TestClient_NoActiveDevice(t *testing.T) {
	fake := &fakeSpotify{}
	c := newTestClient(t, fake)

	_, err := c.PlayTrack(context.Background(), "tok", "neco")
	if !errors.Is(err, ErrNoActiveDevice) {
		t.Errorf("got %v, want ErrNoActiveDevice", err)
	}
	if len(fake.plays) != 0 {
		t.Errorf("play called without a device")
	}
}

func TestClient_SetVolume(t *testing.T) {
	fake := &fakeSpotify{devices: []string{"dev-1"}}
	c := newTestClient(t, fake)

	if err := c.SetVolume(context.Background(), "tok", 30); err != nil {
		t.Fatalf("SetVolume: %v", err)
	}
	if fake.lastVolume != "30" {
		t.Errorf("volume sent %q", fake.lastVolume)
	}
}

func TestClient_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"tracks": map[string]any{"items": []any{}},
		})
	}))
	defer srv.Close()
	c := NewClient(ClientConfig{BaseURL: srv.URL}, zerolog.Nop())

	_, err := c.PlayTrack(context.Background(), "tok", "neexistuje")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}
