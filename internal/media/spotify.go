// Package media talks to the Spotify Web API on behalf of the voice
// dispatcher. Every call acts on the user's currently active playback
// device and carries the user's own access token; the package holds no
// credentials of its own.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/resilience"
)

// ErrNotFound means the search returned no usable result.
var ErrNotFound = errors.New("no matching result")

// ErrNoActiveDevice means the user has no playback device to act on.
var ErrNoActiveDevice = errors.New("no active playback device")

// TrackInfo names a track for the spoken confirmation.
type TrackInfo struct {
	Name    string
	Artists string
}

// Client is a thin Spotify Web API client scoped to the player and
// search endpoints the dispatcher needs.
type Client struct {
	baseURL string
	market  string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	log     zerolog.Logger
}

// ClientConfig configures the Spotify client.
type ClientConfig struct {
	BaseURL      string
	Market       string
	MaxFailures  int
	ResetTimeout time.Duration
}

// NewClient creates a Spotify client.
func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.spotify.com"
	}
	if cfg.Market == "" {
		cfg.Market = "CZ"
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		market:  cfg.Market,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: resilience.NewCircuitBreaker("spotify", cfg.MaxFailures, cfg.ResetTimeout),
		log:     log.With().Str("component", "spotify").Logger(),
	}
}

type device struct {
	ID string `json:"id"`
}

type track struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (t track) artistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// PlayTrack searches for the query and starts playback of the best
// match on the active device. Returns the track name for confirmation.
func (c *Client) PlayTrack(ctx context.Context, token, query string) (TrackInfo, error) {
	var out struct {
		Tracks struct {
			Items []track `json:"items"`
		} `json:"tracks"`
	}
	q := url.Values{"q": {query}, "type": {"track"}, "limit": {"1"}}
	if err := c.get(ctx, token, "/v1/search?"+q.Encode(), &out); err != nil {
		return TrackInfo{}, err
	}
	if len(out.Tracks.Items) == 0 {
		return TrackInfo{}, ErrNotFound
	}
	tr := out.Tracks.Items[0]

	deviceID, err := c.activeDeviceID(ctx, token)
	if err != nil {
		return TrackInfo{}, err
	}
	if err := c.play(ctx, token, deviceID, map[string]any{"uris": []string{tr.URI}}); err != nil {
		return TrackInfo{}, err
	}
	return TrackInfo{Name: tr.Name, Artists: tr.artistNames()}, nil
}

// PlayArtistTop plays the artist's top track on the active device.
func (c *Client) PlayArtistTop(ctx context.Context, token, artist string) (TrackInfo, error) {
	var search struct {
		Artists struct {
			Items []struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"items"`
		} `json:"artists"`
	}
	q := url.Values{"q": {artist}, "type": {"artist"}, "limit": {"1"}}
	if err := c.get(ctx, token, "/v1/search?"+q.Encode(), &search); err != nil {
		return TrackInfo{}, err
	}
	if len(search.Artists.Items) == 0 {
		return TrackInfo{}, ErrNotFound
	}
	found := search.Artists.Items[0]

	var top struct {
		Tracks []track `json:"tracks"`
	}
	path := fmt.Sprintf("/v1/artists/%s/top-tracks?market=%s", found.ID, c.market)
	if err := c.get(ctx, token, path, &top); err != nil {
		return TrackInfo{}, err
	}
	if len(top.Tracks) == 0 {
		return TrackInfo{}, ErrNotFound
	}
	tr := top.Tracks[0]

	deviceID, err := c.activeDeviceID(ctx, token)
	if err != nil {
		return TrackInfo{}, err
	}
	if err := c.play(ctx, token, deviceID, map[string]any{"uris": []string{tr.URI}}); err != nil {
		return TrackInfo{}, err
	}
	return TrackInfo{Name: tr.Name, Artists: found.Name}, nil
}

// PlayPlaylist finds a playlist by name and starts it on the active
// device. Returns the playlist's display name.
func (c *Client) PlayPlaylist(ctx context.Context, token, name string) (string, error) {
	var out struct {
		Playlists struct {
			Items []struct {
				URI  string `json:"uri"`
				Name string `json:"name"`
			} `json:"items"`
		} `json:"playlists"`
	}
	q := url.Values{"q": {name}, "type": {"playlist"}, "limit": {"1"}}
	if err := c.get(ctx, token, "/v1/search?"+q.Encode(), &out); err != nil {
		return "", err
	}
	if len(out.Playlists.Items) == 0 {
		return "", ErrNotFound
	}
	pl := out.Playlists.Items[0]

	deviceID, err := c.activeDeviceID(ctx, token)
	if err != nil {
		return "", err
	}
	if err := c.play(ctx, token, deviceID, map[string]any{"context_uri": pl.URI}); err != nil {
		return "", err
	}
	return pl.Name, nil
}

// SetVolume sets the active device volume, 0 to 100.
func (c *Client) SetVolume(ctx context.Context, token string, value int) error {
	deviceID, err := c.activeDeviceID(ctx, token)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v1/me/player/volume?volume_percent=%d&device_id=%s",
		value, url.QueryEscape(deviceID))
	return c.do(ctx, token, http.MethodPut, path, nil, nil)
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context, token string) error {
	return c.do(ctx, token, http.MethodPut, "/v1/me/player/pause", nil, nil)
}

// Resume resumes playback.
func (c *Client) Resume(ctx context.Context, token string) error {
	return c.do(ctx, token, http.MethodPut, "/v1/me/player/play", nil, nil)
}

// Next skips to the next track.
func (c *Client) Next(ctx context.Context, token string) error {
	return c.do(ctx, token, http.MethodPost, "/v1/me/player/next", nil, nil)
}

func (c *Client) activeDeviceID(ctx context.Context, token string) (string, error) {
	var out struct {
		Devices []device `json:"devices"`
	}
	if err := c.get(ctx, token, "/v1/me/player/devices", &out); err != nil {
		return "", err
	}
	if len(out.Devices) == 0 || out.Devices[0].ID == "" {
		return "", ErrNoActiveDevice
	}
	return out.Devices[0].ID, nil
}

func (c *Client) play(ctx context.Context, token, deviceID string, body map[string]any) error {
	path := "/v1/me/player/play?device_id=" + url.QueryEscape(deviceID)
	return c.do(ctx, token, http.MethodPut, path, body, nil)
}

func (c *Client) get(ctx context.Context, token, path string, out any) error {
	return c.do(ctx, token, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	err := c.breaker.Call(func() error {
		return c.doOnce(ctx, token, method, path, body, out)
	})
	observability.UpdateCircuitBreakerState("spotify", int(c.breaker.State()))
	return err
}

func (c *Client) doOnce(ctx context.Context, token, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("spotify request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Str("path", path).
			Msg("spotify request failed")
		return fmt.Errorf("spotify returned status %d for %s", resp.StatusCode, path)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode spotify response: %w", err)
		}
	}
	return nil
}
