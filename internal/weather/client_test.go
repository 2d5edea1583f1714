package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestClient_Current(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "test-key" || q.Get("lang") != "cs" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("q") != "Prague" {
			t.Errorf("location %q", q.Get("q"))
		}
		w.Write([]byte(`{
			"location": {"name": "Praha", "region": "Hlavní město Praha", "country": "Czechia"},
			"current": {
				"temp_c": 21.6, "feelslike_c": 20.1,
				"condition": {"text": "polojasno"},
				"wind_kph": 12.5, "humidity": 60
			}
		}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "test-key"}, zerolog.Nop())
	obs, err := c.Current(context.Background(), Query{City: "Prague"})
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if obs.City != "Praha" || obs.TempC != 21.6 || obs.Text != "polojasno" {
		t.Errorf("got %+v", obs)
	}
	if obs.Humidity != 60 || obs.WindKph != 12.5 {
		t.Errorf("got %+v", obs)
	}
}

func TestClient_CoordinatesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "50.0755,14.4378" {
			t.Errorf("location %q", got)
		}
		w.Write([]byte(`{"location":{"name":"Praha"},"current":{"temp_c":10}}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"}, zerolog.Nop())
	if _, err := c.Current(context.Background(), Query{Lat: 50.0755, Lon: 14.4378, HasCoord: true}); err != nil {
		t.Fatal(err)
	}
}

func TestClient_MissingAPIKey(t *testing.T) {
	c := NewClient(ClientConfig{}, zerolog.Nop())
	if _, err := c.Current(context.Background(), Query{City: "Prague"}); err == nil {
		t.Error("expected error without api key")
	}
}

func TestClient_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL, APIKey: "k"}, zerolog.Nop())
	if _, err := c.Current(context.Background(), Query{City: "Prague"}); err == nil {
		t.Error("expected error on provider failure")
	}
}
