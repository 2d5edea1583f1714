// Package weather fetches current conditions from weatherapi.com with
// Czech condition texts.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/rb4home/homevoice/internal/observability"
	"github.com/rb4home/homevoice/internal/resilience"
)

// Observation is the current-weather snapshot used in responses.
type Observation struct {
	City       string
	Region     string
	Country    string
	TempC      float64
	FeelsLikeC float64
	Text       string
	WindKph    float64
	Humidity   int
}

// Query selects the location: coordinates when both are set, otherwise
// the city name.
type Query struct {
	Lat, Lon float64
	HasCoord bool
	City     string
}

// Client calls the weatherapi.com current-conditions endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *resilience.CircuitBreaker
	log     zerolog.Logger
}

// ClientConfig configures the weather client.
type ClientConfig struct {
	BaseURL      string
	APIKey       string
	MaxFailures  int
	ResetTimeout time.Duration
}

// NewClient creates a weather client.
func NewClient(cfg ClientConfig, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.weatherapi.com"
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 8 * time.Second},
		breaker: resilience.NewCircuitBreaker("weather", cfg.MaxFailures, cfg.ResetTimeout),
		log:     log.With().Str("component", "weather").Logger(),
	}
}

// Current fetches current conditions for the query location.
func (c *Client) Current(ctx context.Context, q Query) (Observation, error) {
	if c.apiKey == "" {
		return Observation{}, fmt.Errorf("weather api key not configured")
	}

	loc := q.City
	if q.HasCoord {
		loc = fmt.Sprintf("%.4f,%.4f", q.Lat, q.Lon)
	}
	params := url.Values{
		"key":  {c.apiKey},
		"q":    {loc},
		"lang": {"cs"},
	}

	var obs Observation
	err := c.breaker.Call(func() error {
		return c.fetch(ctx, params, &obs)
	})
	observability.UpdateCircuitBreakerState("weather", int(c.breaker.State()))
	return obs, err
}

type apiResponse struct {
	Location struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC      float64 `json:"temp_c"`
		FeelsLikeC float64 `json:"feelslike_c"`
		Condition  struct {
			Text string `json:"text"`
		} `json:"condition"`
		WindKph  float64 `json:"wind_kph"`
		Humidity int     `json:"humidity"`
	} `json:"current"`
}

func (c *Client) fetch(ctx context.Context, params url.Values, obs *Observation) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/v1/current.json?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build weather request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("weather request failed")
		return fmt.Errorf("weather provider returned status %d", resp.StatusCode)
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decode weather response: %w", err)
	}

	*obs = Observation{
		City:       out.Location.Name,
		Region:     out.Location.Region,
		Country:    out.Location.Country,
		TempC:      out.Current.TempC,
		FeelsLikeC: out.Current.FeelsLikeC,
		Text:       out.Current.Condition.Text,
		WindKph:    out.Current.WindKph,
		Humidity:   out.Current.Humidity,
	}
	return nil
}
