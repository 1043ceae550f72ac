// Package weather maps match-day conditions to performance modifiers and can
// fetch live conditions for a stadium location from OpenWeatherMap.
package weather

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Condition is the closed set of match-day weather states.
type Condition string

const (
	Clear     Condition = "clear"
	Cloudy    Condition = "cloudy"
	Rain      Condition = "rain"
	HeavyRain Condition = "heavy_rain"
	Snow      Condition = "snow"
	Windy     Condition = "windy"
	Hot       Condition = "hot"
	Cold      Condition = "cold"
)

// Weather is the value consumed by the strength model and carried on snapshots.
type Weather struct {
	Condition   Condition `json:"condition"`
	TempC       float64   `json:"temp_c"`
	Description string    `json:"description,omitempty"`
}

// PerformanceImpact returns the strength multiplier for the condition.
// Unknown conditions are neutral.
func (w Weather) PerformanceImpact() float64 {
	switch w.Condition {
	case Clear:
		return 1.0
	case Cloudy:
		return 0.99
	case Rain:
		return 0.95
	case HeavyRain:
		return 0.9
	case Snow:
		return 0.85
	case Windy:
		return 0.93
	case Hot:
		return 0.92
	case Cold:
		return 0.96
	default:
		return 1.0
	}
}

// Valid reports whether c is one of the known conditions.
func (c Condition) Valid() bool {
	switch c {
	case Clear, Cloudy, Rain, HeavyRain, Snow, Windy, Hot, Cold:
		return true
	}
	return false
}

// Conditions holds parsed weather data from the API.
type Conditions struct {
	Temp        float64 `json:"temp"` // Celsius
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"` // m/s
	Main        string  `json:"main"`
}

// ToWeather classifies raw conditions into a match Weather value.
func ToWeather(c *Conditions) Weather {
	if c == nil {
		return Weather{Condition: Clear, TempC: 15, Description: "fair weather"}
	}

	w := Weather{TempC: c.Temp, Description: c.Description}
	main := strings.ToLower(c.Main)
	desc := strings.ToLower(c.Description)

	switch {
	case main == "snow":
		w.Condition = Snow
	case main == "thunderstorm" || (main == "rain" && strings.Contains(desc, "heavy")):
		w.Condition = HeavyRain
	case main == "rain" || main == "drizzle":
		w.Condition = Rain
	case c.WindSpeed > 12:
		w.Condition = Windy
	case c.Temp >= 30:
		w.Condition = Hot
	case c.Temp <= 0:
		w.Condition = Cold
	case main == "clouds":
		w.Condition = Cloudy
	default:
		w.Condition = Clear
	}
	return w
}

// Client fetches weather data from OpenWeatherMap.
type Client struct {
	apiKey   string
	location string
	baseURL  string
	client   *http.Client
	log      zerolog.Logger

	mu          sync.Mutex
	cached      *Conditions
	cachedAt    time.Time
	cacheTTL    time.Duration
	lastFailAt  time.Time
	failBackoff time.Duration
}

// NewClient creates a weather API client. Returns nil if apiKey is empty.
func NewClient(apiKey, location string, log zerolog.Logger) *Client {
	if apiKey == "" {
		return nil
	}
	if location == "" {
		location = "London,GB"
	}
	return &Client{
		apiKey:   apiKey,
		location: location,
		baseURL:  "https://api.openweathermap.org",
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log,
		cacheTTL: 5 * time.Minute,
	}
}

// Current returns the match Weather for the configured location, falling
// back to clear weather when the client is nil or the API is unavailable.
func (c *Client) Current() Weather {
	if c == nil {
		return ToWeather(nil)
	}
	cond, err := c.Fetch()
	if err != nil {
		c.log.Warn().Err(err).Msg("weather unavailable, using default")
		return ToWeather(nil)
	}
	return ToWeather(cond)
}

// Fetch retrieves current weather conditions, using cache if fresh.
func (c *Client) Fetch() (*Conditions, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.cachedAt) < c.cacheTTL {
		return c.cached, nil
	}

	// Backoff on repeated failures (up to 10 minutes).
	if c.failBackoff > 0 && time.Since(c.lastFailAt) < c.failBackoff {
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, fmt.Errorf("weather API backoff (%s remaining)", c.failBackoff-time.Since(c.lastFailAt))
	}

	conditions, err := c.fetchFromAPI()
	if err != nil {
		c.lastFailAt = time.Now()
		if c.failBackoff == 0 {
			c.failBackoff = time.Minute
		} else if c.failBackoff < 10*time.Minute {
			c.failBackoff *= 2
		}
		if c.cached != nil {
			return c.cached, nil
		}
		return nil, err
	}

	c.cached = conditions
	c.cachedAt = time.Now()
	c.failBackoff = 0
	return conditions, nil
}

func (c *Client) fetchFromAPI() (*Conditions, error) {
	apiURL := fmt.Sprintf("%s/data/2.5/weather?q=%s&appid=%s&units=metric",
		c.baseURL, url.QueryEscape(c.location), c.apiKey)

	resp, err := c.client.Get(apiURL)
	if err != nil {
		return nil, fmt.Errorf("weather API call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read weather response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error %d: %s", resp.StatusCode, string(body))
	}

	var owm struct {
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.Unmarshal(body, &owm); err != nil {
		return nil, fmt.Errorf("parse weather: %w", err)
	}

	conditions := &Conditions{Temp: owm.Main.Temp, WindSpeed: owm.Wind.Speed}
	if len(owm.Weather) > 0 {
		conditions.Main = owm.Weather[0].Main
		conditions.Description = owm.Weather[0].Description
	}

	c.log.Debug().Float64("temp", conditions.Temp).Str("desc", conditions.Description).Msg("weather fetched")
	return conditions, nil
}
