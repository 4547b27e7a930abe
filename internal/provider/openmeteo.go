// Package provider 封装 Open-Meteo 上游：先地理编码城市，再查询当前天气。
// 对缓存层而言它只是一个可能缓慢、可能失败的黑盒取数函数。
package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

const (
	defaultGeocodeBaseURL  = "https://geocoding-api.open-meteo.com"
	defaultForecastBaseURL = "https://api.open-meteo.com"
	defaultRetryBackoff    = 100 * time.Millisecond
)

// ErrCityNotFound 表示地理编码没有任何匹配结果。
var ErrCityNotFound = errors.New("city not found")

// Observation 表示一次当前天气观测结果，同时也是缓存的序列化载体。
type Observation struct {
	City          string  `json:"city"`
	Country       string  `json:"country,omitempty"`
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
	ObservedAt    string  `json:"time"`
	// Stale 标记该观测来自陈旧副本而非实时上游。
	Stale bool `json:"stale,omitempty"`
}

// ClientOptions 控制上游客户端的端点与重试行为，基地址留空时使用官方端点。
type ClientOptions struct {
	HTTPClient      *http.Client
	GeocodeBaseURL  string
	ForecastBaseURL string
	// Retries 是整条获取链路失败后的额外重试次数。
	Retries      int
	RetryBackoff time.Duration
}

// Client 是 Open-Meteo 的上游客户端，进程内复用一份。
type Client struct {
	httpClient      *http.Client
	geocodeBaseURL  string
	forecastBaseURL string
	retries         int
	retryBackoff    time.Duration
}

// NewClient 构建上游客户端并填充默认值。
func NewClient(opts ClientOptions) *Client {
	client := &Client{
		httpClient:      opts.HTTPClient,
		geocodeBaseURL:  opts.GeocodeBaseURL,
		forecastBaseURL: opts.ForecastBaseURL,
		retries:         opts.Retries,
		retryBackoff:    opts.RetryBackoff,
	}
	if client.httpClient == nil {
		client.httpClient = NewHTTPClient(0)
	}
	if client.geocodeBaseURL == "" {
		client.geocodeBaseURL = defaultGeocodeBaseURL
	}
	if client.forecastBaseURL == "" {
		client.forecastBaseURL = defaultForecastBaseURL
	}
	if client.retries < 0 {
		client.retries = 0
	}
	if client.retryBackoff <= 0 {
		client.retryBackoff = defaultRetryBackoff
	}
	return client
}

// CurrentByCity 解析城市坐标后获取当前天气，整条链路失败时按配置重试。
func (c *Client) CurrentByCity(ctx context.Context, city string) (*Observation, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryBackoff):
			}
		}

		obs, err := c.fetchOnce(ctx, city)
		if err == nil {
			return obs, nil
		}
		// 城市不存在是确定性结果，重试不会改变答案。
		if errors.Is(err, ErrCityNotFound) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, city string) (*Observation, error) {
	location, err := c.geocode(ctx, city)
	if err != nil {
		return nil, err
	}
	return c.currentWeather(ctx, location)
}

type geoLocation struct {
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"country_code"`
}

type geocodeResponse struct {
	Results []geoLocation `json:"results"`
}

func (c *Client) geocode(ctx context.Context, city string) (*geoLocation, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	var decoded geocodeResponse
	if err := c.getJSON(ctx, c.geocodeBaseURL+"/v1/search", params, &decoded); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", city, err)
	}
	if len(decoded.Results) == 0 {
		return nil, fmt.Errorf("geocode %q: %w", city, ErrCityNotFound)
	}
	return &decoded.Results[0], nil
}

type currentWeatherPayload struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
	Time          string  `json:"time"`
}

type forecastResponse struct {
	CurrentWeather *currentWeatherPayload `json:"current_weather"`
}

func (c *Client) currentWeather(ctx context.Context, location *geoLocation) (*Observation, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(location.Latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(location.Longitude, 'f', -1, 64))
	params.Set("current_weather", "true")
	params.Set("temperature_unit", "celsius")
	params.Set("windspeed_unit", "kmh")
	params.Set("precipitation_unit", "mm")

	var decoded forecastResponse
	if err := c.getJSON(ctx, c.forecastBaseURL+"/v1/forecast", params, &decoded); err != nil {
		return nil, fmt.Errorf("forecast for %q: %w", location.Name, err)
	}
	if decoded.CurrentWeather == nil {
		return nil, fmt.Errorf("forecast for %q: missing current_weather", location.Name)
	}

	cw := decoded.CurrentWeather
	return &Observation{
		City:          location.Name,
		Country:       location.CountryCode,
		Temperature:   cw.Temperature,
		WindSpeed:     cw.WindSpeed,
		WindDirection: cw.WindDirection,
		WeatherCode:   cw.WeatherCode,
		ObservedAt:    cw.Time,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, endpoint)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
