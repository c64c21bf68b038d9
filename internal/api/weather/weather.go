package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-travelmate/app/observability/metrics"
	"github.com/FACorreiaa/go-travelmate/config"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

// ErrWeatherUnavailable covers transport errors, bad statuses and bodies
// without a current reading.
var ErrWeatherUnavailable = errors.New("weather data not available")

const defaultTimeout = 30 * time.Second

type Lookup interface {
	Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error)
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *metrics.AppMetrics
	logger     *slog.Logger
}

var _ Lookup = (*Client)(nil)

func NewClient(cfg config.WeatherConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: cfg.OpenMeteoURL,
		metrics: metrics.Get(),
		logger:  logger,
	}
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		Windspeed   *float64 `json:"windspeed"`
		WeatherCode *int     `json:"weathercode"`
		Time        string   `json:"time"`
	} `json:"current_weather"`
	Hourly struct {
		Time                     []string   `json:"time"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
	} `json:"hourly"`
}

func (c *Client) Current(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	ctx, span := otel.Tracer("WeatherLookup").Start(ctx, "Current", trace.WithAttributes(
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lon", lon),
	))
	defer span.End()

	snapshot, err := c.fetch(ctx, lat, lon)
	if err != nil {
		c.logger.WarnContext(ctx, "Weather lookup failed",
			slog.Float64("lat", lat), slog.Float64("lon", lon), slog.Any("error", err))
		c.metrics.LookupFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("lookup", "weather")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "weather unavailable")
		return nil, fmt.Errorf("%w: %v", ErrWeatherUnavailable, err)
	}

	span.SetAttributes(attribute.Float64("weather.temperature", snapshot.Temperature))
	span.SetStatus(codes.Ok, "weather fetched")
	return snapshot, nil
}

func (c *Client) fetch(ctx context.Context, lat, lon float64) (*types.WeatherSnapshot, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("current_weather", "true")
	params.Set("hourly", "precipitation_probability")
	params.Set("forecast_days", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if body.CurrentWeather == nil || body.CurrentWeather.Temperature == nil {
		return nil, errors.New("response has no current temperature")
	}

	cw := body.CurrentWeather
	return &types.WeatherSnapshot{
		Temperature:              *cw.Temperature,
		PrecipitationProbability: precipitationAt(cw.Time, body.Hourly.Time, body.Hourly.PrecipitationProbability),
		Windspeed:                cw.Windspeed,
		WeatherCode:              cw.WeatherCode,
	}, nil
}

// precipitationAt picks the hourly value for the current hour, falling back
// to the first value when the hour is not listed.
func precipitationAt(current string, times []string, values []*float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	if current != "" && len(current) >= 13 {
		hour := current[:13]
		for i, ts := range times {
			if i < len(values) && len(ts) >= 13 && ts[:13] == hour {
				return values[i]
			}
		}
	}
	return values[0]
}
