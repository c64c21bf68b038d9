package geo

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
	"strings"
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

// ErrLocationNotFound is returned when neither provider resolves a name.
var ErrLocationNotFound = errors.New("location not found")

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "TourismAIIntern/1.0"
)

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, name string) (*types.LocationData, error)
}

// Client queries Nominatim and falls back to Photon exactly once.
type Client struct {
	httpClient   *http.Client
	nominatimURL string
	photonURL    string
	userAgent    string
	cache        LocationCache
	metrics      *metrics.AppMetrics
	logger       *slog.Logger
}

var _ Geocoder = (*Client)(nil)

// NewClient builds a geocoder. cache may be nil to disable caching.
func NewClient(cfg config.GeocoderConfig, cache LocationCache, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		nominatimURL: cfg.NominatimURL,
		photonURL:    cfg.PhotonURL,
		userAgent:    userAgent,
		cache:        cache,
		metrics:      metrics.Get(),
		logger:       logger,
	}
}

func (c *Client) Resolve(ctx context.Context, name string) (*types.LocationData, error) {
	ctx, span := otel.Tracer("Geocoder").Start(ctx, "Resolve", trace.WithAttributes(
		attribute.String("geo.query", name),
	))
	defer span.End()

	name = strings.TrimSpace(name)
	if name == "" {
		span.SetStatus(codes.Error, "empty name")
		return nil, ErrLocationNotFound
	}
	l := c.logger.With(slog.String("location", name))

	if c.cache != nil {
		cached, err := c.cache.Get(ctx, name)
		if err != nil {
			l.WarnContext(ctx, "Geocode cache read failed", slog.Any("error", err))
		} else if cached != nil {
			span.SetAttributes(attribute.Bool("geo.cache_hit", true))
			return cached, nil
		}
	}

	loc, err := c.nominatim(ctx, name)
	if err != nil {
		l.WarnContext(ctx, "Nominatim failed, trying Photon fallback", slog.Any("error", err))
		var fallbackErr error
		loc, fallbackErr = c.photon(ctx, name)
		if fallbackErr != nil {
			l.ErrorContext(ctx, "Photon fallback failed", slog.Any("error", fallbackErr))
			c.metrics.LookupFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("lookup", "geocode")))
			err = fmt.Errorf("%w: %s", ErrLocationNotFound, name)
			span.RecordError(errors.Join(err, fallbackErr))
			span.SetStatus(codes.Error, "both providers failed")
			return nil, err
		}
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, name, loc); err != nil {
			l.WarnContext(ctx, "Geocode cache write failed", slog.Any("error", err))
		}
	}

	span.SetAttributes(
		attribute.Float64("geo.lat", loc.Lat),
		attribute.Float64("geo.lon", loc.Lon),
	)
	span.SetStatus(codes.Ok, "resolved")
	return loc, nil
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (c *Client) nominatim(ctx context.Context, name string) (*types.LocationData, error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("format", "json")
	params.Set("limit", "1")

	var places []nominatimPlace
	if err := c.getJSON(ctx, c.nominatimURL, params, &places); err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}
	if len(places) == 0 {
		return nil, errors.New("nominatim: no results")
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad lat %q: %w", places[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad lon %q: %w", places[0].Lon, err)
	}

	displayName := places[0].DisplayName
	if displayName == "" {
		displayName = name
	}
	return &types.LocationData{DisplayName: displayName, Lat: lat, Lon: lon}, nil
}

type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Name    string `json:"name"`
			Country string `json:"country"`
		} `json:"properties"`
	} `json:"features"`
}

// photon reads GeoJSON, whose coordinates are ordered [lon, lat].
func (c *Client) photon(ctx context.Context, name string) (*types.LocationData, error) {
	params := url.Values{}
	params.Set("q", name)
	params.Set("limit", "1")

	var resp photonResponse
	if err := c.getJSON(ctx, c.photonURL, params, &resp); err != nil {
		return nil, fmt.Errorf("photon: %w", err)
	}
	if len(resp.Features) == 0 {
		return nil, errors.New("photon: no results")
	}

	feature := resp.Features[0]
	if len(feature.Geometry.Coordinates) < 2 {
		return nil, errors.New("photon: feature has no coordinates")
	}

	displayName := feature.Properties.Name
	if displayName == "" {
		displayName = name
	}
	if feature.Properties.Country != "" && feature.Properties.Country != displayName {
		displayName = displayName + ", " + feature.Properties.Country
	}
	return &types.LocationData{
		DisplayName: displayName,
		Lat:         feature.Geometry.Coordinates[1],
		Lon:         feature.Geometry.Coordinates[0],
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
