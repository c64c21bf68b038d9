package places

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
)

var ErrPlacesUnavailable = errors.New("places data not available")

const (
	defaultTimeout = 30 * time.Second
	defaultRadius  = 5000
)

var defaultCategories = []string{
	"tourism=attraction",
	"tourism=museum",
	"tourism=viewpoint",
	"historic=monument",
	"tourism=gallery",
}

type Lookup interface {
	Attractions(ctx context.Context, lat, lon float64, limit int) ([]string, error)
}

type tag struct {
	key   string
	value string
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	radius     int
	categories []tag
	metrics    *metrics.AppMetrics
	logger     *slog.Logger
}

var _ Lookup = (*Client)(nil)

// NewClient validates the configured categories; each must be key=value.
func NewClient(cfg config.PlacesConfig, logger *slog.Logger) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = defaultRadius
	}
	raw := cfg.Categories
	if len(raw) == 0 {
		raw = defaultCategories
	}

	categories := make([]tag, 0, len(raw))
	for _, c := range raw {
		key, value, ok := strings.Cut(c, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" || strings.ContainsAny(key+value, `"[]();`) {
			return nil, fmt.Errorf("invalid places category %q, want key=value", c)
		}
		categories = append(categories, tag{key: key, value: value})
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:    cfg.OverpassURL,
		radius:     radius,
		categories: categories,
		metrics:    metrics.Get(),
		logger:     logger,
	}, nil
}

// buildQuery unions nodes and ways of every category around the point.
func (c *Client) buildQuery(lat, lon float64) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", c.radius,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64))

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, t := range c.categories {
		for _, kind := range []string{"node", "way"} {
			fmt.Fprintf(&b, "  %s[\"%s\"=\"%s\"]%s;\n", kind, t.key, t.value, around)
		}
	}
	b.WriteString(");\nout tags;\n")
	return b.String()
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// Attractions returns up to limit distinct names in response order.
func (c *Client) Attractions(ctx context.Context, lat, lon float64, limit int) ([]string, error) {
	ctx, span := otel.Tracer("PlacesLookup").Start(ctx, "Attractions", trace.WithAttributes(
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lon", lon),
		attribute.Int("places.limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		return []string{}, nil
	}

	resp, err := c.fetch(ctx, c.buildQuery(lat, lon))
	if err != nil {
		c.logger.WarnContext(ctx, "Places lookup failed",
			slog.Float64("lat", lat), slog.Float64("lon", lon), slog.Any("error", err))
		c.metrics.LookupFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("lookup", "places")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "places unavailable")
		return nil, fmt.Errorf("%w: %v", ErrPlacesUnavailable, err)
	}

	names := make([]string, 0, limit)
	seen := make(map[string]struct{})
	for _, el := range resp.Elements {
		name := strings.TrimSpace(el.Tags["name"])
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
		if len(names) == limit {
			break
		}
	}

	span.SetAttributes(attribute.Int("places.count", len(names)))
	span.SetStatus(codes.Ok, "places fetched")
	return names, nil
}

func (c *Client) fetch(ctx context.Context, query string) (*overpassResponse, error) {
	form := url.Values{}
	form.Set("data", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
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

	var body overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return &body, nil
}
