package geo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travelmate/config"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

type fakeProvider struct {
	calls  int32
	status int
	body   string
	check  func(r *http.Request)
}

func (f *fakeProvider) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		if f.check != nil {
			f.check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(nominatimURL, photonURL string, cache LocationCache) *Client {
	return NewClient(config.GeocoderConfig{
		NominatimURL: nominatimURL,
		PhotonURL:    photonURL,
		Timeout:      2 * time.Second,
	}, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("primary succeeds", func(t *testing.T) {
		primary := &fakeProvider{
			status: http.StatusOK,
			body:   `[{"display_name":"Paris, Île-de-France, France","lat":"48.8566","lon":"2.3522"}]`,
			check: func(r *http.Request) {
				assert.Equal(t, "Paris", r.URL.Query().Get("q"))
				assert.Equal(t, "json", r.URL.Query().Get("format"))
				assert.Equal(t, "1", r.URL.Query().Get("limit"))
				assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
			},
		}
		fallback := &fakeProvider{status: http.StatusOK, body: `{"features":[]}`}
		c := newTestClient(primary.server(t).URL, fallback.server(t).URL, nil)

		loc, err := c.Resolve(ctx, "Paris")
		require.NoError(t, err)
		assert.Equal(t, "Paris, Île-de-France, France", loc.DisplayName)
		assert.InDelta(t, 48.8566, loc.Lat, 1e-9)
		assert.InDelta(t, 2.3522, loc.Lon, 1e-9)
		assert.EqualValues(t, 0, fallback.calls)
	})

	fallbackCases := []struct {
		name    string
		primary *fakeProvider
	}{
		{name: "primary empty", primary: &fakeProvider{status: http.StatusOK, body: `[]`}},
		{name: "primary non-2xx", primary: &fakeProvider{status: http.StatusServiceUnavailable, body: `oops`}},
		{name: "primary malformed", primary: &fakeProvider{status: http.StatusOK, body: `{"not":"a list"`}},
		{name: "primary bad coordinates", primary: &fakeProvider{status: http.StatusOK, body: `[{"display_name":"X","lat":"north","lon":"1"}]`}},
	}
	for _, tc := range fallbackCases {
		t.Run(tc.name+" falls back once", func(t *testing.T) {
			fallback := &fakeProvider{
				status: http.StatusOK,
				body:   `{"type":"FeatureCollection","features":[{"geometry":{"type":"Point","coordinates":[135.7681,35.0116]},"properties":{"name":"Kyoto","country":"Japan"}}]}`,
			}
			c := newTestClient(tc.primary.server(t).URL, fallback.server(t).URL, nil)

			loc, err := c.Resolve(ctx, "Kyoto")
			require.NoError(t, err)
			assert.Equal(t, "Kyoto, Japan", loc.DisplayName)
			assert.InDelta(t, 35.0116, loc.Lat, 1e-9, "photon coordinates are [lon, lat]")
			assert.InDelta(t, 135.7681, loc.Lon, 1e-9)
			assert.EqualValues(t, 1, tc.primary.calls)
			assert.EqualValues(t, 1, fallback.calls)
		})
	}

	t.Run("photon without name uses query", func(t *testing.T) {
		primary := &fakeProvider{status: http.StatusOK, body: `[]`}
		fallback := &fakeProvider{status: http.StatusOK, body: `{"features":[{"geometry":{"coordinates":[1,2]},"properties":{}}]}`}
		c := newTestClient(primary.server(t).URL, fallback.server(t).URL, nil)

		loc, err := c.Resolve(ctx, "Somewhere")
		require.NoError(t, err)
		assert.Equal(t, "Somewhere", loc.DisplayName)
	})

	t.Run("both providers empty", func(t *testing.T) {
		primary := &fakeProvider{status: http.StatusOK, body: `[]`}
		fallback := &fakeProvider{status: http.StatusOK, body: `{"features":[]}`}
		c := newTestClient(primary.server(t).URL, fallback.server(t).URL, nil)

		loc, err := c.Resolve(ctx, "Xyzzyville")
		assert.Nil(t, loc)
		assert.ErrorIs(t, err, ErrLocationNotFound)
		assert.EqualValues(t, 1, primary.calls)
		assert.EqualValues(t, 1, fallback.calls)
	})

	t.Run("unreachable providers", func(t *testing.T) {
		c := newTestClient("http://127.0.0.1:1/search", "http://127.0.0.1:1/api", nil)
		_, err := c.Resolve(ctx, "Nowhere")
		assert.ErrorIs(t, err, ErrLocationNotFound)
	})

	t.Run("blank name", func(t *testing.T) {
		c := newTestClient("http://127.0.0.1:1", "http://127.0.0.1:1", nil)
		_, err := c.Resolve(ctx, "   ")
		assert.ErrorIs(t, err, ErrLocationNotFound)
	})
}

type MockLocationCache struct {
	mock.Mock
}

func (m *MockLocationCache) Get(ctx context.Context, name string) (*types.LocationData, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.LocationData), args.Error(1)
}

func (m *MockLocationCache) Set(ctx context.Context, name string, loc *types.LocationData) error {
	args := m.Called(ctx, name, loc)
	return args.Error(0)
}

func TestClient_ResolveWithCache(t *testing.T) {
	ctx := context.Background()

	t.Run("hit skips providers", func(t *testing.T) {
		primary := &fakeProvider{status: http.StatusOK, body: `[]`}
		cache := new(MockLocationCache)
		c := newTestClient(primary.server(t).URL, primary.server(t).URL, cache)
		lisbon := &types.LocationData{DisplayName: "Lisboa", Lat: 38.7, Lon: -9.1}

		cache.On("Get", mock.Anything, "Lisbon").Return(lisbon, nil).Once()

		loc, err := c.Resolve(ctx, "Lisbon")
		require.NoError(t, err)
		assert.Equal(t, lisbon, loc)
		assert.EqualValues(t, 0, primary.calls)
		cache.AssertExpectations(t)
	})

	t.Run("miss stores success", func(t *testing.T) {
		primary := &fakeProvider{status: http.StatusOK, body: `[{"display_name":"Porto","lat":"41.15","lon":"-8.61"}]`}
		cache := new(MockLocationCache)
		c := newTestClient(primary.server(t).URL, primary.server(t).URL, cache)

		cache.On("Get", mock.Anything, "Porto").Return(nil, nil).Once()
		cache.On("Set", mock.Anything, "Porto", mock.MatchedBy(func(l *types.LocationData) bool {
			return l.DisplayName == "Porto"
		})).Return(nil).Once()

		_, err := c.Resolve(ctx, "Porto")
		require.NoError(t, err)
		cache.AssertExpectations(t)
	})

	t.Run("cache errors are treated as miss", func(t *testing.T) {
		primary := &fakeProvider{status: http.StatusOK, body: `[{"display_name":"Faro","lat":"37.01","lon":"-7.93"}]`}
		cache := new(MockLocationCache)
		c := newTestClient(primary.server(t).URL, primary.server(t).URL, cache)

		cache.On("Get", mock.Anything, "Faro").Return(nil, errors.New("redis down")).Once()
		cache.On("Set", mock.Anything, "Faro", mock.Anything).Return(errors.New("redis down")).Once()

		loc, err := c.Resolve(ctx, "Faro")
		require.NoError(t, err)
		assert.Equal(t, "Faro", loc.DisplayName)
		cache.AssertExpectations(t)
	})

	t.Run("failures are not cached", func(t *testing.T) {
		empty := &fakeProvider{status: http.StatusOK, body: `[]`}
		photonEmpty := &fakeProvider{status: http.StatusOK, body: `{"features":[]}`}
		cache := new(MockLocationCache)
		c := newTestClient(empty.server(t).URL, photonEmpty.server(t).URL, cache)

		cache.On("Get", mock.Anything, "Atlantis").Return(nil, nil).Once()

		_, err := c.Resolve(ctx, "Atlantis")
		assert.ErrorIs(t, err, ErrLocationNotFound)
		cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})
}
