package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appLogger "github.com/FACorreiaa/go-travelmate/app/logger"
	"github.com/FACorreiaa/go-travelmate/config"
	"github.com/FACorreiaa/go-travelmate/internal/container"
	"github.com/FACorreiaa/go-travelmate/internal/router"
)

// benchmarkUpstream answers every outbound call instantly so the benchmarks
// measure routing, validation, orchestration and serialization.
func benchmarkUpstream() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		reply := "It's a lovely day for a walk along the Seine."
		if len(req.Messages) == 1 && strings.HasPrefix(req.Messages[0].Content, "Analyze") {
			reply = `{"location":"Paris","needs_weather":true,"needs_places":true,"query_type":"detailed_places"}`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": reply}}},
		})
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"display_name":"Paris, France","lat":"48.8566","lon":"2.3522"}]`))
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current_weather":{"temperature":21.5,"weathercode":1,"time":"2024-05-01T12:00"},"hourly":{"time":["2024-05-01T12:00"],"precipitation_probability":[20]}}`))
	})
	mux.HandleFunc("/interpreter", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"elements":[{"tags":{"name":"Louvre"}},{"tags":{"name":"Musée d'Orsay"}},{"tags":{"name":"Sainte-Chapelle"}}]}`))
	})
	return httptest.NewServer(mux)
}

func setupBenchmarkRouter(b *testing.B, parallelFetch bool) http.Handler {
	b.Helper()
	upstream := benchmarkUpstream()
	b.Cleanup(upstream.Close)

	cfg, err := config.LoadEmbedded()
	if err != nil {
		b.Fatal(err)
	}
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAI.APIKey = "bench"
	cfg.LLM.OpenAI.BaseURL = upstream.URL + "/v1"
	cfg.Geocoder.NominatimURL = upstream.URL + "/search"
	cfg.Geocoder.PhotonURL = upstream.URL + "/photon"
	cfg.Weather.OpenMeteoURL = upstream.URL + "/forecast"
	cfg.Places.OverpassURL = upstream.URL + "/interpreter"
	cfg.Orchestrator.ParallelFetch = parallelFetch
	cfg.Repositories.Postgres.Enabled = false

	logger := appLogger.Discard()
	c, err := container.NewContainer(context.Background(), &cfg, logger)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(c.Close)

	return router.SetupRouter(&router.Config{TourismHandler: c.TourismHandler, Logger: logger})
}

const benchmarkBody = `{"query":"What should I visit in Paris?","conversation_history":[{"role":"user","content":"Hi"},{"role":"assistant","content":"Hello! Where are you headed?"}]}`

func runChat(b *testing.B, h http.Handler) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tourism/chat", strings.NewReader(benchmarkBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		b.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
}

// BenchmarkChatEndpoint measures a full detailed-places request.
func BenchmarkChatEndpoint(b *testing.B) {
	h := setupBenchmarkRouter(b, false)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		runChat(b, h)
	}
}

// BenchmarkChatEndpointParallelFetch runs weather and places concurrently.
func BenchmarkChatEndpointParallelFetch(b *testing.B) {
	h := setupBenchmarkRouter(b, true)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		runChat(b, h)
	}
}

// BenchmarkConcurrentChats measures throughput under parallel callers.
func BenchmarkConcurrentChats(b *testing.B) {
	h := setupBenchmarkRouter(b, false)

	b.ResetTimer()
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/tourism/chat", strings.NewReader(benchmarkBody))
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				b.Errorf("unexpected status %d", rr.Code)
			}
		}
	})
}

// BenchmarkRejectedRequest measures the validation path alone.
func BenchmarkRejectedRequest(b *testing.B) {
	h := setupBenchmarkRouter(b, false)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/tourism/chat", strings.NewReader(`{"query":"   "}`))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			b.Fatalf("unexpected status %d", rr.Code)
		}
	}
}

// BenchmarkHealthEndpoint measures the cheapest route through the stack.
func BenchmarkHealthEndpoint(b *testing.B) {
	h := setupBenchmarkRouter(b, false)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tourism/health", nil))
		if rr.Code != http.StatusOK {
			b.Fatalf("unexpected status %d", rr.Code)
		}
	}
}
