package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travelmate/internal/types"
)

// fakeServer answers chat requests by echoing the query and records the
// history length it was sent.
func fakeServer(t *testing.T, histories *[]int) *httptest.Server {
	t.Helper()
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tourism/chat", func(w http.ResponseWriter, r *http.Request) {
		var req types.TourismRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if histories != nil {
			mu.Lock()
			*histories = append(*histories, len(req.ConversationHistory))
			mu.Unlock()
		}
		if req.Query == "fail" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"success":false,"error":"An error occurred while processing your request. Please try again.","request_id":"r1"}`))
			return
		}
		reply := "echo: " + req.Query
		_ = json.NewEncoder(w).Encode(types.TourismResponse{
			Location:            "Paris",
			PlacesInfo:          []string{"Louvre"},
			FinalResponse:       reply,
			ConversationHistory: types.AppendTurn(req.ConversationHistory, req.Query, reply),
		})
	})
	mux.HandleFunc("/api/v1/tourism/chat/stream", func(w http.ResponseWriter, r *http.Request) {
		var req types.TourismRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "text/event-stream")
		write := func(ev types.StreamEvent) {
			data, _ := json.Marshal(ev)
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", ev.EventID, ev.Type, data)
		}
		write(types.StreamEvent{Type: types.EventTypeReasoning, EventID: "1", Data: types.ReasoningStep{Step: "analyze", Message: "Analyzing your query"}})
		fmt.Fprint(w, ": heartbeat\n\n")
		if req.Query == "boom" {
			write(types.StreamEvent{Type: types.EventTypeError, EventID: "2", IsFinal: true, Message: "An error occurred while processing your request. Please try again."})
			return
		}
		write(types.StreamEvent{Type: types.EventTypeComplete, EventID: "2", IsFinal: true, Data: types.TourismResponse{Location: "Rome", FinalResponse: "Ciao!"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, srv *httptest.Server, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(append(args, "--server", srv.URL))
	err := cmd.Execute()
	return out.String(), err
}

func TestAsk(t *testing.T) {
	srv := fakeServer(t, nil)

	t.Run("single question", func(t *testing.T) {
		out, err := run(t, srv, "", "ask", "What's", "the", "weather", "in", "Paris?")
		require.NoError(t, err)
		assert.Equal(t, "echo: What's the weather in Paris?\n", out)
	})

	t.Run("verbose", func(t *testing.T) {
		out, err := run(t, srv, "", "ask", "-v", "hi")
		require.NoError(t, err)
		assert.Contains(t, out, "Location: Paris\n")
		assert.Contains(t, out, "Attractions: Louvre\n")
	})

	t.Run("missing query", func(t *testing.T) {
		_, err := run(t, srv, "", "ask")
		assert.Error(t, err)
	})

	t.Run("server error message surfaced", func(t *testing.T) {
		_, err := run(t, srv, "", "ask", "fail")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "Please try again.")
	})
}

func TestAskInteractive(t *testing.T) {
	var histories []int
	srv := fakeServer(t, &histories)

	out, err := run(t, srv, "and Rome?\n\nfail\nthanks\nquit\n", "ask", "--interactive", "Paris?")
	require.NoError(t, err)

	assert.Contains(t, out, "echo: Paris?")
	assert.Contains(t, out, "echo: and Rome?")
	assert.Contains(t, out, "error: server returned status 500")
	assert.Contains(t, out, "echo: thanks")
	// A failed turn leaves the history untouched.
	assert.Equal(t, []int{0, 2, 4, 4}, histories)
}

func TestStream(t *testing.T) {
	srv := fakeServer(t, nil)

	t.Run("prints steps then reply", func(t *testing.T) {
		out, err := run(t, srv, "", "stream", "Rome?")
		require.NoError(t, err)
		assert.Equal(t, "[analyze] Analyzing your query\n\nCiao!\n", out)
	})

	t.Run("error event", func(t *testing.T) {
		_, err := run(t, srv, "", "stream", "boom")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Please try again.")
	})

	t.Run("requires query", func(t *testing.T) {
		_, err := run(t, srv, "", "stream")
		assert.Error(t, err)
	})
}

func TestReadSSE(t *testing.T) {
	body := ": comment\n\nevent: x\ndata: {\"a\":\ndata: 1}\n\ndata: last\n\n"
	var got []string
	err := readSSE(strings.NewReader(body), func(data []byte) (bool, error) {
		got = append(got, string(data))
		return false, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"{\"a\":\n1}", "last"}, got)
}
