package tourism

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-travelmate/config"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

func drain(t *testing.T, ch <-chan types.StreamEvent) []types.StreamEvent {
	t.Helper()
	var events []types.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatal("stream did not close")
			return events
		}
	}
}

func TestServiceImpl_ProcessStream(t *testing.T) {
	t.Run("reasoning events precede one complete event", func(t *testing.T) {
		f := newFixture(config.OrchestratorConfig{})
		f.llm.On("Complete", mock.Anything, analysisCall(), analysisTemperature).
			Return(`{"location":"Paris","needs_weather":true,"needs_places":false,"query_type":"weather_focused"}`, nil).Once()
		f.geocoder.On("Resolve", mock.Anything, "Paris").Return(paris, nil).Once()
		f.weather.On("Current", mock.Anything, paris.Lat, paris.Lon).
			Return(&types.WeatherSnapshot{Temperature: 20}, nil).Once()
		f.llm.On("Complete", mock.Anything, synthesisCall(personaWeather), weatherTemperature).
			Return("Lovely 20°C.", nil).Once()

		resp, err := f.svc.ProcessStream(context.Background(), "What's the weather in Paris?", nil)
		require.NoError(t, err)
		defer resp.Cancel()

		events := drain(t, resp.Stream)
		require.NotEmpty(t, events)

		last := events[len(events)-1]
		assert.Equal(t, types.EventTypeComplete, last.Type)
		assert.True(t, last.IsFinal)
		body, ok := last.Data.(*types.TourismResponse)
		require.True(t, ok)
		assert.Equal(t, "Lovely 20°C.", body.FinalResponse)
		assert.Len(t, body.ConversationHistory, 2)

		var steps []string
		for _, ev := range events[:len(events)-1] {
			assert.Equal(t, types.EventTypeReasoning, ev.Type)
			assert.False(t, ev.IsFinal)
			assert.NotEmpty(t, ev.EventID)
			assert.False(t, ev.Timestamp.IsZero())
			steps = append(steps, ev.Data.(types.ReasoningStep).Step)
		}
		assert.Equal(t, []string{
			StepAnalyze, StepAnalyze,
			StepWeather, StepWeather,
			StepPlaces, StepPlaces,
			StepSynthesize, StepSynthesize,
		}, steps)
		f.assertExpectations(t)
	})

	t.Run("pipeline failure ends with error event", func(t *testing.T) {
		f := newFixture(config.OrchestratorConfig{})
		f.llm.On("Complete", mock.Anything, analysisCall(), analysisTemperature).
			Run(func(args mock.Arguments) { panic("boom") }).
			Return("", nil).Once()

		resp, err := f.svc.ProcessStream(context.Background(), "hi", nil)
		require.NoError(t, err)
		defer resp.Cancel()

		events := drain(t, resp.Stream)
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.Equal(t, types.EventTypeError, last.Type)
		assert.True(t, last.IsFinal)
		assert.Equal(t, "An error occurred while processing your request. Please try again.", last.Message)
		assert.NotContains(t, last.Message, "boom")

		finals := 0
		for _, ev := range events {
			if ev.IsFinal {
				finals++
			}
		}
		assert.Equal(t, 1, finals)
	})

	t.Run("cancelled context sends nothing and closes", func(t *testing.T) {
		f := newFixture(config.OrchestratorConfig{})
		f.llm.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", context.Canceled).Maybe()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		resp, err := f.svc.ProcessStream(ctx, "hello there", nil)
		require.NoError(t, err)
		assert.Empty(t, drain(t, resp.Stream))
	})

	t.Run("empty query", func(t *testing.T) {
		f := newFixture(config.OrchestratorConfig{})
		_, err := f.svc.ProcessStream(context.Background(), "", nil)
		assert.ErrorIs(t, err, ErrEmptyQuery)
	})
}
