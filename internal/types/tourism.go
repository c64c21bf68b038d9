package types

// QueryType selects the synthesis prompt template.
type QueryType string

const (
	QuerySimple             QueryType = "simple"
	QueryWeatherFocused     QueryType = "weather_focused"
	QueryDetailedPlaces     QueryType = "detailed_places"
	QueryMultiStepItinerary QueryType = "multi_step_itinerary"
)

// ParseQueryType maps a model-supplied label to a QueryType, defaulting to
// QuerySimple for anything unknown.
func ParseQueryType(s string) QueryType {
	switch QueryType(s) {
	case QueryWeatherFocused, QueryDetailedPlaces, QueryMultiStepItinerary:
		return QueryType(s)
	default:
		return QuerySimple
	}
}

// PipelineState is threaded by value through the orchestrator steps. Each
// field is owned by one step; later steps either carry it forward or
// replace it wholesale.
type PipelineState struct {
	Query   string
	History []ConversationMessage

	// analyze
	Location       string // empty when no location was recognised
	NeedsWeather   bool
	NeedsPlaces    bool
	QueryType      QueryType
	IsComplexQuery bool

	// planning
	ExecutionPlan []string
	TravelTips    string

	// weather
	WeatherSummary *string

	// places; nil until the places step runs
	Places []string

	// synthesize
	FinalResponse string

	Error string
}

// NewPipelineState builds the initial record for one run.
func NewPipelineState(query string, history []ConversationMessage) PipelineState {
	return PipelineState{
		Query:     query,
		History:   history,
		QueryType: QuerySimple,
	}
}

// HasLocation reports whether analyze resolved a location name.
func (s PipelineState) HasLocation() bool {
	return s.Location != ""
}

// Intent is the structured interpretation of a query extracted by the
// analyze step.
type Intent struct {
	Location     *string `json:"location"`
	NeedsWeather bool    `json:"needs_weather"`
	NeedsPlaces  bool    `json:"needs_places"`
	QueryType    string  `json:"query_type"`
}

// TravelPlan is the planning step's model output.
type TravelPlan struct {
	ExecutionPlan []string `json:"execution_plan"`
	TravelTips    string   `json:"travel_tips"`
}

// TourismRequest is the caller-facing request body.
type TourismRequest struct {
	Query               string                `json:"query"`
	ConversationHistory []ConversationMessage `json:"conversation_history,omitempty"`
}

// TourismResponse is the caller-facing response body.
type TourismResponse struct {
	Location            string                `json:"location"`
	WeatherInfo         *string               `json:"weather_info,omitempty"`
	PlacesInfo          []string              `json:"places_info"`
	FinalResponse       string                `json:"final_response"`
	ConversationHistory []ConversationMessage `json:"conversation_history"`
}
