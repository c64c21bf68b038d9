package tourism

import (
	"fmt"
	"strings"

	generativeAI "github.com/FACorreiaa/go-travelmate/internal/api/generative_ai"
	"github.com/FACorreiaa/go-travelmate/internal/types"
)

const (
	analysisTemperature  float32 = 0.3
	planningTemperature  float32 = 0.4
	itineraryTemperature float32 = 0.5
	placesTemperature    float32 = 0.3
	weatherTemperature   float32 = 0.8
	generalTemperature   float32 = 0.8

	historyExcerptRunes = 200
	defaultTravelTip    = "Travel smart and enjoy your journey!"
)

// template names, recorded on spans and audit rows
const (
	templateItinerary = "itinerary"
	templatePlaces    = "curated_places"
	templateWeather   = "weather_conversational"
	templateGeneral   = "general_conversational"
)

var fallbackPlan = []string{"Check weather", "Find top attractions", "Provide recommendations"}

func getAnalysisPrompt(query string, history []types.ConversationMessage) string {
	var context string
	if len(history) > 0 {
		var b strings.Builder
		b.WriteString("\n\nPrevious conversation context:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		context = b.String()
	}

	return fmt.Sprintf(`Analyze this tourism query and extract information in JSON format.
%s
Current Query: "%s"

Important: If the current query refers to previous context (e.g., "that place", "there", "it"), extract the location from the conversation history above.

Return a JSON object with:
- location: The city/place name mentioned or referenced (string or null)
- needs_weather: true if asking about weather/temperature/climate
- needs_places: true if asking about places to visit/attractions/things to do
- query_type: Classify the query as one of:
  * "detailed_places" - User asks about places/attractions/spots/things to do/visit
  * "weather_focused" - ONLY if asking JUST about weather with no places mentioned
  * "simple" - Everything else (general questions, trip planning, casual queries)

IMPORTANT: If needs_places is true, query_type should be "detailed_places"

Examples:
{"location": "Paris", "needs_weather": false, "needs_places": true, "query_type": "detailed_places"}
{"location": "Tokyo", "needs_weather": true, "needs_places": false, "query_type": "weather_focused"}
{"location": null, "needs_weather": false, "needs_places": false, "query_type": "simple"}

Return ONLY the JSON, no other text.`, context, query)
}

func getPlanningPrompt(query string) string {
	return fmt.Sprintf(`You are a travel planning AI. The user asked: "%s"

Create a concise execution plan that breaks this down into autonomous steps.

Return a JSON object with:
- execution_plan: array of 3-4 specific steps (e.g., ["Check weather forecast", "Find top 5 attractions", "Suggest day-by-day itinerary"])
- travel_tips: brief travel tip for this destination (1-2 sentences)

Example: {"execution_plan": ["Check weather", "Find attractions", "Create itinerary"], "travel_tips": "Book accommodations in advance during peak season."}

Return ONLY the JSON, no other text.`, query)
}

// synthesisContext renders the accumulated state as the shared context block
// of every synthesis template.
func synthesisContext(st types.PipelineState) string {
	var parts []string

	if h := historyBlock(st.History); h != "" {
		parts = append(parts, h)
	}

	parts = append(parts, "Current query: "+st.Query)
	if st.HasLocation() {
		parts = append(parts, "Location: "+st.Location)
	}
	if st.WeatherSummary != nil {
		parts = append(parts, "Weather: "+*st.WeatherSummary)
	}
	if len(st.Places) > 0 {
		parts = append(parts, "Top attractions:\n"+bulletList(st.Places))
	}
	return strings.Join(parts, "\n\n")
}

func historyBlock(history []types.ConversationMessage) string {
	if len(history) == 0 {
		return ""
	}
	lines := []string{"Previous conversation:"}
	for _, msg := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, truncateRunes(msg.Content, historyExcerptRunes)))
	}
	return strings.Join(lines, "\n")
}

// synthesisPrompt picks the template for the state and returns the system
// persona, the user prompt, the temperature and the template name.
func synthesisPrompt(st types.PipelineState) (system, prompt string, temperature float32, template string) {
	switch {
	case st.QueryType == types.QueryMultiStepItinerary && len(st.ExecutionPlan) > 0:
		return "You are TravelMate, a professional travel itinerary planner.",
			getItineraryPrompt(st), itineraryTemperature, templateItinerary
	case st.QueryType == types.QueryDetailedPlaces && len(st.Places) > 0:
		return "You are TravelMate, an enthusiastic and helpful travel assistant.",
			getCuratedPlacesPrompt(st), placesTemperature, templatePlaces
	case st.QueryType == types.QueryWeatherFocused:
		return "You are TravelMate, a friendly travel assistant.",
			getWeatherPrompt(st), weatherTemperature, templateWeather
	default:
		return "You are TravelMate, a friendly travel assistant having a natural conversation.",
			getGeneralPrompt(st), generalTemperature, templateGeneral
	}
}

func getItineraryPrompt(st types.PipelineState) string {
	location := st.Location
	if location == "" {
		location = "Unknown"
	}
	weatherLine := "Weather data unavailable"
	weatherOverview := "Check local weather before departure"
	if st.WeatherSummary != nil {
		weatherLine = *st.WeatherSummary
		weatherOverview = *st.WeatherSummary
	}
	places := "- Exploring local attractions"
	if len(st.Places) > 0 {
		places = bulletList(st.Places)
	}
	steps := make([]string, len(st.ExecutionPlan))
	for i, s := range st.ExecutionPlan {
		steps[i] = fmt.Sprintf("%d. %s", i+1, s)
	}
	tips := st.TravelTips
	if tips == "" {
		tips = defaultTravelTip
	}

	var prefix string
	if h := historyBlock(st.History); h != "" {
		prefix = h + "\n\n"
	}

	return prefix + fmt.Sprintf(`User Query: %s

Available Information:
- Location: %s
- Weather: %s
- Top Attractions:
%s

Execution Steps:
%s

Travel Tips: %s

Create a STRUCTURED multi-day itinerary following this EXACT format:

---
**🌤️ WEATHER OVERVIEW**
%s

**📍 TOP ATTRACTIONS**
List the attractions as bullet points, each on its own line.

**📅 YOUR ITINERARY**

**Day 1: [Theme/Focus]**
- Morning: [Activity/Location]
- Afternoon: [Activity/Location]
- Evening: [Activity/Location]

(Continue for all days mentioned in the query)

**💡 TRAVEL TIPS**
%s

**✨ FINAL THOUGHTS**
Brief encouraging conclusion about their trip.
---

RULES:
1. Use clear section headers with emojis
2. Create a day-by-day breakdown with specific times
3. Incorporate the provided attractions into daily activities
4. Keep each day balanced (morning, afternoon, evening)
5. Professional but warm tone

Generate the complete structured itinerary now:`,
		st.Query, location, weatherLine, places, strings.Join(steps, "\n"), tips, weatherOverview, tips)
}

func getCuratedPlacesPrompt(st types.PipelineState) string {
	return fmt.Sprintf(`%s

The user specifically asked about places to visit. Generate a response following this EXACT structure:

Hello there! [Location] is a fantastic choice, you're going to have a wonderful time!

Let's get you up to speed:

**Weather:** [Weather description]

And speaking of exploring, [Location] has some great spots you might enjoy:

* **[Attraction Name 1]**
* **[Attraction Name 2]**
* **[Attraction Name 3]**

Enjoy your trip to [Location]! Let me know if you need anything else!

RULES - FOLLOW EXACTLY:
1. List ONLY attraction names, with no descriptions or explanations
2. Format: * **Name** (nothing else on that line)
3. Only list attractions from the context above

Example of CORRECT format:
* **Eiffel Tower**
* **Louvre Museum**

Example of WRONG format (DO NOT DO THIS):
* **Eiffel Tower** - it's incredible and a great way to warm up!`, synthesisContext(st))
}

func getWeatherPrompt(st types.PipelineState) string {
	return fmt.Sprintf(`%s

The user is primarily interested in weather. Respond naturally and conversationally.

Guidelines:
- Focus on weather information, be specific about temperature and conditions
- Keep it concise and friendly
- If places are available, mention them briefly and casually
- End with a helpful offer (e.g., "Would you like to know about places to visit?")
- Natural language, no rigid formatting`, synthesisContext(st))
}

func getGeneralPrompt(st types.PipelineState) string {
	return fmt.Sprintf(`%s

Respond in a natural, conversational way, like chatting with a knowledgeable friend.

Guidelines:
- Be concise and casual
- If providing weather, mention it naturally (e.g., "It's around 22°C with some clouds")
- If listing places, weave them into conversation naturally
- No bullet points or rigid structure unless you have many items (5+)
- End casually`, synthesisContext(st))
}

func synthesisMessages(st types.PipelineState) ([]generativeAI.Message, float32, string) {
	system, prompt, temperature, template := synthesisPrompt(st)
	return []generativeAI.Message{
		generativeAI.SystemMessage(system),
		generativeAI.UserMessage(prompt),
	}, temperature, template
}

func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
